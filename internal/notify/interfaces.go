// Package notify delivers advisory deletion notifications off the caller's
// goroutine. Nothing here feeds back into deletion state.
package notify

import (
	"context"

	"reprieve/internal/types"
)

// Publisher emits notification events asynchronously.
type Publisher interface {
	Publish(event types.NotificationEvent)
}

// PolicyResolver computes effective notification settings for an event.
type PolicyResolver interface {
	Resolve(ctx context.Context, event types.NotificationEvent) types.NotificationSettings
}

// Dispatcher sends a notification event through configured channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error
}

// Sink handles one notification method implementation.
type Sink interface {
	Method() types.NotificationMethod
	Notify(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error
}

// DedupePolicy decides whether an event should be suppressed.
type DedupePolicy interface {
	ShouldSuppress(event types.NotificationEvent, settings types.NotificationSettings) bool
}
