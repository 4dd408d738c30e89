package notify

import (
	"fmt"
	"strings"
	"time"

	"reprieve/internal/types"
)

func normalizeEvent(event types.NotificationEvent) types.NotificationEvent {
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if normalized, ok := types.NormalizeNotificationTrigger(string(event.Trigger)); ok {
		event.Trigger = normalized
	}
	event.Token = strings.TrimSpace(event.Token)
	event.Error = strings.TrimSpace(event.Error)
	return event
}

// dedupeKey includes the count so a merge that grows an episode is announced
// again.
func dedupeKey(event types.NotificationEvent) string {
	return strings.Join([]string{
		string(event.Trigger),
		string(event.Scope),
		event.Token,
		fmt.Sprint(event.Count),
	}, "|")
}

// Describe renders the title and body shown for event.
func Describe(event types.NotificationEvent) (string, string) {
	noun := "items"
	if event.Count == 1 {
		noun = "item"
	}
	scope := string(event.Scope)
	if scope == "" {
		scope = "list"
	}
	switch event.Trigger {
	case types.NotificationTriggerDeletionScheduled:
		return "Reprieve", fmt.Sprintf("%d %s removed from %s, u to undo", event.Count, noun, scope)
	case types.NotificationTriggerDeletionCommitted:
		return "Reprieve", fmt.Sprintf("%d %s deleted from %s", event.Count, noun, scope)
	case types.NotificationTriggerDeletionCancelled:
		return "Reprieve", fmt.Sprintf("%d %s restored to %s", event.Count, noun, scope)
	case types.NotificationTriggerDeletionFailed:
		body := fmt.Sprintf("failed to remove %d %s from %s", event.Count, noun, scope)
		if event.Error != "" {
			body += ": " + event.Error
		}
		return "Reprieve deletion failed", body
	default:
		return "Reprieve", fmt.Sprintf("%s (%s)", event.Trigger, scope)
	}
}
