package notify

import (
	"context"

	"reprieve/internal/types"
)

type staticPolicyResolver struct {
	defaults types.NotificationSettings
	scopes   map[types.Scope]bool
}

// NewPolicyResolver resolves every event to defaults. disabledScopes turns
// notifications off for individual scopes.
func NewPolicyResolver(defaults types.NotificationSettings, disabledScopes []types.Scope) PolicyResolver {
	scopes := map[types.Scope]bool{}
	for _, scope := range disabledScopes {
		scopes[scope] = true
	}
	return &staticPolicyResolver{
		defaults: types.NormalizeNotificationSettings(defaults),
		scopes:   scopes,
	}
}

func (r *staticPolicyResolver) Resolve(ctx context.Context, event types.NotificationEvent) types.NotificationSettings {
	settings := types.CloneNotificationSettings(r.defaults)
	if r.scopes[event.Scope] {
		settings.Enabled = false
	}
	return settings
}
