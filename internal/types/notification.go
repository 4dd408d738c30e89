package types

import "strings"

type NotificationTrigger string

const (
	NotificationTriggerDeletionScheduled NotificationTrigger = "deletion.scheduled"
	NotificationTriggerDeletionCommitted NotificationTrigger = "deletion.committed"
	NotificationTriggerDeletionCancelled NotificationTrigger = "deletion.cancelled"
	NotificationTriggerDeletionFailed    NotificationTrigger = "deletion.failed"
)

type NotificationMethod string

const (
	NotificationMethodAuto       NotificationMethod = "auto"
	NotificationMethodLog        NotificationMethod = "log"
	NotificationMethodNotifySend NotificationMethod = "notify-send"
	NotificationMethodDunstify   NotificationMethod = "dunstify"
	NotificationMethodBell       NotificationMethod = "bell"
)

type NotificationSettings struct {
	Enabled             bool                  `json:"enabled" toml:"enabled"`
	Triggers            []NotificationTrigger `json:"triggers,omitempty" toml:"triggers,omitempty"`
	Methods             []NotificationMethod  `json:"methods,omitempty" toml:"methods,omitempty"`
	DedupeWindowSeconds int                   `json:"dedupe_window_seconds,omitempty" toml:"dedupe_window_seconds,omitempty"`
}

// NotificationEvent is advisory: nothing in it flows back into deletion state.
type NotificationEvent struct {
	Trigger    NotificationTrigger `json:"trigger"`
	OccurredAt string              `json:"occurred_at"`
	Scope      Scope               `json:"scope"`
	Token      string              `json:"token,omitempty"`
	Count      int                 `json:"count"`
	Items      []ItemRef           `json:"items,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled: true,
		Triggers: []NotificationTrigger{
			NotificationTriggerDeletionScheduled,
			NotificationTriggerDeletionCommitted,
			NotificationTriggerDeletionCancelled,
			NotificationTriggerDeletionFailed,
		},
		Methods:             []NotificationMethod{NotificationMethodLog},
		DedupeWindowSeconds: 2,
	}
}

func CloneNotificationSettings(in NotificationSettings) NotificationSettings {
	out := in
	if in.Triggers != nil {
		out.Triggers = append([]NotificationTrigger{}, in.Triggers...)
	}
	if in.Methods != nil {
		out.Methods = append([]NotificationMethod{}, in.Methods...)
	}
	return out
}

func NormalizeNotificationSettings(in NotificationSettings) NotificationSettings {
	out := in
	out.Triggers = normalizeNotificationTriggers(in.Triggers)
	if len(out.Triggers) == 0 {
		out.Triggers = append([]NotificationTrigger{}, DefaultNotificationSettings().Triggers...)
	}
	out.Methods = normalizeNotificationMethods(in.Methods)
	if len(out.Methods) == 0 {
		out.Methods = append([]NotificationMethod{}, DefaultNotificationSettings().Methods...)
	}
	if out.DedupeWindowSeconds < 0 {
		out.DedupeWindowSeconds = 0
	}
	return out
}

func normalizeNotificationTriggers(values []NotificationTrigger) []NotificationTrigger {
	if len(values) == 0 {
		return nil
	}
	seen := map[NotificationTrigger]struct{}{}
	out := make([]NotificationTrigger, 0, len(values))
	for _, value := range values {
		normalized, ok := NormalizeNotificationTrigger(string(value))
		if !ok {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func normalizeNotificationMethods(values []NotificationMethod) []NotificationMethod {
	if len(values) == 0 {
		return nil
	}
	seen := map[NotificationMethod]struct{}{}
	out := make([]NotificationMethod, 0, len(values))
	for _, value := range values {
		normalized, ok := NormalizeNotificationMethod(string(value))
		if !ok {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}

func NormalizeNotificationTrigger(raw string) (NotificationTrigger, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "deletion.scheduled", "deletion_scheduled", "deletion-scheduled", "scheduled":
		return NotificationTriggerDeletionScheduled, true
	case "deletion.committed", "deletion_committed", "deletion-committed", "committed":
		return NotificationTriggerDeletionCommitted, true
	case "deletion.cancelled", "deletion_cancelled", "deletion-cancelled", "cancelled", "canceled":
		return NotificationTriggerDeletionCancelled, true
	case "deletion.failed", "deletion_failed", "deletion-failed", "failed":
		return NotificationTriggerDeletionFailed, true
	default:
		return "", false
	}
}

func NormalizeNotificationMethod(raw string) (NotificationMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "auto":
		return NotificationMethodAuto, true
	case "log":
		return NotificationMethodLog, true
	case "notify-send", "notify_send", "notifysend":
		return NotificationMethodNotifySend, true
	case "dunstify":
		return NotificationMethodDunstify, true
	case "bell", "terminal-bell", "terminal_bell":
		return NotificationMethodBell, true
	default:
		return "", false
	}
}

func NotificationTriggerEnabled(settings NotificationSettings, trigger NotificationTrigger) bool {
	for _, candidate := range settings.Triggers {
		if candidate == trigger {
			return true
		}
	}
	return false
}

func NotificationTriggerForState(state EpisodeState) (NotificationTrigger, bool) {
	switch state {
	case EpisodeScheduled:
		return NotificationTriggerDeletionScheduled, true
	case EpisodeCommitted:
		return NotificationTriggerDeletionCommitted, true
	case EpisodeCancelled:
		return NotificationTriggerDeletionCancelled, true
	case EpisodeFailed:
		return NotificationTriggerDeletionFailed, true
	default:
		return "", false
	}
}
