package types

import "time"

type EpisodeState string

const (
	EpisodeScheduled  EpisodeState = "scheduled"
	EpisodeCommitting EpisodeState = "committing"
	EpisodeCommitted  EpisodeState = "committed"
	EpisodeCancelled  EpisodeState = "cancelled"
	EpisodeFailed     EpisodeState = "failed"
)

func (s EpisodeState) Live() bool {
	return s == EpisodeScheduled || s == EpisodeCommitting
}

func (s EpisodeState) Terminal() bool {
	switch s {
	case EpisodeCommitted, EpisodeCancelled, EpisodeFailed:
		return true
	default:
		return false
	}
}

// EpisodeSnapshot is a read-only copy of a deletion episode, mirrored into
// the state store for presentation.
type EpisodeSnapshot struct {
	Scope     Scope        `json:"scope"`
	Token     string       `json:"token"`
	Items     []ItemRef    `json:"items"`
	Deadline  time.Time    `json:"deadline"`
	State     EpisodeState `json:"state"`
	Error     string       `json:"error,omitempty"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func CloneEpisodeSnapshot(in EpisodeSnapshot) EpisodeSnapshot {
	out := in
	out.Items = append([]ItemRef(nil), in.Items...)
	return out
}
