package coordinator

import (
	"sync/atomic"
	"time"

	"reprieve/internal/types"
)

var episodeStates = [...]types.EpisodeState{
	types.EpisodeScheduled,
	types.EpisodeCommitting,
	types.EpisodeCommitted,
	types.EpisodeCancelled,
	types.EpisodeFailed,
}

func stateIndex(state types.EpisodeState) int32 {
	for i, candidate := range episodeStates {
		if candidate == state {
			return int32(i)
		}
	}
	return -1
}

// episode is one deferred deletion. state moves only through transition;
// every other field is guarded by Coordinator.mu.
type episode struct {
	scope types.Scope
	token string
	state atomic.Int32

	items    types.PendingSet
	deadline time.Time
	timer    Timer
	gen      uint64

	// successor collects refs requested while this episode is committing.
	// It is armed once this episode reaches a terminal state.
	successor      *episode
	flushRequested bool

	err  error
	done chan struct{}
}

func newEpisode(scope types.Scope, token string) *episode {
	ep := &episode{scope: scope, token: token, done: make(chan struct{})}
	ep.state.Store(stateIndex(types.EpisodeScheduled))
	return ep
}

func (e *episode) State() types.EpisodeState {
	return episodeStates[e.state.Load()]
}

// transition moves the episode from one state to another atomically. Exactly
// one of several racing callers wins; the rest get false.
func (e *episode) transition(from, to types.EpisodeState) bool {
	return e.state.CompareAndSwap(stateIndex(from), stateIndex(to))
}

func (e *episode) stopTimer() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.gen++
}

func (e *episode) snapshot(now time.Time) types.EpisodeSnapshot {
	snap := types.EpisodeSnapshot{
		Scope:     e.scope,
		Token:     e.token,
		Items:     e.items.Refs(),
		Deadline:  e.deadline,
		State:     e.State(),
		UpdatedAt: now,
	}
	if e.err != nil {
		snap.Error = e.err.Error()
	}
	return snap
}
