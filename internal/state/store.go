// Package state holds the single store through which list and pending-deletion
// state changes. All mutation goes through Dispatch; readers observe whole
// states only.
package state

import (
	"sync"

	"reprieve/internal/logging"
)

type subscriber struct {
	id uint64
	fn func(State)
}

// Store serializes every reduction through one mutex, so concurrent Dispatch
// calls are applied and published in a single total order.
type Store struct {
	mu          sync.Mutex
	state       State
	subscribers []subscriber
	nextID      uint64
	logger      logging.Logger
}

func NewStore(initial State, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Store{state: initial, logger: logger}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch reduces action into the current state and publishes the result to
// every subscriber before returning. Subscribers run on the dispatching
// goroutine while the store is locked: they must not call Dispatch themselves.
func (s *Store) Dispatch(action Action) State {
	if action == nil {
		return s.State()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Reduce(s.state, action)
	next.Seq = s.state.Seq + 1
	s.state = next
	if s.logger.Enabled(logging.Debug) {
		s.logger.Debug("state_dispatch",
			logging.F("action", action.ActionName()),
			logging.F("scope", action.ActionScope()),
			logging.F("seq", next.Seq),
			logging.F("pending_revision", next.PendingFor(action.ActionScope()).Revision()),
		)
	}
	for _, sub := range s.subscribers {
		sub.fn(next)
	}
	return next
}

// Subscribe registers fn for every subsequent state. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(State)) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			kept := make([]subscriber, 0, len(s.subscribers))
			for _, sub := range s.subscribers {
				if sub.id != id {
					kept = append(kept, sub)
				}
			}
			s.subscribers = kept
		})
	}
}
