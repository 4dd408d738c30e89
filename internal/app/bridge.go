package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"reprieve/internal/state"
)

type stateMsg struct {
	state state.State
}

// storeBridge hands store states to the bubbletea loop. Subscribers run with
// the store locked, so the bridge only records the latest state and signals;
// intermediate states are coalesced.
type storeBridge struct {
	mu     sync.Mutex
	latest state.State
	have   bool

	signal      chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()
}

func newStoreBridge(store *state.Store) *storeBridge {
	b := &storeBridge{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	b.unsubscribe = store.Subscribe(b.offer)
	return b
}

func (b *storeBridge) offer(s state.State) {
	b.mu.Lock()
	if !b.have || s.Seq >= b.latest.Seq {
		b.latest = s
		b.have = true
	}
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *storeBridge) take() (state.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.have {
		return state.State{}, false
	}
	s := b.latest
	b.have = false
	return s, true
}

// wait blocks until a new state is available. It returns nil once the bridge
// is closed.
func (b *storeBridge) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			if s, ok := b.take(); ok {
				return stateMsg{state: s}
			}
			select {
			case <-b.signal:
			case <-b.done:
				return nil
			}
		}
	}
}

func (b *storeBridge) Close() {
	b.closeOnce.Do(func() {
		if b.unsubscribe != nil {
			b.unsubscribe()
		}
		close(b.done)
	})
}
