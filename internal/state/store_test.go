package state

import (
	"fmt"
	"sync"
	"testing"

	"reprieve/internal/logging"
	"reprieve/internal/types"
)

func TestStoreDispatchPublishesBeforeReturning(t *testing.T) {
	store := NewStore(State{}, logging.Nop())
	store.Dispatch(ListLoaded{Scope: types.ScopeHistory, List: sampleList()})

	var seen State
	unsubscribe := store.Subscribe(func(s State) { seen = s })
	defer unsubscribe()

	store.Dispatch(MarkPending{Scope: types.ScopeHistory, Items: []types.ItemRef{types.LeafRef("b")}})
	if seen.Visible(types.ScopeHistory, nil).Contains(types.LeafRef("b")) {
		t.Fatalf("subscriber did not observe pending item before dispatch returned")
	}
}

func TestStoreSubscribersObserveTotalOrder(t *testing.T) {
	store := NewStore(State{}, logging.Nop())
	var (
		mu   sync.Mutex
		seqs []uint64
	)
	store.Subscribe(func(s State) {
		mu.Lock()
		seqs = append(seqs, s.Seq)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				store.Dispatch(MarkPending{
					Scope: types.ScopeHistory,
					Items: []types.ItemRef{types.LeafRef(fmt.Sprintf("w%d-%d", worker, j))},
				})
			}
		}(i)
	}
	wg.Wait()

	if len(seqs) != 400 {
		t.Fatalf("expected 400 publications, got %d", len(seqs))
	}
	for i, seq := range seqs {
		if seq != uint64(i+1) {
			t.Fatalf("publication %d had seq %d", i, seq)
		}
	}
	if got := store.State().PendingFor(types.ScopeHistory).Len(); got != 400 {
		t.Fatalf("expected 400 pending refs, got %d", got)
	}
}

func TestStoreUnsubscribe(t *testing.T) {
	store := NewStore(State{}, nil)
	calls := 0
	unsubscribe := store.Subscribe(func(State) { calls++ })
	store.Dispatch(MarkPending{Scope: types.ScopeTabs, Items: []types.ItemRef{types.LeafRef("a")}})
	unsubscribe()
	unsubscribe()
	store.Dispatch(MarkPending{Scope: types.ScopeTabs, Items: []types.ItemRef{types.LeafRef("b")}})
	if calls != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}
