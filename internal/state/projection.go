package state

import (
	"sync"

	"reprieve/internal/reconcile"
	"reprieve/internal/types"
)

// Projection caches the visible list of each scope. Results are stamped with
// the list version and pending revision they were computed from; a result
// older than the cached one is discarded.
type Projection struct {
	bucketer func() reconcile.Bucketer
	listener func(types.VisibleList)

	mu      sync.RWMutex
	visible map[types.Scope]types.VisibleList
}

// NewProjection builds a projection. bucketer is called per recomputation so
// relative buckets follow the clock; nil disables headers. listener, when
// set, receives every accepted visible list.
func NewProjection(bucketer func() reconcile.Bucketer, listener func(types.VisibleList)) *Projection {
	return &Projection{
		bucketer: bucketer,
		listener: listener,
		visible:  map[types.Scope]types.VisibleList{},
	}
}

// Attach subscribes the projection to store and primes it with the current
// state.
func (p *Projection) Attach(store *Store) func() {
	unsubscribe := store.Subscribe(p.Apply)
	p.Apply(store.State())
	return unsubscribe
}

// Apply recomputes every scope whose list or pending set changed.
func (p *Projection) Apply(s State) {
	for _, scope := range s.Scopes() {
		list := s.List(scope)
		pending := s.PendingFor(scope)
		if cached, ok := p.Visible(scope); ok && cached.ListVersion == list.Version && cached.PendingRevision == pending.Revision() {
			continue
		}
		p.Offer(reconcile.Reconcile(list, pending, p.currentBucketer()))
	}
}

// Offer stores v unless a result at least as recent is already cached.
func (p *Projection) Offer(v types.VisibleList) bool {
	p.mu.Lock()
	cached, ok := p.visible[v.Scope]
	if ok && !newer(v, cached) {
		p.mu.Unlock()
		return false
	}
	p.visible[v.Scope] = v
	p.mu.Unlock()
	if p.listener != nil {
		p.listener(v)
	}
	return true
}

// Refresh recomputes every scope regardless of revision, e.g. after the day
// rolls over and bucket labels change.
func (p *Projection) Refresh(s State) {
	bucket := p.currentBucketer()
	for _, scope := range s.Scopes() {
		v := reconcile.Reconcile(s.List(scope), s.PendingFor(scope), bucket)
		p.mu.Lock()
		if cached, ok := p.visible[scope]; ok && newer(cached, v) {
			p.mu.Unlock()
			continue
		}
		p.visible[scope] = v
		p.mu.Unlock()
		if p.listener != nil {
			p.listener(v)
		}
	}
}

func (p *Projection) Visible(scope types.Scope) (types.VisibleList, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.visible[scope]
	return v, ok
}

func (p *Projection) currentBucketer() reconcile.Bucketer {
	if p.bucketer == nil {
		return nil
	}
	return p.bucketer()
}

// newer reports whether a was computed from strictly more recent inputs than
// b. List versions and pending revisions only ever grow.
func newer(a, b types.VisibleList) bool {
	if a.ListVersion < b.ListVersion || a.PendingRevision < b.PendingRevision {
		return false
	}
	return a.ListVersion > b.ListVersion || a.PendingRevision > b.PendingRevision
}
