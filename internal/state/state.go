package state

import (
	"sort"

	"reprieve/internal/reconcile"
	"reprieve/internal/types"
)

// State is the store's value. Maps are shared between revisions and replaced
// rather than modified, so a State handed to a subscriber must be treated as
// read-only.
type State struct {
	Seq       uint64
	Lists     map[types.Scope]types.SourceList
	Pending   map[types.Scope]types.PendingSet
	Episodes  map[types.Scope]types.EpisodeSnapshot
	LastError map[types.Scope]string
}

func (s State) List(scope types.Scope) types.SourceList {
	if list, ok := s.Lists[scope]; ok {
		return list
	}
	return types.SourceList{Scope: scope}
}

func (s State) PendingFor(scope types.Scope) types.PendingSet {
	return s.Pending[scope]
}

func (s State) Episode(scope types.Scope) (types.EpisodeSnapshot, bool) {
	episode, ok := s.Episodes[scope]
	return episode, ok
}

// Visible reconciles the scope's source list against its pending set.
func (s State) Visible(scope types.Scope, bucket reconcile.Bucketer) types.VisibleList {
	return reconcile.Reconcile(s.List(scope), s.PendingFor(scope), bucket)
}

// Scopes lists every scope with a list, pending set or episode, sorted.
func (s State) Scopes() []types.Scope {
	seen := map[types.Scope]struct{}{}
	for scope := range s.Lists {
		seen[scope] = struct{}{}
	}
	for scope := range s.Pending {
		seen[scope] = struct{}{}
	}
	for scope := range s.Episodes {
		seen[scope] = struct{}{}
	}
	out := make([]types.Scope, 0, len(seen))
	for scope := range seen {
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
