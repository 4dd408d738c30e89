package state

import (
	"maps"

	"reprieve/internal/types"
)

// Reduce applies action to s and returns the next state. It is total and
// free of side effects: unknown actions return s unchanged and s itself is
// never modified.
func Reduce(s State, action Action) State {
	switch a := action.(type) {
	case ListLoaded:
		list := types.CloneSourceList(a.List)
		list.Scope = a.Scope
		list.Version = s.List(a.Scope).Version + 1
		return s.withList(a.Scope, list)
	case ListPageAppended:
		return s.withList(a.Scope, appendPage(s.List(a.Scope), a.Page))
	case MarkPending:
		return s.withPending(a.Scope, s.PendingFor(a.Scope).With(a.Items...))
	case UnmarkPending:
		return s.withPending(a.Scope, s.PendingFor(a.Scope).Without(a.Items...))
	case RestorePending:
		next := s.withPending(a.Scope, s.PendingFor(a.Scope).Without(a.Items...))
		return next.withLastError(a.Scope, a.Error)
	case FinalizeDeletion:
		current := s.List(a.Scope)
		list := current.WithoutRefs(a.Items)
		list.Scope = a.Scope
		list.Cursor = retreatCursor(list, current.Cursor)
		list.Version = current.Version + 1
		next := s.withList(a.Scope, list)
		return next.withPending(a.Scope, s.PendingFor(a.Scope).Without(a.Items...))
	case EpisodeChanged:
		return s.withEpisode(types.CloneEpisodeSnapshot(a.Episode))
	default:
		return s
	}
}

func appendPage(current types.SourceList, page types.SourceList) types.SourceList {
	out := types.CloneSourceList(current)
	seen := make(map[string]struct{}, len(out.Entries))
	for _, entry := range out.Entries {
		seen[entry.ID()] = struct{}{}
	}
	for _, entry := range page.Entries {
		if _, ok := seen[entry.ID()]; ok {
			continue
		}
		seen[entry.ID()] = struct{}{}
		out.Entries = append(out.Entries, types.CloneEntry(entry))
	}
	out.Cursor = page.Cursor
	out.HasMore = page.HasMore
	out.Version = current.Version + 1
	return out
}

// retreatCursor keeps the page cursor on an entry that still exists. When the
// cursor's entry was deleted it moves back to the last surviving loaded entry;
// with nothing left it stays put and the next page restarts from the top.
func retreatCursor(list types.SourceList, cursor string) string {
	if cursor == "" || len(list.Entries) == 0 {
		return cursor
	}
	for _, entry := range list.Entries {
		if entry.Key() == cursor {
			return cursor
		}
	}
	return list.Entries[len(list.Entries)-1].Key()
}

func (s State) withList(scope types.Scope, list types.SourceList) State {
	next := s
	next.Lists = maps.Clone(s.Lists)
	if next.Lists == nil {
		next.Lists = map[types.Scope]types.SourceList{}
	}
	next.Lists[scope] = list
	return next
}

func (s State) withPending(scope types.Scope, pending types.PendingSet) State {
	if existing, ok := s.Pending[scope]; ok && existing.Revision() == pending.Revision() {
		return s
	}
	next := s
	next.Pending = maps.Clone(s.Pending)
	if next.Pending == nil {
		next.Pending = map[types.Scope]types.PendingSet{}
	}
	next.Pending[scope] = pending
	return next
}

func (s State) withEpisode(episode types.EpisodeSnapshot) State {
	next := s
	next.Episodes = maps.Clone(s.Episodes)
	if next.Episodes == nil {
		next.Episodes = map[types.Scope]types.EpisodeSnapshot{}
	}
	next.Episodes[episode.Scope] = episode
	return next
}

func (s State) withLastError(scope types.Scope, message string) State {
	next := s
	next.LastError = maps.Clone(s.LastError)
	if next.LastError == nil {
		next.LastError = map[types.Scope]string{}
	}
	if message == "" {
		delete(next.LastError, scope)
	} else {
		next.LastError[scope] = message
	}
	return next
}
