package state

import (
	"reflect"
	"testing"

	"reprieve/internal/types"
)

func sampleList() types.SourceList {
	return types.SourceList{
		Entries: []types.Entry{
			types.GroupEntry(types.Group{ID: "g", Items: []types.Item{{ID: "a1"}, {ID: "a2"}}}),
			types.ItemEntry(types.Item{ID: "b"}),
		},
	}
}

func TestReduceListLoadedBumpsVersion(t *testing.T) {
	s := Reduce(State{}, ListLoaded{Scope: types.ScopeHistory, List: sampleList()})
	if got := s.List(types.ScopeHistory); got.Version != 1 || got.Scope != types.ScopeHistory || len(got.Entries) != 2 {
		t.Fatalf("unexpected list: %#v", got)
	}
	s = Reduce(s, ListLoaded{Scope: types.ScopeHistory, List: sampleList()})
	if got := s.List(types.ScopeHistory).Version; got != 2 {
		t.Fatalf("expected version 2, got %d", got)
	}
}

func TestReduceDoesNotModifyInput(t *testing.T) {
	base := Reduce(State{}, ListLoaded{Scope: types.ScopeHistory, List: sampleList()})
	base = Reduce(base, MarkPending{Scope: types.ScopeHistory, Items: []types.ItemRef{types.LeafRef("b")}})
	snapshotLists := types.CloneSourceList(base.List(types.ScopeHistory))
	snapshotPending := base.PendingFor(types.ScopeHistory).Refs()

	_ = Reduce(base, FinalizeDeletion{Scope: types.ScopeHistory, Items: []types.ItemRef{types.LeafRef("b")}})
	_ = Reduce(base, MarkPending{Scope: types.ScopeHistory, Items: []types.ItemRef{types.MemberRef("g", "a1")}})

	if !reflect.DeepEqual(snapshotLists, base.List(types.ScopeHistory)) {
		t.Fatalf("list mutated by reducer")
	}
	if !reflect.DeepEqual(snapshotPending, base.PendingFor(types.ScopeHistory).Refs()) {
		t.Fatalf("pending mutated by reducer")
	}
}

func TestReducePendingLifecycle(t *testing.T) {
	scope := types.ScopeHistory
	s := Reduce(State{}, ListLoaded{Scope: scope, List: sampleList()})
	s = Reduce(s, MarkPending{Scope: scope, Items: []types.ItemRef{types.MemberRef("g", "a1"), types.LeafRef("b")}})
	if s.PendingFor(scope).Len() != 2 {
		t.Fatalf("expected 2 pending, got %v", s.PendingFor(scope).Refs())
	}
	rev := s.PendingFor(scope).Revision()

	s = Reduce(s, UnmarkPending{Scope: scope, Items: []types.ItemRef{types.LeafRef("b")}})
	if s.PendingFor(scope).Has(types.LeafRef("b")) || s.PendingFor(scope).Revision() <= rev {
		t.Fatalf("unmark did not advance: %#v", s.PendingFor(scope).Refs())
	}

	s = Reduce(s, FinalizeDeletion{Scope: scope, Items: []types.ItemRef{types.MemberRef("g", "a1")}})
	if !s.PendingFor(scope).Empty() {
		t.Fatalf("expected pending cleared, got %v", s.PendingFor(scope).Refs())
	}
	list := s.List(scope)
	if len(list.Entries) != 2 || len(list.Entries[0].Group.Items) != 1 {
		t.Fatalf("expected a1 removed from source list: %#v", list.Entries)
	}
	if list.Version != 2 {
		t.Fatalf("expected finalize to bump list version, got %d", list.Version)
	}
}

func TestReduceRestorePendingRecordsError(t *testing.T) {
	scope := types.ScopeDownloads
	s := Reduce(State{}, MarkPending{Scope: scope, Items: []types.ItemRef{types.LeafRef("b")}})
	s = Reduce(s, RestorePending{Scope: scope, Items: []types.ItemRef{types.LeafRef("b")}, Error: "disk full"})
	if !s.PendingFor(scope).Empty() {
		t.Fatalf("expected pending cleared after restore")
	}
	if s.LastError[scope] != "disk full" {
		t.Fatalf("expected last error recorded, got %q", s.LastError[scope])
	}
}

func TestReduceAppendPageSkipsDuplicates(t *testing.T) {
	scope := types.ScopeHistory
	s := Reduce(State{}, ListLoaded{Scope: scope, List: types.SourceList{
		Entries: []types.Entry{types.ItemEntry(types.Item{ID: "a"})},
		Cursor:  "p1",
		HasMore: true,
	}})
	s = Reduce(s, ListPageAppended{Scope: scope, Page: types.SourceList{
		Entries: []types.Entry{types.ItemEntry(types.Item{ID: "a"}), types.ItemEntry(types.Item{ID: "b"})},
		Cursor:  "p2",
	}})
	list := s.List(scope)
	if len(list.Entries) != 2 || list.Entries[1].ID() != "b" {
		t.Fatalf("unexpected entries: %#v", list.Entries)
	}
	if list.HasMore || list.Cursor != "p2" || list.Version != 2 {
		t.Fatalf("unexpected paging state: %#v", list)
	}
}

type unknownAction struct{}

func (unknownAction) ActionName() string       { return "unknown" }
func (unknownAction) ActionScope() types.Scope { return "" }

func TestReduceUnknownActionIsNoop(t *testing.T) {
	s := Reduce(State{}, MarkPending{Scope: types.ScopeTabs, Items: []types.ItemRef{types.LeafRef("t")}})
	if got := Reduce(s, unknownAction{}); !reflect.DeepEqual(got, s) {
		t.Fatalf("unknown action changed state")
	}
}

func TestReduceEpisodeChangedMirrorsSnapshot(t *testing.T) {
	items := []types.ItemRef{types.LeafRef("b")}
	s := Reduce(State{}, EpisodeChanged{Episode: types.EpisodeSnapshot{
		Scope: types.ScopeHistory, Token: "tok", Items: items, State: types.EpisodeCommitting,
	}})
	items[0] = types.LeafRef("mutated")
	episode, ok := s.Episode(types.ScopeHistory)
	if !ok || episode.State != types.EpisodeCommitting || episode.Items[0] != types.LeafRef("b") {
		t.Fatalf("unexpected episode mirror: %#v", episode)
	}
}

func TestReduceFinalizeDeletionRetreatsPageCursor(t *testing.T) {
	scope := types.ScopeHistory
	s := Reduce(State{}, ListLoaded{Scope: scope, List: types.SourceList{
		Entries: []types.Entry{
			types.ItemEntry(types.Item{ID: "a"}),
			types.ItemEntry(types.Item{ID: "b"}),
			types.ItemEntry(types.Item{ID: "c"}),
		},
		Cursor:  "c",
		HasMore: true,
	}})

	kept := Reduce(s, FinalizeDeletion{Scope: scope, Items: []types.ItemRef{types.LeafRef("a")}})
	if kept.List(scope).Cursor != "c" {
		t.Fatalf("expected cursor to stay on surviving entry, got %q", kept.List(scope).Cursor)
	}

	moved := Reduce(s, FinalizeDeletion{Scope: scope, Items: []types.ItemRef{types.LeafRef("b"), types.LeafRef("c")}})
	if moved.List(scope).Cursor != "a" || !moved.List(scope).HasMore {
		t.Fatalf("expected cursor to move back to a, got %#v", moved.List(scope))
	}

	emptied := Reduce(s, FinalizeDeletion{Scope: scope, Items: []types.ItemRef{
		types.LeafRef("a"), types.LeafRef("b"), types.LeafRef("c"),
	}})
	if emptied.List(scope).Cursor != "c" {
		t.Fatalf("expected cursor kept when nothing survives, got %q", emptied.List(scope).Cursor)
	}
}
