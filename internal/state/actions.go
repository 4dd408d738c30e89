package state

import "reprieve/internal/types"

// Action is a discrete, serializable intent applied by the reducer.
type Action interface {
	ActionName() string
	ActionScope() types.Scope
}

// ListLoaded replaces the source list snapshot for a scope.
type ListLoaded struct {
	Scope types.Scope
	List  types.SourceList
}

// ListPageAppended appends the next page of a paginated source list.
type ListPageAppended struct {
	Scope types.Scope
	Page  types.SourceList
}

// MarkPending hides refs immediately, ahead of the deletion commit.
type MarkPending struct {
	Scope types.Scope
	Items []types.ItemRef
}

// UnmarkPending restores refs after an undo.
type UnmarkPending struct {
	Scope types.Scope
	Items []types.ItemRef
}

// RestorePending restores refs after a failed storage delete.
type RestorePending struct {
	Scope types.Scope
	Items []types.ItemRef
	Error string
}

// FinalizeDeletion drops committed refs from both the source list and the
// pending set.
type FinalizeDeletion struct {
	Scope types.Scope
	Items []types.ItemRef
}

// EpisodeChanged mirrors the coordinator's episode state for presentation.
type EpisodeChanged struct {
	Episode types.EpisodeSnapshot
}

func (ListLoaded) ActionName() string       { return "list_loaded" }
func (ListPageAppended) ActionName() string { return "list_page_appended" }
func (MarkPending) ActionName() string      { return "mark_pending" }
func (UnmarkPending) ActionName() string    { return "unmark_pending" }
func (RestorePending) ActionName() string   { return "restore_pending" }
func (FinalizeDeletion) ActionName() string { return "finalize_deletion" }
func (EpisodeChanged) ActionName() string   { return "episode_changed" }

func (a ListLoaded) ActionScope() types.Scope       { return a.Scope }
func (a ListPageAppended) ActionScope() types.Scope { return a.Scope }
func (a MarkPending) ActionScope() types.Scope      { return a.Scope }
func (a UnmarkPending) ActionScope() types.Scope    { return a.Scope }
func (a RestorePending) ActionScope() types.Scope   { return a.Scope }
func (a FinalizeDeletion) ActionScope() types.Scope { return a.Scope }
func (a EpisodeChanged) ActionScope() types.Scope   { return a.Episode.Scope }
