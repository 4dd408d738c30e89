// Package store is the storage collaborator: it owns the authoritative source
// list of every scope and performs the irreversible delete.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"reprieve/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

var ErrScopeNotFound = errors.New("scope not found")

type ListRepository interface {
	Scopes(ctx context.Context) ([]types.Scope, error)
	Load(ctx context.Context, scope types.Scope) (types.SourceList, error)
	Page(ctx context.Context, scope types.Scope, cursor string, limit int) (types.SourceList, error)
	Save(ctx context.Context, list types.SourceList) error
	DeleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) error
	Backend() string
	Close() error
}

type RepositoryPaths struct {
	ListsPath string
	DBPath    string
}

func OpenRepository(paths RepositoryPaths, backend string) (ListRepository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		if strings.TrimSpace(paths.DBPath) == "" {
			return nil, errors.New("db path is required for bbolt repository")
		}
		return NewBboltListRepository(paths.DBPath)
	case RepositoryBackendFile:
		if strings.TrimSpace(paths.ListsPath) == "" {
			return nil, errors.New("lists path is required for file repository")
		}
		return NewFileListRepository(paths.ListsPath), nil
	default:
		return nil, errors.New("unsupported repository backend: " + backend)
	}
}

// SeedRepositoryFromFiles copies file-backed lists into dst when dst holds
// none, so switching the backend to bbolt keeps existing data.
func SeedRepositoryFromFiles(ctx context.Context, dst ListRepository, paths RepositoryPaths) error {
	if dst == nil || dst.Backend() == RepositoryBackendFile || strings.TrimSpace(paths.ListsPath) == "" {
		return nil
	}
	current, err := dst.Scopes(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		return nil
	}
	src := NewFileListRepository(paths.ListsPath)
	defer src.Close()
	legacy, err := src.Scopes(ctx)
	if err != nil {
		return err
	}
	for _, scope := range legacy {
		list, err := src.Load(ctx, scope)
		if err != nil {
			return err
		}
		if err := dst.Save(ctx, list); err != nil {
			return err
		}
	}
	return nil
}

// paginate slices list into one page. The cursor is the key of the last entry
// already loaded and the page continues after it. A cursor whose entry has
// since been deleted restarts from the top; callers append pages by entry id
// and drop what they already hold.
func paginate(list types.SourceList, cursor string, limit int) (types.SourceList, error) {
	offset := 0
	if raw := strings.TrimSpace(cursor); raw != "" {
		if _, err := types.ParseItemRef(raw); err != nil {
			return types.SourceList{}, fmt.Errorf("invalid cursor %q: %w", cursor, err)
		}
		for i, entry := range list.Entries {
			if entry.Key() == raw {
				offset = i + 1
				break
			}
		}
	}
	end := len(list.Entries)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	page := types.SourceList{Scope: list.Scope}
	page.Entries = make([]types.Entry, 0, end-offset)
	for _, entry := range list.Entries[offset:end] {
		page.Entries = append(page.Entries, types.CloneEntry(entry))
	}
	if end < len(list.Entries) {
		page.HasMore = true
		page.Cursor = list.Entries[end-1].Key()
	}
	return page, nil
}

func normalizeScope(scope types.Scope) (types.Scope, error) {
	normalized, ok := types.NormalizeScope(string(scope))
	if !ok {
		return "", fmt.Errorf("invalid scope %q", scope)
	}
	return normalized, nil
}

func cloneSourceList(list types.SourceList) types.SourceList {
	out := types.CloneSourceList(list)
	out.Version = 0
	out.Cursor = ""
	out.HasMore = false
	if out.Entries == nil {
		out.Entries = []types.Entry{}
	}
	return out
}
