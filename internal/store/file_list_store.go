package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"reprieve/internal/types"
)

const listSchemaVersion = 1

type FileListRepository struct {
	path string
	mu   sync.Mutex
}

type listFile struct {
	Version int                              `json:"version"`
	Lists   map[types.Scope]types.SourceList `json:"lists"`
}

func NewFileListRepository(path string) *FileListRepository {
	return &FileListRepository{path: path}
}

func (s *FileListRepository) Scopes(ctx context.Context) ([]types.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]types.Scope, 0, len(file.Lists))
	for scope := range file.Lists {
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *FileListRepository) Load(ctx context.Context, scope types.Scope) (types.SourceList, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return types.SourceList{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return types.SourceList{}, err
	}
	list, ok := file.Lists[scope]
	if !ok {
		return types.SourceList{}, fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
	}
	return cloneSourceList(list), nil
}

func (s *FileListRepository) Page(ctx context.Context, scope types.Scope, cursor string, limit int) (types.SourceList, error) {
	list, err := s.Load(ctx, scope)
	if err != nil {
		return types.SourceList{}, err
	}
	return paginate(list, cursor, limit)
}

func (s *FileListRepository) Save(ctx context.Context, list types.SourceList) error {
	scope, err := normalizeScope(list.Scope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	list = cloneSourceList(list)
	list.Scope = scope
	file.Lists[scope] = list
	return s.save(file)
}

// DeleteItems removes refs from the scope's list. Refs that are already gone
// are ignored, so a retried delete succeeds.
func (s *FileListRepository) DeleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	list, ok := file.Lists[scope]
	if !ok {
		return fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
	}
	file.Lists[scope] = cloneSourceList(list.WithoutRefs(refs))
	if err := s.save(file); err != nil {
		return fmt.Errorf("write lists: %w", err)
	}
	return nil
}

func (s *FileListRepository) Backend() string {
	return RepositoryBackendFile
}

func (s *FileListRepository) Close() error {
	return nil
}

func (s *FileListRepository) load() (*listFile, error) {
	file := newListFile()
	if err := readJSON(s.path, file); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return newListFile(), nil
		}
		return nil, err
	}
	if file.Version == 0 {
		file.Version = listSchemaVersion
	}
	if file.Lists == nil {
		file.Lists = map[types.Scope]types.SourceList{}
	}
	return file, nil
}

func (s *FileListRepository) save(file *listFile) error {
	file.Version = listSchemaVersion
	return writeJSONAtomic(s.path, file)
}

func newListFile() *listFile {
	return &listFile{Version: listSchemaVersion, Lists: map[types.Scope]types.SourceList{}}
}
