package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"reprieve/internal/types"
)

var bucketLists = []byte("lists")

type BboltListRepository struct {
	db *bolt.DB
}

func NewBboltListRepository(path string) (*BboltListRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BboltListRepository{db: db}, nil
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLists)
		return err
	})
}

func (r *BboltListRepository) Scopes(ctx context.Context) ([]types.Scope, error) {
	out := make([]types.Scope, 0)
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketLists)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			out = append(out, types.Scope(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BboltListRepository) Load(ctx context.Context, scope types.Scope) (types.SourceList, error) {
	scope, err := normalizeScope(scope)
	if err != nil {
		return types.SourceList{}, err
	}
	var list types.SourceList
	err = r.db.View(func(tx *bolt.Tx) error {
		var err error
		list, err = getList(tx, scope)
		return err
	})
	if err != nil {
		return types.SourceList{}, err
	}
	return cloneSourceList(list), nil
}

func (r *BboltListRepository) Page(ctx context.Context, scope types.Scope, cursor string, limit int) (types.SourceList, error) {
	list, err := r.Load(ctx, scope)
	if err != nil {
		return types.SourceList{}, err
	}
	return paginate(list, cursor, limit)
}

func (r *BboltListRepository) Save(ctx context.Context, list types.SourceList) error {
	scope, err := normalizeScope(list.Scope)
	if err != nil {
		return err
	}
	list = cloneSourceList(list)
	list.Scope = scope
	return r.db.Update(func(tx *bolt.Tx) error {
		return putList(tx, list)
	})
}

// DeleteItems removes refs from the scope's list inside one transaction.
// Refs that are already gone are ignored.
func (r *BboltListRepository) DeleteItems(ctx context.Context, scope types.Scope, refs []types.ItemRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	scope, err := normalizeScope(scope)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		list, err := getList(tx, scope)
		if err != nil {
			return err
		}
		return putList(tx, list.WithoutRefs(refs))
	})
}

func (r *BboltListRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *BboltListRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func getList(tx *bolt.Tx, scope types.Scope) (types.SourceList, error) {
	b := tx.Bucket(bucketLists)
	if b == nil {
		return types.SourceList{}, errors.New("lists bucket missing")
	}
	raw := b.Get([]byte(scope))
	if raw == nil {
		return types.SourceList{}, fmt.Errorf("%w: %s", ErrScopeNotFound, scope)
	}
	var list types.SourceList
	if err := json.Unmarshal(raw, &list); err != nil {
		return types.SourceList{}, fmt.Errorf("decode %s list: %w", scope, err)
	}
	return list, nil
}

func putList(tx *bolt.Tx, list types.SourceList) error {
	b := tx.Bucket(bucketLists)
	if b == nil {
		return errors.New("lists bucket missing")
	}
	raw, err := json.Marshal(cloneSourceList(list))
	if err != nil {
		return err
	}
	return b.Put([]byte(list.Scope), raw)
}
