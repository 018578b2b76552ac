package repository

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pingcap/errors"
)

const DefaultCacheSize = 1024

// CachingRepository memoizes FindVersions lookups of another repository in a
// bounded LRU. It is safe for concurrent use; the cache belongs to whoever
// constructs it and lives as long as they keep it.
type CachingRepository struct {
	inner Repository
	cache *lru.Cache[string, []*Package]
}

var _ Repository = (*CachingRepository)(nil)

func NewCachingRepository(inner Repository, size int) (*CachingRepository, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []*Package](size)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create LRU cache")
	}
	return &CachingRepository{inner: inner, cache: cache}, nil
}

func (r *CachingRepository) String() string {
	return fmt.Sprintf("CachingRepository(%v)", r.inner)
}

func (r *CachingRepository) ID() string {
	return r.inner.ID()
}

func (r *CachingRepository) FetchPackages(ctx context.Context) ([]*Package, error) {
	return r.inner.FetchPackages(ctx) //nolint:wrapcheck
}

func (r *CachingRepository) FindVersions(ctx context.Context, id string) ([]*Package, error) {
	key := NormalizeID(id)
	if pkgs, ok := r.cache.Get(key); ok {
		return slices.Clone(pkgs), nil
	}
	pkgs, err := r.inner.FindVersions(ctx, id)
	if err != nil {
		// failures are not cached; a later lookup retries
		return nil, errors.AddStack(err)
	}
	r.cache.Add(key, slices.Clone(pkgs))
	slog.Debug("cached package versions", "package", id, "count", len(pkgs))
	return pkgs, nil
}

// Purge drops every cached lookup.
func (r *CachingRepository) Purge() {
	r.cache.Purge()
}

func (r *CachingRepository) Len() int {
	return r.cache.Len()
}
