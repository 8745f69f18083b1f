package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
	"github.com/noah-isme/studytrack-api/pkg/kv"
)

// CacheRepository stores cached payloads as JSON in the key-value store.
type CacheRepository struct {
	store  kv.Store
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(store kv.Store, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{store: store, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.store == nil {
		return appErrors.ErrCacheMiss
	}
	if err := kv.GetJSON(ctx, r.store, key, dest); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return appErrors.ErrCacheMiss
		}
		return err
	}
	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.store == nil {
		return nil
	}
	return kv.SetJSON(ctx, r.store, key, value, ttl)
}

// DeleteByPattern removes cached entries. Only trailing-wildcard patterns such as
// "aggregate:*" are supported; anything else deletes the exact key.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) error {
	if r.store == nil {
		return nil
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return r.store.DeletePrefix(ctx, prefix)
	}
	return r.store.Delete(ctx, pattern)
}
