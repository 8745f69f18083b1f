package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/studytrack-api/pkg/errors"
)

// Aggregate cache keys. Every key lives under aggregateKeyPrefix so one invalidation drops all.
const (
	aggregateKeyPrefix = "aggregate:"
	summaryCacheKey    = aggregateKeyPrefix + "summary"
)

// CacheRepository abstracts persistence for cached aggregates.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CacheService caches derived attendance aggregates.
//
// Readers take a Generation before computing and hand it back to StoreSummary. An
// invalidation in between bumps the generation, and the stale value is dropped instead of
// being cached until the TTL runs out.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	mu         sync.Mutex
	generation uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Generation returns the invalidation counter.
func (s *CacheService) Generation() uint64 {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// LoadSummary reads the cached summary into dest and reports whether it was a hit.
func (s *CacheService) LoadSummary(ctx context.Context, dest interface{}) (bool, error) {
	return s.get(ctx, summaryCacheKey, dest)
}

// StoreSummary caches summary unless the aggregates were invalidated after generation was
// taken. It reports whether the value was written.
func (s *CacheService) StoreSummary(ctx context.Context, summary interface{}, ttl time.Duration, generation uint64) (bool, error) {
	return s.set(ctx, summaryCacheKey, summary, ttl, generation)
}

// InvalidateAggregates drops every cached aggregate.
func (s *CacheService) InvalidateAggregates(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if !s.Enabled() {
		return nil
	}
	if err := s.repo.DeleteByPattern(ctx, aggregateKeyPrefix+"*"); err != nil {
		s.logger.Warn("cache invalidate failed", zap.String("prefix", aggregateKeyPrefix), zap.Error(err))
		return err
	}
	return nil
}

func (s *CacheService) get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return false, nil
		}
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}

func (s *CacheService) set(ctx context.Context, key string, value interface{}, ttl time.Duration, generation uint64) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.logger.Debug("skipping stale cache write", zap.String("key", key))
		return false, nil
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
	return true, nil
}
