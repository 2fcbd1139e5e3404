package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

const analyticsKeyPrefix = "analytics"

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheMetrics interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// CacheService stores analytics payloads per owner. Every key lives under
// analytics:<owner>: so one owner's writes never evict another owner's views.
// A disabled or nil service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    cacheMetrics
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool
}

// NewCacheService constructs a cache service. metrics may be nil.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &CacheService{repo: repo, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
	if metrics != nil {
		s.metrics = metrics
	}
	return s
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// ownerKey builds analytics:<owner>:<view>.
func ownerKey(ownerID, view string) string {
	return strings.Join([]string{analyticsKeyPrefix, ownerID, view}, ":")
}

func ownerPattern(ownerID string) string {
	return ownerKey(ownerID, "*")
}

// GetOwned loads one of the owner's cached views into dest.
func (s *CacheService) GetOwned(ctx context.Context, ownerID, view string, dest interface{}) (bool, error) {
	return s.Get(ctx, ownerKey(ownerID, view), dest)
}

// SetOwned caches one of the owner's views. A ttl of zero uses the default.
func (s *CacheService) SetOwned(ctx context.Context, ownerID, view string, value interface{}, ttl time.Duration) error {
	return s.Set(ctx, ownerKey(ownerID, view), value, ttl)
}

// InvalidateOwner drops every cached view of the owner. It runs after each
// roster or entry write.
func (s *CacheService) InvalidateOwner(ctx context.Context, ownerID string) error {
	if err := s.Invalidate(ctx, ownerPattern(ownerID)); err != nil {
		s.logger.Warn("analytics cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
		return err
	}
	return nil
}

// Get reports whether key was found. A miss is not an error.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.recordRead(err == nil, time.Since(start))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, appErrors.ErrCacheMiss):
		return false, nil
	default:
		s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false, err
	}
}

// Set stores value under key.
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl)
	if s.metrics != nil {
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return err
}

// Invalidate removes every key matching pattern.
func (s *CacheService) Invalidate(ctx context.Context, pattern string) error {
	if !s.Enabled() {
		return nil
	}
	return s.repo.DeleteByPattern(ctx, pattern)
}

func (s *CacheService) recordRead(hit bool, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(hit, d)
	}
}
