package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

type cacheRepoStub struct {
	values    map[string][]byte
	getErr    error
	deleteErr error
	deleted   []string
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	if c.deleteErr != nil {
		return c.deleteErr
	}
	c.deleted = append(c.deleted, pattern)
	return nil
}

func TestCacheServiceHitMissAndMetrics(t *testing.T) {
	repo := &cacheRepoStub{values: map[string][]byte{}}
	metrics := NewMetricsService()
	cache := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)

	var out map[string]int
	hit, err := cache.GetOwned(context.Background(), "o", "dashboard:", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.SetOwned(context.Background(), "o", "dashboard:", map[string]int{"entries": 3}, 0))
	assert.Contains(t, repo.values, "analytics:o:dashboard:")
	hit, err = cache.GetOwned(context.Background(), "o", "dashboard:", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 3, out["entries"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
	assert.InDelta(t, 0.5, snapshot.CacheHitRatio, 1e-9)
}

func TestCacheServiceInvalidateOwnerIsScoped(t *testing.T) {
	repo := &cacheRepoStub{values: map[string][]byte{}}
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	require.NoError(t, cache.SetOwned(context.Background(), "owner-a", "dashboard:", 1, 0))
	require.NoError(t, cache.SetOwned(context.Background(), "owner-b", "dashboard:", 2, 0))
	require.NoError(t, cache.InvalidateOwner(context.Background(), "owner-a"))

	assert.Equal(t, []string{"analytics:owner-a:*"}, repo.deleted)
	var out int
	hit, err := cache.GetOwned(context.Background(), "owner-b", "dashboard:", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 2, out)
}

func TestCacheServiceInvalidateOwnerReportsFailure(t *testing.T) {
	repo := &cacheRepoStub{values: map[string][]byte{}, deleteErr: errors.New("redis down")}
	cache := NewCacheService(repo, nil, 0, zap.NewNop(), true)

	assert.EqualError(t, cache.InvalidateOwner(context.Background(), "owner-a"), "redis down")
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &cacheRepoStub{values: map[string][]byte{}, getErr: errors.New("unreachable")}
	cache := NewCacheService(repo, nil, 0, zap.NewNop(), false)

	hit, err := cache.Get(context.Background(), "k", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, cache.InvalidateOwner(context.Background(), "o"))
	assert.Empty(t, repo.deleted)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	hit, err = nilCache.GetOwned(context.Background(), "o", "dashboard:", &struct{}{})
	assert.NoError(t, err)
	assert.False(t, hit)
}

func TestMetricsServiceCountersAndHandler(t *testing.T) {
	metrics := NewMetricsService()
	metrics.RecordEntry()
	metrics.RecordEntry()
	metrics.RecordSeed("created")
	metrics.RecordReportJob("habits", "FINISHED")
	metrics.ObserveHTTPRequest("GET", "/api/v1/students", 200, 20*time.Millisecond)
	metrics.ObserveDBQuery("analytics_entries", 4*time.Millisecond)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(2), snapshot.EntriesRecorded)
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.Equal(t, uint64(1), snapshot.DBQueryCount)
	assert.InDelta(t, 20.0, snapshot.AverageRequestDurationMs, 0.001)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "habit_entries_recorded_total 2")
	assert.Contains(t, string(body), `demo_seed_runs_total{outcome="created"} 1`)
	assert.Contains(t, string(body), `report_jobs_total{status="FINISHED",type="habits"} 1`)

	var nilMetrics *MetricsService
	nilMetrics.RecordEntry()
	assert.Zero(t, nilMetrics.Snapshot().EntriesRecorded)
}
