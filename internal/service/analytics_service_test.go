package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

func ratedEntry(id, studentID string, date time.Time, values map[models.HabitKey]int) models.HabitEntry {
	e := models.HabitEntry{ID: id, StudentID: studentID, OwnerID: ownerA, EntryDate: date.UnixMilli()}
	for k, v := range values {
		e.Set(k, intPtr(v))
	}
	return e
}

func analyticsFixture() (*memStudentRepo, *memEntryRepo) {
	students := newMemStudentRepo(
		models.Student{ID: "s1", FirstName: "Emma", LastName: "Johnson", Active: true, OwnerID: ownerA},
		models.Student{ID: "s2", FirstName: "Liam", LastName: "Williams", Active: true, OwnerID: ownerA},
	)
	may := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	june := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	entries := newMemEntryRepo(
		ratedEntry("e1", "s1", may, map[models.HabitKey]int{models.HabitAttention: 2, models.HabitWorkPace: 4}),
		ratedEntry("e2", "s2", june, map[models.HabitKey]int{models.HabitAttention: 4, models.HabitWorkPace: 4}),
	)
	return students, entries
}

func TestAnalyticsServiceDashboard(t *testing.T) {
	students, entries := analyticsFixture()
	cache := newCacheSpy()
	metrics := &counterSpy{}
	svc := NewAnalyticsService(students, entries, cache, metrics, AnalyticsConfig{CacheTTL: time.Minute}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }

	dashboard, hit, err := svc.Dashboard(context.Background(), ownerA, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, dashboard.Summary.TotalStudents)
	assert.Equal(t, 2, dashboard.Summary.TotalEntries)
	assert.Equal(t, 1, dashboard.Summary.EntriesThisMonth)
	assert.Equal(t, "3.50", dashboard.Overall.String())
	require.Len(t, dashboard.Trends, 2)
	assert.Equal(t, "2024-05", dashboard.Trends[0].Month)
	require.Len(t, dashboard.Ranking, 2)
	assert.Equal(t, "s2", dashboard.Ranking[0].StudentID)
	assert.Len(t, dashboard.Habits, len(models.HabitKeys))
	assert.Len(t, dashboard.Skills, 2)
	assert.ElementsMatch(t, []string{"analytics_students", "analytics_entries"}, metrics.queries)

	cached, hit, err := svc.Dashboard(context.Background(), ownerA, "")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, dashboard.Overall, cached.Overall)
	assert.Equal(t, dashboard.Ranking, cached.Ranking)
}

func TestAnalyticsServiceDashboardStudentScope(t *testing.T) {
	students, entries := analyticsFixture()
	svc := NewAnalyticsService(students, entries, nil, nil, AnalyticsConfig{}, nil)

	dashboard, _, err := svc.Dashboard(context.Background(), ownerA, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", dashboard.StudentID)
	assert.Equal(t, "3.00", dashboard.Overall.String())
	assert.Len(t, dashboard.Ranking, 2)
	require.Len(t, dashboard.Recent, 1)
	assert.Equal(t, "e1", dashboard.Recent[0].EntryID)

	_, _, err = svc.Dashboard(context.Background(), ownerB, "s1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAnalyticsServiceDashboardEmpty(t *testing.T) {
	svc := NewAnalyticsService(newMemStudentRepo(), newMemEntryRepo(), nil, nil, AnalyticsConfig{}, nil)

	dashboard, _, err := svc.Dashboard(context.Background(), ownerA, "")
	require.NoError(t, err)
	assert.False(t, dashboard.Overall.Valid())
	assert.Empty(t, dashboard.Ranking)
	assert.Empty(t, dashboard.Trends)
	for _, h := range dashboard.Habits {
		assert.Equal(t, analytics.StatusNoData, h.Status)
		assert.Zero(t, h.Count)
	}
}

func TestAnalyticsServiceCacheFailureRecomputes(t *testing.T) {
	students, entries := analyticsFixture()
	cache := newCacheSpy()
	cache.getErr = errors.New("redis down")
	svc := NewAnalyticsService(students, entries, cache, nil, AnalyticsConfig{}, nil)

	dashboard, hit, err := svc.Dashboard(context.Background(), ownerA, "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "3.50", dashboard.Overall.String())
}

func TestAnalyticsServiceLoadFailure(t *testing.T) {
	students, entries := analyticsFixture()
	students.listErr = errors.New("boom")
	svc := NewAnalyticsService(students, entries, nil, nil, AnalyticsConfig{}, nil)

	_, _, err := svc.Dashboard(context.Background(), ownerA, "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestAnalyticsServiceStudentOverview(t *testing.T) {
	students, entries := analyticsFixture()
	svc := NewAnalyticsService(students, entries, nil, nil, AnalyticsConfig{}, nil)

	overview, err := svc.StudentOverview(context.Background(), ownerA, "s2")
	require.NoError(t, err)
	assert.Equal(t, 1, overview.Entries)
	assert.Equal(t, "4.00", overview.Average.String())
	require.NotNil(t, overview.LastEntryDate)

	_, err = svc.StudentOverview(context.Background(), ownerA, "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
