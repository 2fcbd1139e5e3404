package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/models"
)

type analyticsStudentReader interface {
	ListAll(ctx context.Context, ownerID string) ([]models.Student, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.Student, error)
}

type analyticsEntryReader interface {
	List(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, int, error)
}

type analyticsCache interface {
	GetOwned(ctx context.Context, ownerID, view string, dest interface{}) (bool, error)
	SetOwned(ctx context.Context, ownerID, view string, value interface{}, ttl time.Duration) error
}

type queryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// AnalyticsConfig tunes dashboard computation and caching.
type AnalyticsConfig struct {
	CacheTTL    time.Duration
	RecentLimit int
}

// AnalyticsService loads an owner's roster and entries and runs them through
// the aggregation engine, caching the composed dashboard per owner.
type AnalyticsService struct {
	students analyticsStudentReader
	entries  analyticsEntryReader
	cache    analyticsCache
	metrics  queryObserver
	config   AnalyticsConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewAnalyticsService constructs an analytics service. cache and metrics may be nil.
func NewAnalyticsService(students analyticsStudentReader, entries analyticsEntryReader, cache analyticsCache, metrics queryObserver, config AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = analytics.DefaultRecentLimit
	}
	return &AnalyticsService{
		students: students,
		entries:  entries,
		cache:    cache,
		metrics:  metrics,
		config:   config,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard returns every analytics view for the owner. A non-empty studentID
// scopes the per-habit views to that student. The boolean reports a cache hit.
func (s *AnalyticsService) Dashboard(ctx context.Context, ownerID, studentID string) (*analytics.Dashboard, bool, error) {
	if studentID != "" {
		if _, err := s.students.FindByID(ctx, ownerID, studentID); err != nil {
			return nil, false, lookupError(err, "student not found", "failed to load student")
		}
	}

	view := "dashboard:" + studentID
	if s.cache != nil {
		var cached analytics.Dashboard
		// cache failures degrade to a recompute
		if hit, err := s.cache.GetOwned(ctx, ownerID, view, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	students, entries, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, false, err
	}

	dashboard := analytics.BuildDashboard(students, entries, analytics.DashboardOptions{
		StudentID:   studentID,
		RecentLimit: s.config.RecentLimit,
		Now:         s.now(),
	})

	if s.cache != nil {
		if err := s.cache.SetOwned(ctx, ownerID, view, dashboard, s.config.CacheTTL); err != nil {
			s.logger.Warn("cache dashboard", zap.String("owner_id", ownerID), zap.Error(err))
		}
	}
	return &dashboard, false, nil
}

// StudentOverview summarises one student's entries for the entry form.
func (s *AnalyticsService) StudentOverview(ctx context.Context, ownerID, studentID string) (*analytics.StudentOverview, error) {
	if _, err := s.students.FindByID(ctx, ownerID, studentID); err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}

	start := time.Now()
	entries, _, err := s.entries.List(ctx, ownerID, models.HabitEntryFilter{StudentID: studentID})
	if err != nil {
		return nil, internalError(err, "failed to load habit entries")
	}
	s.observe("analytics_student_entries", start)

	overview := analytics.OverviewFor(studentID, entries)
	return &overview, nil
}

// load fetches the roster and every entry concurrently.
func (s *AnalyticsService) load(ctx context.Context, ownerID string) ([]models.Student, []models.HabitEntry, error) {
	var (
		students []models.Student
		entries  []models.HabitEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		list, err := s.students.ListAll(gctx, ownerID)
		if err != nil {
			return internalError(err, "failed to load students")
		}
		s.observe("analytics_students", start)
		students = list
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		list, _, err := s.entries.List(gctx, ownerID, models.HabitEntryFilter{SortBy: "entry_date", SortOrder: "asc"})
		if err != nil {
			return internalError(err, "failed to load habit entries")
		}
		s.observe("analytics_entries", start)
		entries = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return students, entries, nil
}

func (s *AnalyticsService) observe(label string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveDBQuery(label, time.Since(start))
	}
}
