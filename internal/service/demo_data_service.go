package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

const (
	demoEntriesPerStudent = 20
	demoEntrySpacing      = 36 * time.Hour
	demoNote              = "Great progress this week!"
)

type demoStudentRepository interface {
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Create(ctx context.Context, student *models.Student) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

type demoEntryRepository interface {
	Create(ctx context.Context, entry *models.HabitEntry) error
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
}

type demoMetrics interface {
	RecordSeed(outcome string)
}

type demoStudent struct {
	FirstName string
	LastName  string
	Number    string
	Grade     string
}

var demoRoster = []demoStudent{
	{FirstName: "Emma", LastName: "Johnson", Number: "STU001", Grade: "5th"},
	{FirstName: "Liam", LastName: "Williams", Number: "STU002", Grade: "5th"},
	{FirstName: "Olivia", LastName: "Brown", Number: "STU003", Grade: "6th"},
	{FirstName: "Noah", LastName: "Davis", Number: "STU004", Grade: "6th"},
	{FirstName: "Ava", LastName: "Miller", Number: "STU005", Grade: "5th"},
}

// SeedResult reports the outcome of a seed attempt.
type SeedResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	StudentsCreated int    `json:"studentsCreated"`
	EntriesCreated  int    `json:"entriesCreated"`
}

// ClearResult reports how many records a clear removed.
type ClearResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	StudentsDeleted int64  `json:"studentsDeleted"`
	EntriesDeleted  int64  `json:"entriesDeleted"`
}

// DemoDataService seeds and clears sample data for an owner.
type DemoDataService struct {
	students demoStudentRepository
	entries  demoEntryRepository
	audit    auditRecorder
	cache    cacheInvalidator
	metrics  demoMetrics
	logger   *zap.Logger

	mu   sync.Mutex
	rand *rand.Rand
	now  func() time.Time
}

// NewDemoDataService constructs the seeder. A nil rng is seeded from the clock.
func NewDemoDataService(students demoStudentRepository, entries demoEntryRepository, audit auditRecorder, cache cacheInvalidator, metrics demoMetrics, rng *rand.Rand, logger *zap.Logger) *DemoDataService {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoDataService{
		students: students,
		entries:  entries,
		audit:    audit,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		rand:     rng,
		now:      time.Now,
	}
}

// Seed creates the demo roster and entries. It refuses with a CONFLICT error
// and a zero-count result when the owner already has students. Creates are
// independent; a failure part way leaves the records created so far.
func (s *DemoDataService) Seed(ctx context.Context, ownerID string, meta models.AuditContext) (*SeedResult, error) {
	existing, err := s.students.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError(err, "failed to check existing students")
	}
	if existing > 0 {
		s.recordSeed("refused")
		result := &SeedResult{Message: "Demo data already exists. Clear your data first to reseed."}
		return result, appErrors.Clone(appErrors.ErrConflict, result.Message)
	}

	result := &SeedResult{}
	defer invalidateAnalytics(ctx, s.cache, ownerID)

	created := make([]*models.Student, 0, len(demoRoster))
	for _, d := range demoRoster {
		number, grade := d.Number, d.Grade
		student := &models.Student{
			FirstName:     d.FirstName,
			LastName:      d.LastName,
			StudentNumber: &number,
			Grade:         &grade,
			Active:        true,
			OwnerID:       ownerID,
		}
		if err := s.students.Create(ctx, student); err != nil {
			s.recordSeed("failed")
			return result, internalError(err, "failed to seed demo students")
		}
		created = append(created, student)
		result.StudentsCreated++
	}

	dates := demoEntryDates(s.now(), demoEntriesPerStudent)
	for studentIndex, student := range created {
		for entryIndex, date := range dates {
			entry := &models.HabitEntry{
				StudentID:    student.ID,
				OwnerID:      ownerID,
				EntryDate:    date,
				HabitRatings: s.demoRatings(studentIndex, entryIndex),
			}
			if entryIndex%5 == 0 {
				note := demoNote
				entry.Notes = &note
			}
			if err := s.entries.Create(ctx, entry); err != nil {
				s.recordSeed("failed")
				return result, internalError(err, "failed to seed demo entries")
			}
			result.EntriesCreated++
		}
	}

	result.Success = true
	result.Message = "Demo data created successfully!"
	s.recordSeed("created")
	s.recordAudit(ctx, ownerID, models.AuditActionDemoSeed, map[string]interface{}{
		"studentsCreated": result.StudentsCreated,
		"entriesCreated":  result.EntriesCreated,
	}, meta)
	s.logger.Info("demo data seeded",
		zap.String("owner_id", ownerID),
		zap.Int("students", result.StudentsCreated),
		zap.Int("entries", result.EntriesCreated),
	)
	return result, nil
}

// Clear deletes every entry and then every student the owner has.
func (s *DemoDataService) Clear(ctx context.Context, ownerID string, meta models.AuditContext) (*ClearResult, error) {
	entries, err := s.entries.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError(err, "failed to clear habit entries")
	}
	students, err := s.students.DeleteByOwner(ctx, ownerID)
	if err != nil {
		return nil, internalError(err, "failed to clear students")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)

	s.recordAudit(ctx, ownerID, models.AuditActionDemoClear, map[string]interface{}{
		"studentsDeleted": students,
		"entriesDeleted":  entries,
	}, meta)
	return &ClearResult{
		Success:         true,
		Message:         "All data cleared successfully",
		StudentsDeleted: students,
		EntriesDeleted:  entries,
	}, nil
}

// demoEntryDates spaces count entries 1.5 days apart ending at now, oldest first.
func demoEntryDates(now time.Time, count int) []int64 {
	dates := make([]int64, count)
	for i := 0; i < count; i++ {
		dates[count-1-i] = now.Add(-time.Duration(i) * demoEntrySpacing).UnixMilli()
	}
	return dates
}

type scoreProfile struct {
	base     float64
	variance float64
}

func demoProfile(studentIndex, entryIndex int) scoreProfile {
	switch studentIndex % 5 {
	case 0:
		return scoreProfile{base: 3.5, variance: 0.7}
	case 1:
		return scoreProfile{base: 2.3, variance: 0.8}
	case 2:
		return scoreProfile{base: 3.8, variance: 0.4}
	case 3:
		return scoreProfile{base: 2.8, variance: 1.2}
	default:
		// improves steadily over the period
		return scoreProfile{base: 2.5 + float64(entryIndex)*0.15, variance: 0.6}
	}
}

func (s *DemoDataService) demoRatings(studentIndex, entryIndex int) models.HabitRatings {
	profile := demoProfile(studentIndex, entryIndex)

	s.mu.Lock()
	defer s.mu.Unlock()

	var ratings models.HabitRatings
	for i, key := range models.HabitKeys {
		modifier := math.Sin(float64(i+studentIndex)) * 0.5
		score := profile.base + modifier + (s.rand.Float64()-0.5)*profile.variance
		rating := int(math.Max(models.RatingMin, math.Min(models.RatingMax, math.Round(score))))
		ratings.Set(key, &rating)
	}
	return ratings
}

func (s *DemoDataService) recordSeed(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordSeed(outcome)
	}
}

func (s *DemoDataService) recordAudit(ctx context.Context, ownerID, action string, values map[string]interface{}, meta models.AuditContext) {
	if s.audit == nil {
		return
	}
	entry := models.NewAuditLog(ownerID, action, "demo_data", "", marshalAuditValues(values), meta)
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record demo data audit log", zap.String("action", action), zap.Error(err))
	}
}
