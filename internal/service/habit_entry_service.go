package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

type habitEntryRepository interface {
	List(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, int, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.HabitEntry, error)
	Create(ctx context.Context, entry *models.HabitEntry) error
	Update(ctx context.Context, entry *models.HabitEntry) error
	Delete(ctx context.Context, ownerID, id string) error
}

type entryStudentRepository interface {
	FindByID(ctx context.Context, ownerID, id string) (*models.Student, error)
	ListAll(ctx context.Context, ownerID string) ([]models.Student, error)
}

type entryMetrics interface {
	RecordEntry()
}

// CreateHabitEntryRequest is the payload for recording an entry. Ratings left
// out of the payload are stored as not assessed. Notes are trimmed before the
// length check.
type CreateHabitEntryRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	EntryDate int64  `json:"entryDate" validate:"required,gt=0"`
	models.HabitRatings
	Notes *string `json:"notes" validate:"omitnil,max=1000"`
}

// UpdateHabitEntryRequest is a partial entry update. Ratings present in the
// payload replace stored ones; absent ratings are kept.
type UpdateHabitEntryRequest struct {
	StudentID *string `json:"studentId" validate:"omitnil,min=1"`
	EntryDate *int64  `json:"entryDate" validate:"omitnil,gt=0"`
	models.HabitRatings
	Notes *string `json:"notes" validate:"omitnil,max=1000"`
}

// EntryPreview is the running average of a draft entry.
type EntryPreview struct {
	Average   float64          `json:"average"`
	Formatted string           `json:"formatted"`
	Status    analytics.Status `json:"status"`
	Rated     int              `json:"rated"`
}

// HabitEntryService handles recording and reviewing habit entries.
type HabitEntryService struct {
	repo      habitEntryRepository
	students  entryStudentRepository
	audit     auditRecorder
	cache     cacheInvalidator
	metrics   entryMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHabitEntryService constructs the habit entry service.
func NewHabitEntryService(repo habitEntryRepository, students entryStudentRepository, audit auditRecorder, cache cacheInvalidator, metrics entryMetrics, validate *validator.Validate, logger *zap.Logger) *HabitEntryService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HabitEntryService{repo: repo, students: students, audit: audit, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Create records a new entry for an owned student.
func (s *HabitEntryService) Create(ctx context.Context, ownerID string, req CreateHabitEntryRequest) (*models.HabitEntry, error) {
	req.Notes = trimmedOrNil(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid habit entry payload")
	}
	if err := s.ensureStudent(ctx, ownerID, req.StudentID); err != nil {
		return nil, err
	}

	entry := &models.HabitEntry{
		StudentID:    req.StudentID,
		OwnerID:      ownerID,
		EntryDate:    req.EntryDate,
		HabitRatings: req.HabitRatings,
		Notes:        req.Notes,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, internalError(err, "failed to create habit entry")
	}
	if s.metrics != nil {
		s.metrics.RecordEntry()
	}
	invalidateAnalytics(ctx, s.cache, ownerID)
	return entry, nil
}

// ListByStudent returns one student's entries, newest first unless the filter
// says otherwise.
func (s *HabitEntryService) ListByStudent(ctx context.Context, ownerID, studentID string, filter models.HabitEntryFilter) ([]models.HabitEntry, error) {
	if err := s.ensureStudent(ctx, ownerID, studentID); err != nil {
		return nil, err
	}
	filter.StudentID = studentID
	entries, _, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, internalError(err, "failed to list habit entries")
	}
	return entries, nil
}

// ListAll returns the owner's entries. Pagination is only reported when the
// filter carries a limit.
func (s *HabitEntryService) ListAll(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list habit entries")
	}
	if filter.Limit <= 0 {
		return entries, nil, nil
	}
	return entries, &models.Pagination{Page: filter.Offset/filter.Limit + 1, PageSize: filter.Limit, TotalCount: total}, nil
}

// Recent returns the latest entries with student names and per-entry averages.
func (s *HabitEntryService) Recent(ctx context.Context, ownerID string, limit int) ([]analytics.RecentEntry, error) {
	if limit <= 0 {
		limit = analytics.DefaultRecentLimit
	}
	entries, _, err := s.repo.List(ctx, ownerID, models.HabitEntryFilter{SortBy: "entry_date", SortOrder: "desc", Limit: limit})
	if err != nil {
		return nil, internalError(err, "failed to list recent entries")
	}
	students, err := s.students.ListAll(ctx, ownerID)
	if err != nil {
		return nil, internalError(err, "failed to load students")
	}
	return analytics.RecentEntries(entries, students, limit), nil
}

// Get returns one owned entry.
func (s *HabitEntryService) Get(ctx context.Context, ownerID, id string) (*models.HabitEntry, error) {
	entry, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "habit entry not found", "failed to load habit entry")
	}
	return entry, nil
}

// Update applies a partial update to an owned entry.
func (s *HabitEntryService) Update(ctx context.Context, ownerID, id string, req UpdateHabitEntryRequest) (*models.HabitEntry, error) {
	// blank notes clear the stored text
	notesProvided := req.Notes != nil
	req.Notes = trimmedOrNil(req.Notes)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid habit entry payload")
	}
	entry, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "habit entry not found", "failed to load habit entry")
	}

	if req.StudentID != nil && *req.StudentID != entry.StudentID {
		if err := s.ensureStudent(ctx, ownerID, *req.StudentID); err != nil {
			return nil, err
		}
		entry.StudentID = *req.StudentID
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}
	entry.HabitRatings.Merge(req.HabitRatings)
	if notesProvided {
		entry.Notes = req.Notes
	}

	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, lookupError(err, "habit entry not found", "failed to update habit entry")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)
	return entry, nil
}

// Delete removes one owned entry.
func (s *HabitEntryService) Delete(ctx context.Context, ownerID, id string, meta models.AuditContext) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return lookupError(err, "habit entry not found", "failed to delete habit entry")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)

	if s.audit != nil {
		entry := models.NewAuditLog(ownerID, models.AuditActionEntryDelete, "habit_entry", id, nil, meta)
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record entry delete audit log", zap.Error(err))
		}
	}
	return nil
}

// Preview computes the running average shown while an entry is being filled.
func (s *HabitEntryService) Preview(ratings models.HabitRatings) (*EntryPreview, error) {
	if err := s.validator.Struct(ratings); err != nil {
		return nil, appErrors.Validation(err, "invalid habit ratings")
	}
	avg, ok := analytics.LiveAverage(ratings)
	if !ok {
		return &EntryPreview{Status: analytics.StatusNoData}, nil
	}
	return &EntryPreview{
		Average:   avg,
		Formatted: analytics.FormatAverage(avg),
		Status:    analytics.Classify(avg),
		Rated:     len(ratings.Values()),
	}, nil
}

func (s *HabitEntryService) ensureStudent(ctx context.Context, ownerID, studentID string) error {
	if _, err := s.students.FindByID(ctx, ownerID, studentID); err != nil {
		return lookupError(err, "student not found", "failed to load student")
	}
	return nil
}
