package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, ownerID, id string) error
}

type studentEntryRemover interface {
	DeleteByStudent(ctx context.Context, ownerID, studentID string) (int64, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateStudentRequest holds payload for creating students.
type CreateStudentRequest struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	StudentID *string `json:"studentId"`
	Grade     *string `json:"grade"`
	Active    *bool   `json:"active"`
}

// UpdateStudentRequest holds a partial student update. Nil fields are left
// untouched.
type UpdateStudentRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	StudentID *string `json:"studentId"`
	Grade     *string `json:"grade"`
	Active    *bool   `json:"active"`
}

// studentRecord is the validated shape shared by create and merged updates.
type studentRecord struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	StudentID *string `json:"studentId" validate:"omitnil,max=50"`
	Grade     *string `json:"grade" validate:"omitnil,max=20"`
}

// StudentDeleteResult reports what a cascading delete removed.
type StudentDeleteResult struct {
	StudentID      string `json:"studentId"`
	EntriesDeleted int64  `json:"entriesDeleted"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	entries   studentEntryRemover
	audit     auditRecorder
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service. entries, audit and cache
// are optional.
func NewStudentService(repo studentRepository, entries studentEntryRemover, audit auditRecorder, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, entries: entries, audit: audit, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 50
	}
	students, total, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list students")
	}
	return students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// ListActive returns every active student ordered by last name, the roster
// offered by the entry form.
func (s *StudentService) ListActive(ctx context.Context, ownerID string) ([]models.Student, error) {
	active := true
	students, _, err := s.repo.List(ctx, ownerID, models.StudentFilter{Active: &active, SortBy: "last_name", SortOrder: "asc"})
	if err != nil {
		return nil, internalError(err, "failed to list active students")
	}
	return students, nil
}

// Get returns a single owned student.
func (s *StudentService) Get(ctx context.Context, ownerID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, ownerID string, req CreateStudentRequest) (*models.Student, error) {
	record := studentRecord{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		StudentID: trimmedOrNil(req.StudentID),
		Grade:     trimmedOrNil(req.Grade),
	}
	if err := s.validator.Struct(record); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	student := &models.Student{
		FirstName:     record.FirstName,
		LastName:      record.LastName,
		StudentNumber: record.StudentID,
		Grade:         record.Grade,
		Active:        active,
		OwnerID:       ownerID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, internalError(err, "failed to create student")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)
	return student, nil
}

// Update applies a partial update and validates the merged record.
func (s *StudentService) Update(ctx context.Context, ownerID, id string, req UpdateStudentRequest) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}

	record := studentRecord{
		FirstName: student.FirstName,
		LastName:  student.LastName,
		StudentID: student.StudentNumber,
		Grade:     student.Grade,
	}
	if req.FirstName != nil {
		record.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		record.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.StudentID != nil {
		record.StudentID = trimmedOrNil(req.StudentID)
	}
	if req.Grade != nil {
		record.Grade = trimmedOrNil(req.Grade)
	}
	if err := s.validator.Struct(record); err != nil {
		return nil, appErrors.Validation(err, "invalid student payload")
	}

	student.FirstName = record.FirstName
	student.LastName = record.LastName
	student.StudentNumber = record.StudentID
	student.Grade = record.Grade
	if req.Active != nil {
		student.Active = *req.Active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, lookupError(err, "student not found", "failed to update student")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)
	return student, nil
}

// SetActive sets the active flag. A nil value flips the current state.
func (s *StudentService) SetActive(ctx context.Context, ownerID, id string, active *bool) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	if active == nil {
		student.Active = !student.Active
	} else {
		student.Active = *active
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, lookupError(err, "student not found", "failed to update student")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)
	return student, nil
}

// Delete removes a student after deleting every entry recorded for it.
func (s *StudentService) Delete(ctx context.Context, ownerID, id string, meta models.AuditContext) (*StudentDeleteResult, error) {
	student, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}

	result := &StudentDeleteResult{StudentID: student.ID}
	if s.entries != nil {
		removed, err := s.entries.DeleteByStudent(ctx, ownerID, student.ID)
		if err != nil {
			return nil, internalError(err, "failed to delete student entries")
		}
		result.EntriesDeleted = removed
	}
	if err := s.repo.Delete(ctx, ownerID, student.ID); err != nil {
		return nil, lookupError(err, "student not found", "failed to delete student")
	}
	invalidateAnalytics(ctx, s.cache, ownerID)

	if s.audit != nil {
		values := marshalAuditValues(map[string]interface{}{
			"name":           student.FullName(),
			"entriesDeleted": result.EntriesDeleted,
		})
		entry := models.NewAuditLog(ownerID, models.AuditActionStudentDelete, "student", student.ID, values, meta)
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record student delete audit log", zap.Error(err))
		}
	}
	return result, nil
}
