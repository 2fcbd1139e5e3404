package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
	"github.com/noah-isme/workhabits-api/pkg/jobs"
	"github.com/noah-isme/workhabits-api/pkg/storage"
)

type reportJobStore interface {
	Create(ctx context.Context, job *models.ReportJob) error
	GetByID(ctx context.Context, ownerID, id string) (*models.ReportJob, error)
	Update(ctx context.Context, id string, params models.ReportJobUpdate) error
	ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type exportGenerator interface {
	Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error)
}

type reportExporter interface {
	exportGenerator
	ParseToken(token string, allowExpired bool) (storage.Grant, error)
	ContentType(format models.ReportFormat) string
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	Cleanup(ttl time.Duration) ([]string, error)
}

type reportMetrics interface {
	RecordReportJob(reportType, status string)
}

// ReportRequest asks for an asynchronous export.
type ReportRequest struct {
	Type      models.ReportType   `json:"type" validate:"required,oneof=habits students trends entries"`
	Format    models.ReportFormat `json:"format" validate:"required,oneof=csv pdf"`
	StudentID *string             `json:"studentId" validate:"omitnil,min=1"`
}

// ReportStatusResponse is the client view of a job.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	ExpiresAt   time.Time
}

// ReportServiceConfig governs queue recovery and cleanup.
type ReportServiceConfig struct {
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportService orchestrates report job lifecycle management.
type ReportService struct {
	repo      reportJobStore
	students  entryStudentRepository
	queue     jobDispatcher
	exporter  reportExporter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(repo reportJobStore, students entryStudentRepository, queue jobDispatcher, exporter reportExporter, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ReportService{
		repo:      repo,
		students:  students,
		queue:     queue,
		exporter:  exporter,
		validator: NewValidator(),
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateJob validates the request, persists the job and enqueues processing.
func (s *ReportService) CreateJob(ctx context.Context, ownerID string, req ReportRequest) (*ReportStatusResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid report request")
	}
	if req.StudentID != nil {
		if _, err := s.students.FindByID(ctx, ownerID, *req.StudentID); err != nil {
			return nil, lookupError(err, "student not found", "failed to load student")
		}
	}

	job := &models.ReportJob{
		Type:     req.Type,
		Params:   models.ReportJobParams{Format: req.Format, StudentID: req.StudentID},
		Status:   models.ReportStatusQueued,
		Progress: 0,
		OwnerID:  ownerID,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, internalError(err, "failed to create report job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type), Payload: ownerID}); err != nil {
		status := models.ReportStatusFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		_ = s.repo.Update(ctx, job.ID, models.ReportJobUpdate{
			Status:       &status,
			Progress:     &progress,
			ErrorMessage: &msg,
			FinishedAt:   &now,
		})
		return nil, internalError(err, "failed to enqueue report job")
	}
	return toReportStatus(job), nil
}

// GetStatus exposes job metadata to its owner.
func (s *ReportService) GetStatus(ctx context.Context, ownerID, id string) (*ReportStatusResponse, error) {
	job, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	return toReportStatus(job), nil
}

// ResolveDownload validates the token and opens the stored export file.
func (s *ReportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	grant, err := s.exporter.ParseToken(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.repo.GetByID(ctx, grant.OwnerID, grant.JobID)
	if err != nil {
		return nil, lookupError(err, "report job not found", "failed to load report job")
	}
	if job.ResultURL == nil || extractToken(*job.ResultURL) != token {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	if job.Status != models.ReportStatusFinished {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	file, err := s.exporter.Open(grant.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export file expired")
		}
		return nil, internalError(err, "failed to open export file")
	}
	return &ReportDownload{
		File:        file,
		Filename:    filepath.Base(grant.Path),
		ContentType: s.exporter.ContentType(job.Params.Format),
		ExpiresAt:   grant.ExpiresAt,
	}, nil
}

// RecoverPendingJobs replays queued jobs after a process restart.
func (s *ReportService) RecoverPendingJobs(ctx context.Context) {
	pending, err := s.repo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to recover queued report jobs", zap.Error(err))
		return
	}
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: string(job.Type), Payload: job.OwnerID}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// StartCleanup boots a goroutine that purges expired exports until ctx ends.
func (s *ReportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.cleanupExpired(ctx)
			}
		}
	}()
}

func (s *ReportService) cleanupExpired(ctx context.Context) {
	cutoff := time.Now().Add(-s.cfg.ResultTTL)
	jobs, err := s.repo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("cleanup list failed", zap.Error(err))
		return
	}
	for _, job := range jobs {
		if job.ResultURL == nil {
			continue
		}
		grant, err := s.exporter.ParseToken(extractToken(*job.ResultURL), true)
		if err != nil {
			continue
		}
		if err := s.exporter.Delete(grant.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if _, err := s.exporter.Cleanup(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
}

func toReportStatus(job *models.ReportJob) *ReportStatusResponse {
	resp := &ReportStatusResponse{
		ID:        job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Progress:  job.Progress,
		ResultURL: job.ResultURL,
	}
	if job.ErrorMessage != nil && *job.ErrorMessage != "" {
		resp.Error = job.ErrorMessage
	}
	return resp
}

func extractToken(url string) string {
	if url == "" {
		return ""
	}
	return url[strings.LastIndex(url, "/")+1:]
}

// ReportWorker bridges queue jobs to ExportService.
type ReportWorker struct {
	repo     reportJobStore
	exporter exportGenerator
	metrics  reportMetrics
	logger   *zap.Logger
}

// NewReportWorker constructs a worker.
func NewReportWorker(repo reportJobStore, exporter exportGenerator, metrics reportMetrics, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportWorker{repo: repo, exporter: exporter, metrics: metrics, logger: logger}
}

// Handle processes a queue job. Failures leave the job QUEUED with the error
// recorded so the queue can retry it.
func (w *ReportWorker) Handle(ctx context.Context, job jobs.Job) error {
	ownerID, _ := job.Payload.(string)
	record, err := w.repo.GetByID(ctx, ownerID, job.ID)
	if err != nil {
		return err
	}
	processing := models.ReportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, models.ReportJobUpdate{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	result, err := w.exporter.Generate(ctx, record)
	if err != nil {
		queued := models.ReportStatusQueued
		reset := 0
		msg := err.Error()
		if updateErr := w.repo.Update(ctx, job.ID, models.ReportJobUpdate{
			Status:       &queued,
			Progress:     &reset,
			ErrorMessage: &msg,
		}); updateErr != nil {
			w.logger.Warn("failed to mark job queued", zap.String("job_id", job.ID), zap.Error(updateErr))
		}
		return err
	}

	finished := models.ReportStatusFinished
	progress = 100
	now := time.Now().UTC()
	url := result.URL
	clear := ""
	if err := w.repo.Update(ctx, job.ID, models.ReportJobUpdate{
		Status:       &finished,
		Progress:     &progress,
		ResultURL:    &url,
		ErrorMessage: &clear,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job finished", zap.String("job_id", job.ID), zap.Error(err))
		return err
	}
	w.record(job.Type, finished)
	return nil
}

// Fail marks a job FAILED once the queue has given up on it.
func (w *ReportWorker) Fail(ctx context.Context, job jobs.Job, cause error) {
	failed := models.ReportStatusFailed
	progress := 100
	now := time.Now().UTC()
	msg := cause.Error()
	if err := w.repo.Update(ctx, job.ID, models.ReportJobUpdate{
		Status:       &failed,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &now,
	}); err != nil {
		w.logger.Warn("failed to mark job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	w.record(job.Type, failed)
}

func (w *ReportWorker) record(reportType string, status models.ReportStatus) {
	if w.metrics != nil {
		w.metrics.RecordReportJob(reportType, string(status))
	}
}
