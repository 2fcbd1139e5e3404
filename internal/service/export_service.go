package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/pkg/export"
	"github.com/noah-isme/workhabits-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets from an owner's habit data and
// persists the rendered files.
type ExportService struct {
	students  analyticsStudentReader
	entries   analyticsEntryReader
	storage   fileStorage
	renderers map[models.ReportFormat]export.Renderer
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
	now       func() time.Time
}

// NewExportService constructs an ExportService. Nil renderers fall back to
// the CSV and PDF exporters.
func NewExportService(students analyticsStudentReader, entries analyticsEntryReader, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf export.Renderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	svc := &ExportService{
		students: students,
		entries:  entries,
		storage:  storage,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter(func() string { return svc.now().UTC().Format(time.RFC1123) })
	}
	svc.renderers = map[models.ReportFormat]export.Renderer{
		models.ReportFormatCSV: csv,
		models.ReportFormatPDF: pdf,
	}
	return svc
}

// Generate builds the dataset for the job, renders it and stores the file
// under the owner's directory.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	renderer, ok := s.renderers[job.Params.Format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", job.Params.Format)
	}

	dataset, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}
	payload, err := renderer.Render(dataset)
	if err != nil {
		return nil, fmt.Errorf("render %s report: %w", job.Type, err)
	}

	relPath, err := s.storage.Save(s.buildFilename(job, renderer.Extension()), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, job.OwnerID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/export/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates a download token.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Grant, error) {
	return s.signer.Parse(token, allowExpired)
}

// ContentType reports the MIME type for a format.
func (s *ExportService) ContentType(format models.ReportFormat) string {
	if r, ok := s.renderers[format]; ok {
		return r.ContentType()
	}
	return "application/octet-stream"
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob, ext string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s_%s.%s",
		sanitizeFilename(job.OwnerID), strings.ToLower(string(job.Type)), timestamp, sanitizeFilename(job.ID), ext)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, error) {
	students, err := s.students.ListAll(ctx, job.OwnerID)
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load students: %w", err)
	}
	entries, _, err := s.entries.List(ctx, job.OwnerID, models.HabitEntryFilter{SortBy: "entry_date", SortOrder: "asc"})
	if err != nil {
		return export.Dataset{}, fmt.Errorf("load habit entries: %w", err)
	}

	scope := scopeNote(job.Params.StudentID, students)
	if job.Params.StudentID != nil && *job.Params.StudentID != "" {
		if scope == "" {
			return export.Dataset{}, fmt.Errorf("student %s not found", *job.Params.StudentID)
		}
		if job.Type != models.ReportTypeStudents {
			entries = analytics.ForStudent(entries, *job.Params.StudentID)
		}
	}

	var data export.Dataset
	switch job.Type {
	case models.ReportTypeHabits:
		data = habitsDataset(entries)
	case models.ReportTypeStudents:
		data = studentsDataset(entries, students)
	case models.ReportTypeTrends:
		data = trendsDataset(entries)
	case models.ReportTypeEntries:
		data = entriesDataset(entries, students)
	default:
		return export.Dataset{}, fmt.Errorf("unsupported report type %s", job.Type)
	}
	if scope != "" && job.Type != models.ReportTypeStudents {
		data.Notes = append([]string{scope}, data.Notes...)
	}
	return data, nil
}

func scopeNote(studentID *string, students []models.Student) string {
	if studentID == nil || *studentID == "" {
		return ""
	}
	for _, st := range students {
		if st.ID == *studentID {
			return "Student: " + st.FullName()
		}
	}
	return ""
}

func habitsDataset(entries []models.HabitEntry) export.Dataset {
	data := export.Dataset{
		Title:   "Habit Averages",
		Headers: []string{"Habit", "Average", "Ratings", "Status"},
		Notes:   []string{"Overall average: " + orDash(analytics.OverallAverage(entries).String())},
	}
	for _, h := range analytics.HabitAverages(entries) {
		avg := ""
		if h.Count > 0 {
			avg = analytics.FormatAverage(h.Average)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Habit":   h.Label,
			"Average": avg,
			"Ratings": strconv.Itoa(h.Count),
			"Status":  string(h.Status),
		})
	}
	return data
}

func studentsDataset(entries []models.HabitEntry, students []models.Student) export.Dataset {
	data := export.Dataset{
		Title:   "Student Ranking",
		Headers: []string{"Rank", "Student", "Average", "Entries", "Status"},
	}
	for i, score := range analytics.StudentRanking(entries, students) {
		data.Rows = append(data.Rows, map[string]string{
			"Rank":    strconv.Itoa(i + 1),
			"Student": score.Name,
			"Average": analytics.FormatAverage(score.Average),
			"Entries": strconv.Itoa(score.Entries),
			"Status":  string(score.Status),
		})
	}
	return data
}

func trendsDataset(entries []models.HabitEntry) export.Dataset {
	data := export.Dataset{
		Title:   "Monthly Trends",
		Headers: []string{"Month", "Average", "Ratings", "Entries", "Status"},
	}
	for _, m := range analytics.MonthlyTrends(entries) {
		avg := ""
		if m.Ratings > 0 {
			avg = analytics.FormatAverage(m.Average)
		}
		data.Rows = append(data.Rows, map[string]string{
			"Month":   m.Month,
			"Average": avg,
			"Ratings": strconv.Itoa(m.Ratings),
			"Entries": strconv.Itoa(m.Entries),
			"Status":  string(m.Status),
		})
	}
	return data
}

func entriesDataset(entries []models.HabitEntry, students []models.Student) export.Dataset {
	names := make(map[string]string, len(students))
	for _, st := range students {
		names[st.ID] = st.FullName()
	}

	headers := []string{"Date", "Student"}
	for _, k := range models.HabitKeys {
		headers = append(headers, k.Label())
	}
	headers = append(headers, "Average", "Notes")

	data := export.Dataset{Title: "Habit Entries", Headers: headers}
	for _, e := range entries {
		name, ok := names[e.StudentID]
		if !ok {
			name = "Unknown"
		}
		row := map[string]string{
			"Date":    e.Date().Format("2006-01-02"),
			"Student": name,
			"Average": analytics.EntryAverage(e).String(),
		}
		for _, k := range models.HabitKeys {
			if v, ok := e.Rating(k); ok {
				row[k.Label()] = strconv.Itoa(v)
			}
		}
		if e.Notes != nil {
			row["Notes"] = *e.Notes
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
