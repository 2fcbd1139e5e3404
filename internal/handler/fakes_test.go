package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/middleware"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/internal/service"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
)

const testOwner = "owner-1"

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func decodeEnvelope(body io.Reader) responseEnvelope {
	var env responseEnvelope
	_ = json.NewDecoder(body).Decode(&env)
	return env
}

// newTestRouter mounts the routes behind a stub authenticator that accepts
// "Bearer <owner>".
func newTestRouter(h Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.WithResponseMeta())
	RegisterRoutes(r, RouteConfig{APIPrefix: "/api/v1", Auth: stubAuth}, h)
	return r
}

func stubAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if len(header) <= len("Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": appErrors.ErrUnauthorized})
		return
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: header[len("Bearer "):]})
	c.Next()
}

func doRequest(r http.Handler, method, path string, body interface{}, owner string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, _ := json.Marshal(v)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if owner != "" {
		req.Header.Set("Authorization", "Bearer "+owner)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type fakeStudentSrv struct {
	students   []models.Student
	lastFilter models.StudentFilter
	lastOwner  string
	lastID     string
	lastActive *bool
	created    service.CreateStudentRequest
	updated    service.UpdateStudentRequest
	deleteMeta models.AuditContext
	err        error
}

func (f *fakeStudentSrv) List(_ context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	f.lastOwner, f.lastFilter = ownerID, filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.students, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(f.students)}, nil
}

func (f *fakeStudentSrv) ListActive(_ context.Context, ownerID string) ([]models.Student, error) {
	f.lastOwner = ownerID
	return f.students, f.err
}

func (f *fakeStudentSrv) Get(_ context.Context, ownerID, id string) (*models.Student, error) {
	f.lastOwner, f.lastID = ownerID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, FirstName: "Emma", LastName: "Johnson", OwnerID: ownerID, Active: true}, nil
}

func (f *fakeStudentSrv) Create(_ context.Context, ownerID string, req service.CreateStudentRequest) (*models.Student, error) {
	f.lastOwner, f.created = ownerID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: "stu-1", FirstName: req.FirstName, LastName: req.LastName, OwnerID: ownerID, Active: true}, nil
}

func (f *fakeStudentSrv) Update(_ context.Context, ownerID, id string, req service.UpdateStudentRequest) (*models.Student, error) {
	f.lastOwner, f.lastID, f.updated = ownerID, id, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeStudentSrv) SetActive(_ context.Context, ownerID, id string, active *bool) (*models.Student, error) {
	f.lastOwner, f.lastID, f.lastActive = ownerID, id, active
	if f.err != nil {
		return nil, f.err
	}
	return &models.Student{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeStudentSrv) Delete(_ context.Context, ownerID, id string, meta models.AuditContext) (*service.StudentDeleteResult, error) {
	f.lastOwner, f.lastID, f.deleteMeta = ownerID, id, meta
	if f.err != nil {
		return nil, f.err
	}
	return &service.StudentDeleteResult{StudentID: id, EntriesDeleted: 3}, nil
}

type fakeEntrySrv struct {
	lastOwner  string
	lastID     string
	lastFilter models.HabitEntryFilter
	lastLimit  int
	created    service.CreateHabitEntryRequest
	updated    service.UpdateHabitEntryRequest
	previewed  models.HabitRatings
	err        error
}

func (f *fakeEntrySrv) Create(_ context.Context, ownerID string, req service.CreateHabitEntryRequest) (*models.HabitEntry, error) {
	f.lastOwner, f.created = ownerID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.HabitEntry{ID: "ent-1", StudentID: req.StudentID, OwnerID: ownerID, EntryDate: req.EntryDate, HabitRatings: req.HabitRatings}, nil
}

func (f *fakeEntrySrv) ListByStudent(_ context.Context, ownerID, studentID string, filter models.HabitEntryFilter) ([]models.HabitEntry, error) {
	f.lastOwner, f.lastID, f.lastFilter = ownerID, studentID, filter
	if f.err != nil {
		return nil, f.err
	}
	return []models.HabitEntry{{ID: "ent-1", StudentID: studentID, OwnerID: ownerID}}, nil
}

func (f *fakeEntrySrv) ListAll(_ context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, *models.Pagination, error) {
	f.lastOwner, f.lastFilter = ownerID, filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.HabitEntry{}, nil, nil
}

func (f *fakeEntrySrv) Recent(_ context.Context, ownerID string, limit int) ([]analytics.RecentEntry, error) {
	f.lastOwner, f.lastLimit = ownerID, limit
	return []analytics.RecentEntry{}, f.err
}

func (f *fakeEntrySrv) Get(_ context.Context, ownerID, id string) (*models.HabitEntry, error) {
	f.lastOwner, f.lastID = ownerID, id
	if f.err != nil {
		return nil, f.err
	}
	return &models.HabitEntry{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeEntrySrv) Update(_ context.Context, ownerID, id string, req service.UpdateHabitEntryRequest) (*models.HabitEntry, error) {
	f.lastOwner, f.lastID, f.updated = ownerID, id, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.HabitEntry{ID: id, OwnerID: ownerID}, nil
}

func (f *fakeEntrySrv) Delete(_ context.Context, ownerID, id string, _ models.AuditContext) error {
	f.lastOwner, f.lastID = ownerID, id
	return f.err
}

func (f *fakeEntrySrv) Preview(ratings models.HabitRatings) (*service.EntryPreview, error) {
	f.previewed = ratings
	avg, ok := analytics.LiveAverage(ratings)
	if !ok {
		return &service.EntryPreview{}, nil
	}
	return &service.EntryPreview{Average: avg, Formatted: analytics.FormatAverage(avg), Status: analytics.Classify(avg), Rated: len(ratings.Values())}, nil
}

type fakeOverviewSrv struct {
	lastID string
	err    error
}

func (f *fakeOverviewSrv) StudentOverview(_ context.Context, ownerID, studentID string) (*analytics.StudentOverview, error) {
	f.lastID = studentID
	if f.err != nil {
		return nil, f.err
	}
	return &analytics.StudentOverview{StudentID: studentID}, nil
}

type fakeDashboardSrv struct {
	lastOwner   string
	lastStudent string
	hit         bool
	err         error
}

func (f *fakeDashboardSrv) Dashboard(_ context.Context, ownerID, studentID string) (*analytics.Dashboard, bool, error) {
	f.lastOwner, f.lastStudent = ownerID, studentID
	if f.err != nil {
		return nil, false, f.err
	}
	return &analytics.Dashboard{}, f.hit, nil
}
