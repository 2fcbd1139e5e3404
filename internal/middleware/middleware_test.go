package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/workhabits-api/internal/models"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
	"github.com/noah-isme/workhabits-api/pkg/logger"
)

type stubValidator struct {
	claims *models.JWTClaims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type auditSink struct {
	logs []*models.AuditLog
	err  error
}

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return a.err
}

type observerSpy struct {
	method string
	path   string
	status int
}

func (o *observerSpy) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	o.method, o.path, o.status = method, path, status
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(&stubValidator{claims: &models.JWTClaims{UserID: "owner-1"}}))
	r.GET("/students", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/students", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/students", "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/students", "Bearer ").Code)
}

func TestJWTPropagatesValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(&stubValidator{err: appErrors.Clone(appErrors.ErrUnauthorized, "token expired")}))
	r.GET("/students", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/students", "Bearer stale")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "token expired", body.Error.Message)
}

func TestJWTSetsOwnerIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := &stubValidator{claims: &models.JWTClaims{UserID: "owner-1"}}
	r := gin.New()
	r.Use(JWT(validator))
	var owner, logged string
	r.GET("/students", func(c *gin.Context) {
		owner, _ = CurrentOwner(c)
		logged = c.GetString(logger.ContextUserIDKey)
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/students", "bearer good-token")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "good-token", validator.seen)
	assert.Equal(t, "owner-1", owner)
	assert.Equal(t, "owner-1", logged)
}

func TestCurrentOwnerWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentOwner(c)
	assert.False(t, ok)
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{err: errors.New("audit table locked")}
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "owner-1"})
		c.Next()
	})
	r.POST("/reports/:id", Audit(sink, "REPORT_REQUEST", "report_jobs", nil), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})
	r.POST("/fail/:id", Audit(sink, "REPORT_REQUEST", "report_jobs", nil), func(c *gin.Context) {
		c.Status(http.StatusBadRequest)
	})

	assert.Equal(t, http.StatusAccepted, serve(r, http.MethodPost, "/reports/job-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/fail/job-2", "").Code)

	require.Len(t, sink.logs, 1)
	log := sink.logs[0]
	assert.Equal(t, "owner-1", *log.UserID)
	assert.Equal(t, "REPORT_REQUEST", log.Action)
	require.NotNil(t, log.ResourceID)
	assert.Equal(t, "job-1", *log.ResourceID)
	assert.Contains(t, string(log.NewValues), `"status":202`)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	spy := &observerSpy{}
	r := gin.New()
	r.Use(Metrics(spy))
	r.GET("/students/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	serve(r, http.MethodGet, "/students/abc", "")
	assert.Equal(t, "/students/:id", spy.path)
	assert.Equal(t, http.StatusNoContent, spy.status)

	serve(r, http.MethodGet, "/nowhere", "")
	assert.Equal(t, "unmatched", spy.path)
	assert.Equal(t, http.StatusNotFound, spy.status)
}

func TestResponseMetaCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/analytics/dashboard", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	serve(r, http.MethodGet, "/analytics/dashboard", "")
	assert.Equal(t, true, meta[cacheHitKey])
}
