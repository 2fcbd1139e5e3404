package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/middleware"
	appErrors "github.com/noah-isme/workhabits-api/pkg/errors"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

type dashboardService interface {
	Dashboard(ctx context.Context, ownerID, studentID string) (*analytics.Dashboard, bool, error)
}

// AnalyticsHandler exposes dashboard-ready analytics endpoints.
type AnalyticsHandler struct {
	analytics dashboardService
}

// NewAnalyticsHandler constructs the analytics handler.
func NewAnalyticsHandler(analytics dashboardService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Dashboard godoc
// @Summary Habit analytics dashboard
// @Description Summary, habit averages, monthly trends, ranking and skill distribution. studentId narrows everything except the summary and ranking.
// @Tags Analytics
// @Produce json
// @Param studentId query string false "Student scope"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /analytics/dashboard [get]
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	if h.analytics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	start := time.Now()
	dashboard, cacheHit, err := h.analytics.Dashboard(c.Request.Context(), owner, strings.TrimSpace(c.Query("studentId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dashboard, nil, middleware.TimedMeta(c, start))
}
