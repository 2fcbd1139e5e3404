package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/middleware"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/internal/service"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

type demoDataService interface {
	Seed(ctx context.Context, ownerID string, meta models.AuditContext) (*service.SeedResult, error)
	Clear(ctx context.Context, ownerID string, meta models.AuditContext) (*service.ClearResult, error)
}

// DemoDataHandler seeds and clears sample data for the caller.
type DemoDataHandler struct {
	demo demoDataService
}

// NewDemoDataHandler constructs the handler.
func NewDemoDataHandler(demo demoDataService) *DemoDataHandler {
	return &DemoDataHandler{demo: demo}
}

// Seed godoc
// @Summary Seed demo roster and entries
// @Description Refused with 409 when the caller already has students or entries.
// @Tags Demo
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /demo-data/seed [post]
func (h *DemoDataHandler) Seed(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	result, err := h.demo.Seed(c.Request.Context(), owner, middleware.RequestAuditContext(c))
	if err != nil {
		if result != nil {
			response.ErrorWithData(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Clear godoc
// @Summary Delete all of the caller's students and entries
// @Tags Demo
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /demo-data/clear [post]
func (h *DemoDataHandler) Clear(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	result, err := h.demo.Clear(c.Request.Context(), owner, middleware.RequestAuditContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
