package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/middleware"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/internal/service"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

type habitEntryService interface {
	Create(ctx context.Context, ownerID string, req service.CreateHabitEntryRequest) (*models.HabitEntry, error)
	ListAll(ctx context.Context, ownerID string, filter models.HabitEntryFilter) ([]models.HabitEntry, *models.Pagination, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]analytics.RecentEntry, error)
	Get(ctx context.Context, ownerID, id string) (*models.HabitEntry, error)
	Update(ctx context.Context, ownerID, id string, req service.UpdateHabitEntryRequest) (*models.HabitEntry, error)
	Delete(ctx context.Context, ownerID, id string, meta models.AuditContext) error
	Preview(ratings models.HabitRatings) (*service.EntryPreview, error)
}

// HabitEntryHandler exposes habit entry endpoints.
type HabitEntryHandler struct {
	entries     habitEntryService
	recentLimit int
}

// NewHabitEntryHandler constructs the handler. recentLimit is used when the
// client does not pass one.
func NewHabitEntryHandler(entries habitEntryService, recentLimit int) *HabitEntryHandler {
	if recentLimit <= 0 {
		recentLimit = analytics.DefaultRecentLimit
	}
	return &HabitEntryHandler{entries: entries, recentLimit: recentLimit}
}

// List godoc
// @Summary List habit entries
// @Tags Entries
// @Produce json
// @Param from query int false "Earliest entry date, epoch millis"
// @Param to query int false "Latest entry date, epoch millis"
// @Param sort query string false "entry_date or created_at"
// @Param order query string false "asc or desc"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /entries [get]
func (h *HabitEntryHandler) List(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	from, err := queryMillis(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := queryMillis(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.HabitEntryFilter{
		StudentID: c.Query("studentId"),
		From:      from,
		To:        to,
		SortBy:    c.DefaultQuery("sort", "entry_date"),
		SortOrder: c.DefaultQuery("order", "desc"),
		Limit:     queryInt(c, "limit", 0),
		Offset:    queryInt(c, "offset", 0),
	}

	entries, pagination, err := h.entries.ListAll(c.Request.Context(), owner, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Recent godoc
// @Summary Latest entries with student names and averages
// @Tags Entries
// @Produce json
// @Param limit query int false "Number of entries"
// @Success 200 {object} response.Envelope
// @Router /entries/recent [get]
func (h *HabitEntryHandler) Recent(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	recent, err := h.entries.Recent(c.Request.Context(), owner, queryInt(c, "limit", h.recentLimit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, recent, nil)
}

// Create godoc
// @Summary Record a habit entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body service.CreateHabitEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /entries [post]
func (h *HabitEntryHandler) Create(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req service.CreateHabitEntryRequest
	if !bindJSON(c, &req, "invalid entry payload") {
		return
	}
	entry, err := h.entries.Create(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Preview godoc
// @Summary Live average for a draft entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param payload body models.HabitRatings true "Draft ratings"
// @Success 200 {object} response.Envelope
// @Router /entries/preview [post]
func (h *HabitEntryHandler) Preview(c *gin.Context) {
	if _, ok := ownerFromContext(c); !ok {
		return
	}
	var ratings models.HabitRatings
	if !bindOptionalJSON(c, &ratings, "invalid ratings payload") {
		return
	}
	preview, err := h.entries.Preview(ratings)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Get godoc
// @Summary Get habit entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /entries/{id} [get]
func (h *HabitEntryHandler) Get(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Update godoc
// @Summary Update habit entry
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body service.UpdateHabitEntryRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /entries/{id} [patch]
func (h *HabitEntryHandler) Update(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateHabitEntryRequest
	if !bindJSON(c, &req, "invalid entry payload") {
		return
	}
	entry, err := h.entries.Update(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete habit entry
// @Tags Entries
// @Param id path string true "Entry ID"
// @Success 204
// @Router /entries/{id} [delete]
func (h *HabitEntryHandler) Delete(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	if err := h.entries.Delete(c.Request.Context(), owner, c.Param("id"), middleware.RequestAuditContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
