package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/workhabits-api/internal/analytics"
	"github.com/noah-isme/workhabits-api/internal/middleware"
	"github.com/noah-isme/workhabits-api/internal/models"
	"github.com/noah-isme/workhabits-api/internal/service"
	"github.com/noah-isme/workhabits-api/pkg/response"
)

type studentService interface {
	List(ctx context.Context, ownerID string, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	ListActive(ctx context.Context, ownerID string) ([]models.Student, error)
	Get(ctx context.Context, ownerID, id string) (*models.Student, error)
	Create(ctx context.Context, ownerID string, req service.CreateStudentRequest) (*models.Student, error)
	Update(ctx context.Context, ownerID, id string, req service.UpdateStudentRequest) (*models.Student, error)
	SetActive(ctx context.Context, ownerID, id string, active *bool) (*models.Student, error)
	Delete(ctx context.Context, ownerID, id string, meta models.AuditContext) (*service.StudentDeleteResult, error)
}

type studentEntryLister interface {
	ListByStudent(ctx context.Context, ownerID, studentID string, filter models.HabitEntryFilter) ([]models.HabitEntry, error)
}

type studentOverviewer interface {
	StudentOverview(ctx context.Context, ownerID, studentID string) (*analytics.StudentOverview, error)
}

// StudentHandler exposes roster endpoints.
type StudentHandler struct {
	students studentService
	entries  studentEntryLister
	overview studentOverviewer
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students studentService, entries studentEntryLister, overview studentOverviewer) *StudentHandler {
	return &StudentHandler{students: students, entries: entries, overview: overview}
}

// ToggleActiveRequest optionally pins the active flag instead of flipping it.
type ToggleActiveRequest struct {
	Active *bool `json:"active"`
}

// List godoc
// @Summary List students
// @Tags Students
// @Produce json
// @Param search query string false "Search by name or student id"
// @Param active query bool false "Filter by active state"
// @Param sort query string false "first_name, last_name or created_at"
// @Param order query string false "asc or desc"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	filter := models.StudentFilter{
		Search:    strings.TrimSpace(c.Query("search")),
		Active:    queryBool(c, "active"),
		SortBy:    c.Query("sort"),
		SortOrder: c.Query("order"),
		Page:      queryInt(c, "page", 1),
		PageSize:  queryInt(c, "limit", 50),
	}

	students, pagination, err := h.students.List(c.Request.Context(), owner, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Active godoc
// @Summary List active students ordered by last name
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/active [get]
func (h *StudentHandler) Active(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	students, err := h.students.ListActive(c.Request.Context(), owner)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	student, err := h.students.Get(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Create godoc
// @Summary Create student
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.CreateStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req service.CreateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	student, err := h.students.Create(c.Request.Context(), owner, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Update godoc
// @Summary Update student
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [patch]
func (h *StudentHandler) Update(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req service.UpdateStudentRequest
	if !bindJSON(c, &req, "invalid student payload") {
		return
	}
	student, err := h.students.Update(c.Request.Context(), owner, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ToggleActive godoc
// @Summary Flip or set the student's active flag
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body ToggleActiveRequest false "Explicit state"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/toggle-active [post]
func (h *StudentHandler) ToggleActive(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	var req ToggleActiveRequest
	if !bindOptionalJSON(c, &req, "invalid toggle payload") {
		return
	}
	student, err := h.students.SetActive(c.Request.Context(), owner, c.Param("id"), req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// Delete godoc
// @Summary Delete student and every entry recorded for it
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id} [delete]
func (h *StudentHandler) Delete(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	result, err := h.students.Delete(c.Request.Context(), owner, c.Param("id"), middleware.RequestAuditContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Entries godoc
// @Summary List a student's habit entries
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param order query string false "asc or desc by entry date"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/entries [get]
func (h *StudentHandler) Entries(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	order := c.Query("order")
	if order == "" {
		order = "desc"
	}
	entries, err := h.entries.ListByStudent(c.Request.Context(), owner, c.Param("id"), models.HabitEntryFilter{
		SortBy:    "entry_date",
		SortOrder: order,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Overview godoc
// @Summary Student skill profile
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/overview [get]
func (h *StudentHandler) Overview(c *gin.Context) {
	owner, ok := ownerFromContext(c)
	if !ok {
		return
	}
	overview, err := h.overview.StudentOverview(c.Request.Context(), owner, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
