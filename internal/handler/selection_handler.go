package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/service"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
	"github.com/unireg-dev/unireg-api/pkg/response"
)

// SelectionHandler exposes the course selection endpoints.
type SelectionHandler struct {
	service *service.SelectionService
	metrics *service.MetricsService
}

// NewSelectionHandler constructs a selection handler.
func NewSelectionHandler(svc *service.SelectionService, metrics *service.MetricsService) *SelectionHandler {
	return &SelectionHandler{service: svc, metrics: metrics}
}

// Select godoc
// @Summary Add a course to the draft schedule
// @Description Evaluates every selection rule; on failure the response lists all violations.
// @Tags Selections
// @Accept json
// @Produce json
// @Param payload body models.SelectCourseRequest true "Selection payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /selections [post]
func (h *SelectionHandler) Select(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.SelectCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	selection, err := h.service.SelectCourse(c.Request.Context(), claims.UserID, req.CourseID)
	if err != nil {
		h.metrics.ObserveSelection("rejected")
		response.Error(c, err)
		return
	}
	h.metrics.ObserveSelection("accepted")
	response.Created(c, selection)
}

// Drop godoc
// @Summary Remove a course from the draft schedule
// @Tags Selections
// @Param courseID path string true "Course ID"
// @Success 204
// @Security BearerAuth
// @Router /selections/{courseID} [delete]
func (h *SelectionHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DropCourse(c.Request.Context(), claims.UserID, c.Param("courseID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Finalize godoc
// @Summary Finalize the draft schedule
// @Description Locks in every draft selection after checking the unit window.
// @Tags Selections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /selections/finalize [post]
func (h *SelectionHandler) Finalize(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.Finalize(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Draft godoc
// @Summary List the draft schedule
// @Tags Selections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /selections/draft [get]
func (h *SelectionHandler) Draft(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	summary, err := h.service.ListDraft(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Schedule godoc
// @Summary Weekly schedule of selected courses
// @Tags Selections
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /selections/schedule [get]
func (h *SelectionHandler) Schedule(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	schedule, err := h.service.WeeklySchedule(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Roster godoc
// @Summary List students enrolled in a course
// @Tags Selections
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/students [get]
func (h *SelectionHandler) Roster(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	roster, err := h.service.CourseRoster(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}

// RemoveStudent godoc
// @Summary Remove a student from a course
// @Tags Selections
// @Param id path string true "Course ID"
// @Param studentID path string true "Student ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id}/students/{studentID} [delete]
func (h *SelectionHandler) RemoveStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.ProfessorRemoveStudent(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("studentID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
