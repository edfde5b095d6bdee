package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/service"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
	"github.com/unireg-dev/unireg-api/pkg/response"
)

// CourseHandler exposes catalog endpoints.
type CourseHandler struct {
	service  *service.CourseService
	fallback models.UnitLimit
}

// NewCourseHandler constructs a course handler. The fallback unit limit is
// reported when no policy row exists.
func NewCourseHandler(svc *service.CourseService, fallback models.UnitLimit) *CourseHandler {
	return &CourseHandler{service: svc, fallback: fallback}
}

// List godoc
// @Summary List catalog courses
// @Tags Courses
// @Produce json
// @Param termId query string false "Filter by term"
// @Param professorId query string false "Filter by professor"
// @Param day query string false "Filter by weekday"
// @Param search query string false "Search code or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.TermID = c.Query("termId")
	filter.ProfessorID = c.Query("professorId")
	filter.Day = c.Query("day")
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	courses, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, &pagination)
}

// Get godoc
// @Summary Get a course with its prerequisites
// @Tags Courses
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, prereqs, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"course": course, "prerequisites": prereqs}, nil)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req models.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Update godoc
// @Summary Update a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.UpdateCourseRequest true "Course payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id} [put]
func (h *CourseHandler) Update(c *gin.Context) {
	var req models.UpdateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// Delete godoc
// @Summary Delete a course
// @Tags Courses
// @Param id path string true "Course ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id} [delete]
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddPrerequisite godoc
// @Summary Add a prerequisite to a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body models.AddPrerequisiteRequest true "Prerequisite payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/prerequisites [post]
func (h *CourseHandler) AddPrerequisite(c *gin.Context) {
	var req models.AddPrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	prereq, err := h.service.AddPrerequisite(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, prereq)
}

// RemovePrerequisite godoc
// @Summary Remove a prerequisite edge
// @Tags Courses
// @Param id path string true "Course ID"
// @Param prereqID path string true "Prerequisite edge ID"
// @Success 204
// @Security BearerAuth
// @Router /courses/{id}/prerequisites/{prereqID} [delete]
func (h *CourseHandler) RemovePrerequisite(c *gin.Context) {
	if err := h.service.RemovePrerequisite(c.Request.Context(), c.Param("prereqID")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// GetUnitLimit godoc
// @Summary Get the unit-load policy
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-limit [get]
func (h *CourseHandler) GetUnitLimit(c *gin.Context) {
	limit, err := h.service.UnitLimit(c.Request.Context(), h.fallback)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, limit, nil)
}

// UpdateUnitLimit godoc
// @Summary Rewrite the unit-load policy
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body models.UpdateUnitLimitRequest true "Unit limit payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /unit-limit [put]
func (h *CourseHandler) UpdateUnitLimit(c *gin.Context) {
	var req models.UpdateUnitLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	limit, err := h.service.UpdateUnitLimit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, limit, nil)
}
