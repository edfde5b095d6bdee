package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/service"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
	"github.com/unireg-dev/unireg-api/pkg/response"
)

// GradeHandler exposes grading and report card endpoints.
type GradeHandler struct {
	service *service.GradeService
}

// NewGradeHandler constructs a grade handler.
func NewGradeHandler(svc *service.GradeService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// UpsertGrade godoc
// @Summary Record a score for a student's finalized selection
// @Tags Grades
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param studentID path string true "Student ID"
// @Param payload body models.GradeRequest true "Grade payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/students/{studentID}/grade [put]
func (h *GradeHandler) UpsertGrade(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req models.GradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	grade, err := h.service.UpsertGrade(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("studentID"), req.Score)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grade, nil)
}

// CourseGrades godoc
// @Summary List grades for a course
// @Tags Grades
// @Produce json
// @Param id path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{id}/grades [get]
func (h *GradeHandler) CourseGrades(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	grades, err := h.service.CourseGrades(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, grades, nil)
}

// ReportCard godoc
// @Summary Report card for a term
// @Description Defaults to the active term when termId is omitted.
// @Tags Grades
// @Produce json
// @Param termId query string false "Term ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /report-card [get]
func (h *GradeHandler) ReportCard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	card, err := h.service.ReportCard(c.Request.Context(), claims.UserID, c.Query("termId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card, nil)
}

// ExportReportCard godoc
// @Summary Export the report card as CSV or PDF
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param termId query string false "Term ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Security BearerAuth
// @Router /report-card/export [get]
func (h *GradeHandler) ExportReportCard(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", "csv")
	payload, contentType, err := h.service.ExportReportCard(c.Request.Context(), claims.UserID, c.Query("termId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	ext := "csv"
	if contentType == "application/pdf" {
		ext = "pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=report-card.%s", ext))
	c.Data(http.StatusOK, contentType, payload)
}
