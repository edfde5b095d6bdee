package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unireg-dev/unireg-api/internal/middleware"
	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/service"
)

type selectionRepoMock struct {
	dropped string
}

func (m *selectionRepoMock) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	return false, nil
}

func (m *selectionRepoMock) CurrentUnits(ctx context.Context, studentID string) (int, error) {
	return 0, nil
}

func (m *selectionRepoMock) HasPassedPrerequisite(ctx context.Context, studentID, courseID string) (bool, error) {
	return true, nil
}

func (m *selectionRepoMock) ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return nil, nil
}

func (m *selectionRepoMock) ListDraft(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	return nil, nil
}

func (m *selectionRepoMock) ListByCourse(ctx context.Context, courseID string) ([]models.SelectionDetail, error) {
	return nil, nil
}

func (m *selectionRepoMock) CreateWithCount(ctx context.Context, selection *models.CourseSelection) error {
	selection.ID = "sel-1"
	return nil
}

func (m *selectionRepoMock) DeleteWithCount(ctx context.Context, studentID, courseID string) error {
	m.dropped = courseID
	return nil
}

func (m *selectionRepoMock) FinalizeDraft(ctx context.Context, studentID string, minUnits, maxUnits int) (*models.FinalizeResult, error) {
	return &models.FinalizeResult{TotalUnits: 14, Finalized: 4}, nil
}

type courseReaderMock struct {
	course *models.CourseDetail
}

func (m *courseReaderMock) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if m.course == nil {
		return nil, sql.ErrNoRows
	}
	return m.course, nil
}

type prereqReaderMock struct{}

func (m *prereqReaderMock) ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	return nil, nil
}

type limitReaderMock struct{}

func (m *limitReaderMock) Find(ctx context.Context) (*models.UnitLimit, error) {
	return nil, sql.ErrNoRows
}

func testSelectionHandler(repo *selectionRepoMock, course *models.CourseDetail) *SelectionHandler {
	svc := service.NewSelectionService(repo, &courseReaderMock{course: course}, &prereqReaderMock{}, &limitReaderMock{}, service.UnitPolicy{}, nil)
	return NewSelectionHandler(svc, nil)
}

func testCourse(active bool) *models.CourseDetail {
	start, end := "08:00", "10:00"
	return &models.CourseDetail{
		Course: models.Course{
			ID: "c-1", Code: "CS101", Name: "Intro to CS",
			Capacity: 30, Units: 3, Day: "monday",
			StartTime: &start, EndTime: &end,
		},
		TermActive: &active,
	}
}

func studentContext(w *httptest.ResponseRecorder) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
	return c
}

func TestSelectionHandlerSelect(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testSelectionHandler(&selectionRepoMock{}, testCourse(true))

	w := httptest.NewRecorder()
	c := studentContext(w)
	body, _ := json.Marshal(models.SelectCourseRequest{CourseID: "c-1"})
	req, _ := http.NewRequest(http.MethodPost, "/selections", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Select(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "CS101")
}

func TestSelectionHandlerSelectRejectedListsViolations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testSelectionHandler(&selectionRepoMock{}, testCourse(false))

	w := httptest.NewRecorder()
	c := studentContext(w)
	body, _ := json.Marshal(models.SelectCourseRequest{CourseID: "c-1"})
	req, _ := http.NewRequest(http.MethodPost, "/selections", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Select(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), string(models.RuleTermClosed))
}

func TestSelectionHandlerSelectInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testSelectionHandler(&selectionRepoMock{}, testCourse(true))

	w := httptest.NewRecorder()
	c := studentContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/selections", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Select(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSelectionHandlerSelectUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testSelectionHandler(&selectionRepoMock{}, testCourse(true))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, _ := json.Marshal(models.SelectCourseRequest{CourseID: "c-1"})
	req, _ := http.NewRequest(http.MethodPost, "/selections", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Select(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSelectionHandlerDrop(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &selectionRepoMock{}
	handler := testSelectionHandler(repo, testCourse(true))

	w := httptest.NewRecorder()
	c := studentContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/selections/c-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "courseID", Value: "c-1"}}

	handler.Drop(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "c-1", repo.dropped)
}

func TestSelectionHandlerFinalize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := testSelectionHandler(&selectionRepoMock{}, testCourse(true))

	w := httptest.NewRecorder()
	c := studentContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/selections/finalize", nil)
	c.Request = req

	handler.Finalize(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_units":14`)
}
