package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type gradeRepoStub struct {
	grades   map[string]*models.Grade
	rows     []models.ReportCardRow
	byCourse map[string]models.Grade
	upserted []models.Grade
}

func (s *gradeRepoStub) FindBySelection(ctx context.Context, selectionID string) (*models.Grade, error) {
	if grade, ok := s.grades[selectionID]; ok {
		return grade, nil
	}
	return nil, sql.ErrNoRows
}

func (s *gradeRepoStub) Upsert(ctx context.Context, grade *models.Grade) error {
	grade.Status = models.StatusForScore(grade.Score)
	s.upserted = append(s.upserted, *grade)
	return nil
}

func (s *gradeRepoStub) ReportCardRows(ctx context.Context, studentID, termID string) ([]models.ReportCardRow, error) {
	return s.rows, nil
}

func (s *gradeRepoStub) ListByCourse(ctx context.Context, courseID string) (map[string]models.Grade, error) {
	return s.byCourse, nil
}

type selectionFinderStub struct {
	selections map[string]*models.CourseSelection
}

func (s selectionFinderStub) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.CourseSelection, error) {
	if selection, ok := s.selections[studentID+"/"+courseID]; ok {
		return selection, nil
	}
	return nil, sql.ErrNoRows
}

type gradeTermReaderStub struct {
	terms  map[string]*models.Term
	active *models.Term
}

func (s gradeTermReaderStub) FindByID(ctx context.Context, id string) (*models.Term, error) {
	if term, ok := s.terms[id]; ok {
		return term, nil
	}
	return nil, sql.ErrNoRows
}

func (s gradeTermReaderStub) FindActive(ctx context.Context) (*models.Term, error) {
	if s.active != nil {
		return s.active, nil
	}
	return nil, sql.ErrNoRows
}

func floatPtr(v float64) *float64 { return &v }

func ownedCourse(professorID string) courseReaderStub {
	course := openCourse("c1", "CS101", 30, 10, 3, "monday", "08:00", "10:00")
	course.ProfessorID = strPtr(professorID)
	return courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
}

func TestUpsertGrade(t *testing.T) {
	grades := &gradeRepoStub{}
	selections := selectionFinderStub{selections: map[string]*models.CourseSelection{
		"student-1/c1": {ID: "sel-1", StudentID: "student-1", CourseID: "c1", IsFinalized: true},
	}}
	svc := NewGradeService(grades, selections, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	grade, err := svc.UpsertGrade(context.Background(), "prof-1", "c1", "student-1", 17.5)
	require.NoError(t, err)
	assert.Equal(t, "sel-1", grade.SelectionID)
	assert.Equal(t, models.GradeStatusPassed, grade.Status)
	require.Len(t, grades.upserted, 1)
}

func TestUpsertGradeFailingScore(t *testing.T) {
	grades := &gradeRepoStub{}
	selections := selectionFinderStub{selections: map[string]*models.CourseSelection{
		"student-1/c1": {ID: "sel-1", IsFinalized: true},
	}}
	svc := NewGradeService(grades, selections, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	grade, err := svc.UpsertGrade(context.Background(), "prof-1", "c1", "student-1", 9.99)
	require.NoError(t, err)
	assert.Equal(t, models.GradeStatusFailed, grade.Status)
}

func TestUpsertGradeScoreOutOfRange(t *testing.T) {
	svc := NewGradeService(&gradeRepoStub{}, selectionFinderStub{}, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	_, err := svc.UpsertGrade(context.Background(), "prof-1", "c1", "student-1", 20.5)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpsertGradeNotOwner(t *testing.T) {
	svc := NewGradeService(&gradeRepoStub{}, selectionFinderStub{}, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	_, err := svc.UpsertGrade(context.Background(), "prof-2", "c1", "student-1", 15)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpsertGradeRequiresFinalizedSelection(t *testing.T) {
	selections := selectionFinderStub{selections: map[string]*models.CourseSelection{
		"student-1/c1": {ID: "sel-1", IsFinalized: false},
	}}
	svc := NewGradeService(&gradeRepoStub{}, selections, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	_, err := svc.UpsertGrade(context.Background(), "prof-1", "c1", "student-1", 15)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestReportCardGPA(t *testing.T) {
	grades := &gradeRepoStub{rows: []models.ReportCardRow{
		{CourseCode: "CS101", Units: 3, Score: floatPtr(20)},
		{CourseCode: "MATH1", Units: 1, Score: floatPtr(10)},
	}}
	terms := gradeTermReaderStub{terms: map[string]*models.Term{"t1": {ID: "t1", Name: "Fall 2025"}}}
	svc := NewGradeService(grades, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	card, err := svc.ReportCard(context.Background(), "student-1", "t1")
	require.NoError(t, err)
	// (20*3 + 10*1) / 4
	assert.Equal(t, 17.5, card.GPA)
	assert.Equal(t, "Fall 2025", card.TermName)
	assert.Equal(t, models.GradeStatusPassed, card.Courses[0].Status)
	assert.Equal(t, models.GradeStatusPassed, card.Courses[1].Status)
}

func TestReportCardGPARounding(t *testing.T) {
	grades := &gradeRepoStub{rows: []models.ReportCardRow{
		{CourseCode: "CS101", Units: 3, Score: floatPtr(15)},
		{CourseCode: "MATH1", Units: 3, Score: floatPtr(17)},
		{CourseCode: "PHYS1", Units: 3, Score: floatPtr(18)},
	}}
	terms := gradeTermReaderStub{terms: map[string]*models.Term{"t1": {ID: "t1", Name: "Fall 2025"}}}
	svc := NewGradeService(grades, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	card, err := svc.ReportCard(context.Background(), "student-1", "t1")
	require.NoError(t, err)
	// 50/3 = 16.666..., rounded to two decimals
	assert.Equal(t, 16.67, card.GPA)
}

func TestReportCardExcludesUngradedRows(t *testing.T) {
	grades := &gradeRepoStub{rows: []models.ReportCardRow{
		{CourseCode: "CS101", Units: 3, Score: floatPtr(16)},
		{CourseCode: "MATH1", Units: 4, Score: nil},
	}}
	terms := gradeTermReaderStub{terms: map[string]*models.Term{"t1": {ID: "t1", Name: "Fall 2025"}}}
	svc := NewGradeService(grades, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	card, err := svc.ReportCard(context.Background(), "student-1", "t1")
	require.NoError(t, err)
	assert.Equal(t, 16.0, card.GPA)
	assert.Equal(t, models.GradeStatusUnknown, card.Courses[1].Status)
}

func TestReportCardDefaultsToActiveTerm(t *testing.T) {
	grades := &gradeRepoStub{}
	terms := gradeTermReaderStub{active: &models.Term{ID: "t-active", Name: "Spring 2026"}}
	svc := NewGradeService(grades, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	card, err := svc.ReportCard(context.Background(), "student-1", "")
	require.NoError(t, err)
	assert.Equal(t, "t-active", card.TermID)
	assert.Empty(t, card.Courses)
	assert.Zero(t, card.GPA)
}

func TestReportCardNoActiveTerm(t *testing.T) {
	svc := NewGradeService(&gradeRepoStub{}, selectionFinderStub{}, courseReaderStub{}, gradeTermReaderStub{}, nil)

	_, err := svc.ReportCard(context.Background(), "student-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportReportCardCSV(t *testing.T) {
	grades := &gradeRepoStub{rows: []models.ReportCardRow{
		{CourseCode: "CS101", CourseName: "Intro", Units: 3, Score: floatPtr(17.5)},
	}}
	terms := gradeTermReaderStub{terms: map[string]*models.Term{"t1": {ID: "t1", Name: "Fall 2025"}}}
	svc := NewGradeService(grades, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	payload, contentType, err := svc.ExportReportCard(context.Background(), "student-1", "t1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Course Code,Course Name,Units,Score,Status"))
	assert.Contains(t, body, "CS101")
	assert.Contains(t, body, "17.50")
	assert.Contains(t, body, "GPA")
}

func TestExportReportCardUnsupportedFormat(t *testing.T) {
	terms := gradeTermReaderStub{terms: map[string]*models.Term{"t1": {ID: "t1"}}}
	svc := NewGradeService(&gradeRepoStub{}, selectionFinderStub{}, courseReaderStub{}, terms, nil)

	_, _, err := svc.ExportReportCard(context.Background(), "student-1", "t1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseGradesOwnershipRequired(t *testing.T) {
	grades := &gradeRepoStub{byCourse: map[string]models.Grade{"sel-1": {Score: 12}}}
	svc := NewGradeService(grades, selectionFinderStub{}, ownedCourse("prof-1"), gradeTermReaderStub{}, nil)

	_, err := svc.CourseGrades(context.Background(), "prof-2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	result, err := svc.CourseGrades(context.Background(), "prof-1", "c1")
	require.NoError(t, err)
	require.Len(t, result, 1)
}
