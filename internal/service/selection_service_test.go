package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/repository"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type selectionRepoStub struct {
	exists        bool
	existsErr     error
	currentUnits  int
	passed        map[string]bool
	courses       []models.Course
	draft         []models.SelectionDetail
	roster        []models.SelectionDetail
	createErr     error
	deleteErr     error
	finalize      *models.FinalizeResult
	finalizeErr   error
	created       []models.CourseSelection
	deletedCourse string
	finalizeMin   int
	finalizeMax   int
}

func (s *selectionRepoStub) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *selectionRepoStub) CurrentUnits(ctx context.Context, studentID string) (int, error) {
	return s.currentUnits, nil
}

func (s *selectionRepoStub) HasPassedPrerequisite(ctx context.Context, studentID, courseID string) (bool, error) {
	return s.passed[courseID], nil
}

func (s *selectionRepoStub) ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	return s.courses, nil
}

func (s *selectionRepoStub) ListDraft(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	return s.draft, nil
}

func (s *selectionRepoStub) ListByCourse(ctx context.Context, courseID string) ([]models.SelectionDetail, error) {
	return s.roster, nil
}

func (s *selectionRepoStub) CreateWithCount(ctx context.Context, selection *models.CourseSelection) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, *selection)
	return nil
}

func (s *selectionRepoStub) DeleteWithCount(ctx context.Context, studentID, courseID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedCourse = courseID
	return nil
}

func (s *selectionRepoStub) FinalizeDraft(ctx context.Context, studentID string, minUnits, maxUnits int) (*models.FinalizeResult, error) {
	s.finalizeMin = minUnits
	s.finalizeMax = maxUnits
	return s.finalize, s.finalizeErr
}

type courseReaderStub struct {
	courses map[string]*models.CourseDetail
}

func (s courseReaderStub) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if course, ok := s.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

type prereqReaderStub struct {
	prereqs map[string][]models.PrerequisiteDetail
}

func (s prereqReaderStub) ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	return s.prereqs[courseID], nil
}

type limitReaderStub struct {
	limit *models.UnitLimit
	err   error
}

func (s limitReaderStub) Find(ctx context.Context) (*models.UnitLimit, error) {
	if s.limit != nil {
		return s.limit, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, sql.ErrNoRows
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

func openCourse(id, code string, capacity, enrolled, units int, day, start, end string) *models.CourseDetail {
	return &models.CourseDetail{
		Course: models.Course{
			ID:            id,
			Code:          code,
			Name:          code,
			Capacity:      capacity,
			EnrolledCount: enrolled,
			Units:         units,
			Day:           day,
			StartTime:     strPtr(start),
			EndTime:       strPtr(end),
		},
		TermActive: boolPtr(true),
	}
}

func newSelectionService(repo *selectionRepoStub, courses courseReaderStub, prereqs prereqReaderStub, limits limitReaderStub) *SelectionService {
	return NewSelectionService(repo, courses, prereqs, limits, UnitPolicy{DefaultMinUnits: 12, DefaultMaxUnits: 20}, nil)
}

func violationKinds(t *testing.T, err error) []models.RuleViolationKind {
	t.Helper()
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr.Details)
	violations, ok := appErr.Details.([]models.RuleViolation)
	require.True(t, ok, "details should carry rule violations")
	kinds := make([]models.RuleViolationKind, 0, len(violations))
	for _, v := range violations {
		kinds = append(kinds, v.Kind)
	}
	return kinds
}

func TestSelectCourseSuccess(t *testing.T) {
	repo := &selectionRepoStub{}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 10, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	detail, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "student-1", repo.created[0].StudentID)
	assert.Equal(t, "CS101", detail.CourseCode)
	assert.Equal(t, 3, detail.Units)
	assert.False(t, detail.IsFinalized)
}

func TestSelectCourseUnknownCourse(t *testing.T) {
	svc := newSelectionService(&selectionRepoStub{}, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSelectCourseClosedTerm(t *testing.T) {
	course := openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00")
	course.TermActive = boolPtr(false)
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
	svc := newSelectionService(&selectionRepoStub{}, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleTermClosed)
}

func TestSelectCourseNoTermIsClosed(t *testing.T) {
	course := openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00")
	course.TermActive = nil
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
	svc := newSelectionService(&selectionRepoStub{}, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleTermClosed)
}

func TestSelectCourseDuplicate(t *testing.T) {
	repo := &selectionRepoStub{exists: true}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleDuplicateSelection)
	assert.Empty(t, repo.created)
}

func TestSelectCourseCapacityFull(t *testing.T) {
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 1, 1, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(&selectionRepoStub{}, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleCapacityExceeded)
}

func TestSelectCoursePrerequisiteUnmet(t *testing.T) {
	repo := &selectionRepoStub{passed: map[string]bool{"p1": true, "p2": false}}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS301", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	prereqs := prereqReaderStub{prereqs: map[string][]models.PrerequisiteDetail{
		"c1": {
			{Prerequisite: models.Prerequisite{CourseID: "c1", PrerequisiteID: "p1"}, PrerequisiteCode: "CS101", PrerequisiteName: "Intro"},
			{Prerequisite: models.Prerequisite{CourseID: "c1", PrerequisiteID: "p2"}, PrerequisiteCode: "CS201", PrerequisiteName: "Data Structures"},
		},
	}}
	svc := newSelectionService(repo, courses, prereqs, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	violations := appErr.Details.([]models.RuleViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, models.RulePrerequisiteUnmet, violations[0].Kind)
	assert.Equal(t, "CS201", violations[0].CourseCode)
}

func TestSelectCourseTimeConflict(t *testing.T) {
	repo := &selectionRepoStub{courses: []models.Course{{
		ID: "c2", Code: "MATH1", Day: "monday",
		StartTime: strPtr("09:00"), EndTime: strPtr("11:00"),
	}}}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleTimeConflict)
}

func TestSelectCourseBackToBackIsNotConflict(t *testing.T) {
	repo := &selectionRepoStub{courses: []models.Course{{
		ID: "c2", Code: "MATH1", Day: "monday",
		StartTime: strPtr("10:00"), EndTime: strPtr("12:00"),
	}}}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.NoError(t, err)
}

func TestSelectCourseUnitCeiling(t *testing.T) {
	repo := &selectionRepoStub{currentUnits: 18}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)

	violations := appErrors.FromError(err).Details.([]models.RuleViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, models.RuleUnitCeiling, violations[0].Kind)
	assert.Equal(t, 20, violations[0].Limit)
	assert.Equal(t, 21, violations[0].Total)
}

func TestSelectCourseCustomUnitLimit(t *testing.T) {
	repo := &selectionRepoStub{currentUnits: 14}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 0, 3, "monday", "08:00", "10:00"),
	}}
	limits := limitReaderStub{limit: &models.UnitLimit{MinUnits: 12, MaxUnits: 16}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limits)

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleUnitCeiling)
}

func TestSelectCourseAggregatesViolations(t *testing.T) {
	repo := &selectionRepoStub{exists: true, currentUnits: 18}
	course := openCourse("c1", "CS101", 1, 1, 3, "monday", "08:00", "10:00")
	course.TermActive = boolPtr(false)
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)

	kinds := violationKinds(t, err)
	assert.Contains(t, kinds, models.RuleTermClosed)
	assert.Contains(t, kinds, models.RuleDuplicateSelection)
	assert.Contains(t, kinds, models.RuleCapacityExceeded)
	assert.Contains(t, kinds, models.RuleUnitCeiling)
	assert.Empty(t, repo.created)
}

func TestSelectCourseLosesCapacityRace(t *testing.T) {
	repo := &selectionRepoStub{createErr: repository.ErrCourseFull}
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{
		"c1": openCourse("c1", "CS101", 30, 29, 3, "monday", "08:00", "10:00"),
	}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.SelectCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Contains(t, violationKinds(t, err), models.RuleCapacityExceeded)
}

func TestDropCourse(t *testing.T) {
	repo := &selectionRepoStub{}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	require.NoError(t, svc.DropCourse(context.Background(), "student-1", "c1"))
	assert.Equal(t, "c1", repo.deletedCourse)
}

func TestDropCourseNotSelected(t *testing.T) {
	repo := &selectionRepoStub{deleteErr: repository.ErrSelectionNotFound}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	err := svc.DropCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestDropCourseFinalized(t *testing.T) {
	repo := &selectionRepoStub{deleteErr: repository.ErrSelectionFinalized}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	err := svc.DropCourse(context.Background(), "student-1", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestFinalize(t *testing.T) {
	repo := &selectionRepoStub{finalize: &models.FinalizeResult{TotalUnits: 15, Finalized: 5}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	result, err := svc.Finalize(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 15, result.TotalUnits)
	assert.Equal(t, 5, result.Finalized)
	assert.Equal(t, 12, repo.finalizeMin)
	assert.Equal(t, 20, repo.finalizeMax)
}

func TestFinalizeUsesStoredUnitLimit(t *testing.T) {
	repo := &selectionRepoStub{finalize: &models.FinalizeResult{TotalUnits: 14, Finalized: 4}}
	limits := limitReaderStub{limit: &models.UnitLimit{MinUnits: 10, MaxUnits: 18}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limits)

	_, err := svc.Finalize(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 10, repo.finalizeMin)
	assert.Equal(t, 18, repo.finalizeMax)
}

func TestFinalizeEmptyDraft(t *testing.T) {
	repo := &selectionRepoStub{finalizeErr: repository.ErrDraftEmpty}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.Finalize(context.Background(), "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestFinalizeBelowMinimum(t *testing.T) {
	repo := &selectionRepoStub{finalizeErr: &repository.UnitWindowError{Total: 9, Min: 12, Max: 20}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.Finalize(context.Background(), "student-1")
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	violations := appErr.Details.([]models.RuleViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, models.RuleUnitFloor, violations[0].Kind)
	assert.Equal(t, 12, violations[0].Limit)
	assert.Equal(t, 9, violations[0].Total)
}

func TestFinalizeAboveMaximum(t *testing.T) {
	repo := &selectionRepoStub{finalizeErr: &repository.UnitWindowError{Total: 22, Min: 12, Max: 20}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.Finalize(context.Background(), "student-1")
	require.Error(t, err)

	violations := appErrors.FromError(err).Details.([]models.RuleViolation)
	require.Len(t, violations, 1)
	assert.Equal(t, models.RuleUnitCeiling, violations[0].Kind)
}

func TestListDraftSumsUnits(t *testing.T) {
	repo := &selectionRepoStub{draft: []models.SelectionDetail{
		{Units: 3}, {Units: 4}, {Units: 2},
	}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	summary, err := svc.ListDraft(context.Background(), "student-1")
	require.NoError(t, err)
	assert.Equal(t, 9, summary.TotalUnits)
	assert.Len(t, summary.Courses, 3)
}

func TestWeeklyScheduleGroupsAndSorts(t *testing.T) {
	repo := &selectionRepoStub{courses: []models.Course{
		{Code: "B", Day: "monday", StartTime: strPtr("10:00"), EndTime: strPtr("12:00")},
		{Code: "A", Day: "monday", StartTime: strPtr("08:00"), EndTime: strPtr("10:00")},
		{Code: "C", Day: "wednesday", StartTime: strPtr("08:00"), EndTime: strPtr("10:00")},
	}}
	svc := newSelectionService(repo, courseReaderStub{}, prereqReaderStub{}, limitReaderStub{})

	schedule, err := svc.WeeklySchedule(context.Background(), "student-1")
	require.NoError(t, err)
	require.Len(t, schedule["monday"], 2)
	assert.Equal(t, "A", schedule["monday"][0].CourseCode)
	assert.Equal(t, "B", schedule["monday"][1].CourseCode)
	require.Len(t, schedule["wednesday"], 1)
}

func TestProfessorRemoveStudentOwnershipRequired(t *testing.T) {
	course := openCourse("c1", "CS101", 30, 5, 3, "monday", "08:00", "10:00")
	course.ProfessorID = strPtr("prof-1")
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
	repo := &selectionRepoStub{}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	err := svc.ProfessorRemoveStudent(context.Background(), "prof-2", "c1", "student-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deletedCourse)

	require.NoError(t, svc.ProfessorRemoveStudent(context.Background(), "prof-1", "c1", "student-1"))
	assert.Equal(t, "c1", repo.deletedCourse)
}

func TestCourseRosterOwnershipRequired(t *testing.T) {
	course := openCourse("c1", "CS101", 30, 5, 3, "monday", "08:00", "10:00")
	course.ProfessorID = strPtr("prof-1")
	courses := courseReaderStub{courses: map[string]*models.CourseDetail{"c1": course}}
	repo := &selectionRepoStub{roster: []models.SelectionDetail{{StudentName: "Jane Doe"}}}
	svc := newSelectionService(repo, courses, prereqReaderStub{}, limitReaderStub{})

	_, err := svc.CourseRoster(context.Background(), "prof-2", "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	roster, err := svc.CourseRoster(context.Background(), "prof-1", "c1")
	require.NoError(t, err)
	require.Len(t, roster, 1)
	assert.Equal(t, "Jane Doe", roster[0].StudentName)
}
