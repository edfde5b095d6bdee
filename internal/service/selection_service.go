package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/unireg-dev/unireg-api/internal/models"
	"github.com/unireg-dev/unireg-api/internal/repository"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type selectionRepository interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	CurrentUnits(ctx context.Context, studentID string) (int, error)
	HasPassedPrerequisite(ctx context.Context, studentID, courseID string) (bool, error)
	ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error)
	ListDraft(ctx context.Context, studentID string) ([]models.SelectionDetail, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.SelectionDetail, error)
	CreateWithCount(ctx context.Context, selection *models.CourseSelection) error
	DeleteWithCount(ctx context.Context, studentID, courseID string) error
	FinalizeDraft(ctx context.Context, studentID string, minUnits, maxUnits int) (*models.FinalizeResult, error)
}

type courseDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

type prerequisiteReader interface {
	ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error)
}

type unitLimitReader interface {
	Find(ctx context.Context) (*models.UnitLimit, error)
}

// UnitPolicy is the fallback unit window applied when no unit_limits row
// exists.
type UnitPolicy struct {
	DefaultMinUnits int
	DefaultMaxUnits int
}

// SelectionService is the enrollment rule engine: it decides whether a
// student may add or drop a course, finalizes draft schedules and serves the
// read models those decisions rest on. Every add-time rule is evaluated and
// the violations are reported together; nothing is persisted unless all
// rules pass.
type SelectionService struct {
	selections selectionRepository
	courses    courseDetailReader
	prereqs    prerequisiteReader
	limits     unitLimitReader
	policy     UnitPolicy
	logger     *zap.Logger
}

// NewSelectionService constructs SelectionService.
func NewSelectionService(selections selectionRepository, courses courseDetailReader, prereqs prerequisiteReader, limits unitLimitReader, policy UnitPolicy, logger *zap.Logger) *SelectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy.DefaultMinUnits <= 0 {
		policy.DefaultMinUnits = 12
	}
	if policy.DefaultMaxUnits <= 0 {
		policy.DefaultMaxUnits = 20
	}
	return &SelectionService{
		selections: selections,
		courses:    courses,
		prereqs:    prereqs,
		limits:     limits,
		policy:     policy,
		logger:     logger,
	}
}

// SelectCourse adds a course to the student's draft schedule. All business
// rules are checked eagerly; when any fail the whole operation fails with
// the full violation list and no state changes.
func (s *SelectionService) SelectCourse(ctx context.Context, studentID, courseID string) (*models.SelectionDetail, error) {
	course, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	violations, err := s.collectViolations(ctx, studentID, course)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "course selection rejected"), violations)
	}

	selection := &models.CourseSelection{StudentID: studentID, CourseID: courseID}
	if err := s.selections.CreateWithCount(ctx, selection); err != nil {
		switch {
		case errors.Is(err, repository.ErrCourseFull):
			// Lost the race for the last seat between rule check and commit.
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "course selection rejected"), []models.RuleViolation{{
				Kind:       models.RuleCapacityExceeded,
				Message:    fmt.Sprintf("course %s capacity is full", course.Code),
				CourseCode: course.Code,
			}})
		case errors.Is(err, repository.ErrDuplicateSelection):
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already selected")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create selection")
	}

	s.logger.Info("course selected",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.String("course_code", course.Code),
	)

	detail := &models.SelectionDetail{
		CourseSelection: *selection,
		CourseCode:      course.Code,
		CourseName:      course.Name,
		Units:           course.Units,
		Day:             course.Day,
		StartTime:       course.StartTime,
		EndTime:         course.EndTime,
		Location:        course.Location,
	}
	return detail, nil
}

// collectViolations evaluates every add-time rule without short-circuiting.
func (s *SelectionService) collectViolations(ctx context.Context, studentID string, course *models.CourseDetail) ([]models.RuleViolation, error) {
	var violations []models.RuleViolation

	if !course.SelectionOpen() {
		violations = append(violations, models.RuleViolation{
			Kind:    models.RuleTermClosed,
			Message: "selection period closed for this term",
		})
	}

	exists, err := s.selections.Exists(ctx, studentID, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing selection")
	}
	if exists {
		violations = append(violations, models.RuleViolation{
			Kind:       models.RuleDuplicateSelection,
			Message:    fmt.Sprintf("course %s already selected", course.Code),
			CourseCode: course.Code,
		})
	}

	if course.EnrolledCount >= course.Capacity {
		violations = append(violations, models.RuleViolation{
			Kind:       models.RuleCapacityExceeded,
			Message:    fmt.Sprintf("course %s capacity is full", course.Code),
			CourseCode: course.Code,
		})
	}

	prereqs, err := s.prereqs.ListForCourse(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	for _, prereq := range prereqs {
		passed, err := s.selections.HasPassedPrerequisite(ctx, studentID, prereq.PrerequisiteID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite")
		}
		if !passed {
			violations = append(violations, models.RuleViolation{
				Kind:       models.RulePrerequisiteUnmet,
				Message:    fmt.Sprintf("prerequisite %s not passed", prereq.PrerequisiteName),
				CourseCode: prereq.PrerequisiteCode,
			})
		}
	}

	selected, err := s.selections.ListCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selected courses")
	}
	for _, existing := range selected {
		if existing.ConflictsWith(course.Course) {
			violations = append(violations, models.RuleViolation{
				Kind:       models.RuleTimeConflict,
				Message:    fmt.Sprintf("time conflict with course %s", existing.Code),
				CourseCode: existing.Code,
			})
			break
		}
	}

	currentUnits, err := s.selections.CurrentUnits(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum current units")
	}
	_, maxUnits, err := s.unitWindow(ctx)
	if err != nil {
		return nil, err
	}
	// The minimum-units floor is deliberately not checked here; it only
	// applies at finalize time so students can build schedules incrementally.
	if newTotal := currentUnits + course.Units; newTotal > maxUnits {
		violations = append(violations, models.RuleViolation{
			Kind:    models.RuleUnitCeiling,
			Message: fmt.Sprintf("selecting %s exceeds the maximum of %d units", course.Code, maxUnits),
			Limit:   maxUnits,
			Total:   newTotal,
		})
	}

	return violations, nil
}

// DropCourse removes a draft selection. Finalized selections are protected:
// dropping one would orphan its grade.
func (s *SelectionService) DropCourse(ctx context.Context, studentID, courseID string) error {
	if err := s.selections.DeleteWithCount(ctx, studentID, courseID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSelectionNotFound):
			return appErrors.Clone(appErrors.ErrNotFound, "course not selected")
		case errors.Is(err, repository.ErrSelectionFinalized):
			return appErrors.Clone(appErrors.ErrFinalized, "selection already finalized")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop selection")
	}

	s.logger.Info("course dropped", zap.String("student_id", studentID), zap.String("course_id", courseID))
	return nil
}

// ProfessorRemoveStudent removes a student from a course the professor owns.
// Same mechanics as DropCourse, gated by ownership instead of self-service.
func (s *SelectionService) ProfessorRemoveStudent(ctx context.Context, professorID, courseID, studentID string) error {
	course, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.ProfessorID == nil || *course.ProfessorID != professorID {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not the professor of this course")
	}

	if err := s.selections.DeleteWithCount(ctx, studentID, courseID); err != nil {
		switch {
		case errors.Is(err, repository.ErrSelectionNotFound):
			return appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in this course")
		case errors.Is(err, repository.ErrSelectionFinalized):
			return appErrors.Clone(appErrors.ErrFinalized, "selection already finalized")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove student")
	}

	s.logger.Info("student removed from course",
		zap.String("professor_id", professorID),
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
	)
	return nil
}

// Finalize flips the student's whole draft set to finalized, enforcing the
// unit window. This is the only point the minimum-units floor applies.
func (s *SelectionService) Finalize(ctx context.Context, studentID string) (*models.FinalizeResult, error) {
	minUnits, maxUnits, err := s.unitWindow(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.selections.FinalizeDraft(ctx, studentID, minUnits, maxUnits)
	if err != nil {
		var window *repository.UnitWindowError
		switch {
		case errors.Is(err, repository.ErrDraftEmpty):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no courses selected")
		case errors.As(err, &window):
			if window.Total < window.Min {
				return nil, appErrors.WithDetails(
					appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("selected units (%d) below the minimum allowed (%d)", window.Total, window.Min)),
					[]models.RuleViolation{{Kind: models.RuleUnitFloor, Message: fmt.Sprintf("%d more units required", window.Min-window.Total), Limit: window.Min, Total: window.Total}},
				)
			}
			return nil, appErrors.WithDetails(
				appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("selected units (%d) above the maximum allowed (%d)", window.Total, window.Max)),
				[]models.RuleViolation{{Kind: models.RuleUnitCeiling, Message: fmt.Sprintf("%d units over the limit", window.Total-window.Max), Limit: window.Max, Total: window.Total}},
			)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize selections")
	}

	s.logger.Info("selection finalized",
		zap.String("student_id", studentID),
		zap.Int("total_units", result.TotalUnits),
		zap.Int("courses", result.Finalized),
	)
	return result, nil
}

// ListDraft returns the student's not-yet-finalized selections with the
// running unit total.
func (s *SelectionService) ListDraft(ctx context.Context, studentID string) (*models.DraftSummary, error) {
	selections, err := s.selections.ListDraft(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list draft selections")
	}
	summary := &models.DraftSummary{Courses: selections}
	for _, selection := range selections {
		summary.TotalUnits += selection.Units
	}
	if summary.Courses == nil {
		summary.Courses = []models.SelectionDetail{}
	}
	return summary, nil
}

// WeeklySchedule groups the student's selected courses by weekday.
func (s *SelectionService) WeeklySchedule(ctx context.Context, studentID string) (map[string][]models.ScheduleEntry, error) {
	courses, err := s.selections.ListCoursesByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selected courses")
	}

	schedule := make(map[string][]models.ScheduleEntry)
	for _, course := range courses {
		schedule[course.Day] = append(schedule[course.Day], models.ScheduleEntry{
			CourseCode: course.Code,
			CourseName: course.Name,
			StartTime:  course.StartTime,
			EndTime:    course.EndTime,
			Location:   course.Location,
		})
	}
	for day := range schedule {
		entries := schedule[day]
		sort.Slice(entries, func(i, j int) bool {
			left, right := entries[i].StartTime, entries[j].StartTime
			if left == nil {
				return right != nil
			}
			if right == nil {
				return false
			}
			return *left < *right
		})
		schedule[day] = entries
	}
	return schedule, nil
}

// CourseRoster lists the selections of a course the professor owns.
func (s *SelectionService) CourseRoster(ctx context.Context, professorID, courseID string) ([]models.SelectionDetail, error) {
	course, err := s.courses.FindDetailByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.ProfessorID == nil || *course.ProfessorID != professorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not the professor of this course")
	}

	roster, err := s.selections.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course roster")
	}
	if roster == nil {
		roster = []models.SelectionDetail{}
	}
	return roster, nil
}

func (s *SelectionService) unitWindow(ctx context.Context) (int, int, error) {
	limit, err := s.limits.Find(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.policy.DefaultMinUnits, s.policy.DefaultMaxUnits, nil
		}
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit limit")
	}
	return limit.MinUnits, limit.MaxUnits, nil
}
