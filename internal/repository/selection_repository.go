package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unireg-dev/unireg-api/internal/models"
)

// Sentinel errors surfaced by selection mutations. The service layer maps
// them onto API error kinds.
var (
	ErrDuplicateSelection = errors.New("selection already exists")
	ErrCourseFull         = errors.New("course capacity reached")
	ErrSelectionNotFound  = errors.New("selection not found")
	ErrSelectionFinalized = errors.New("selection is finalized")
	ErrDraftEmpty         = errors.New("no draft selections")
)

// UnitWindowError reports a finalize attempt outside the allowed unit window.
type UnitWindowError struct {
	Total int
	Min   int
	Max   int
}

func (e *UnitWindowError) Error() string {
	return fmt.Sprintf("draft units %d outside window [%d, %d]", e.Total, e.Min, e.Max)
}

// SelectionRepository handles persistence of course selections. All
// mutations that touch the denormalized courses.enrolled_count run in a
// single transaction holding a FOR UPDATE lock on the course row, so the
// capacity check and the counter change are never separable.
type SelectionRepository struct {
	db *sqlx.DB
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// Exists checks whether the student already holds a selection for the course.
func (r *SelectionRepository) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM course_selections WHERE student_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check selection exists: %w", err)
	}
	return true, nil
}

// CurrentUnits sums the units of all of the student's selections, draft and
// finalized alike. Returns 0 when the student has none.
func (r *SelectionRepository) CurrentUnits(ctx context.Context, studentID string) (int, error) {
	const query = `SELECT COALESCE(SUM(c.units), 0)
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        WHERE s.student_id = $1`
	var units int
	if err := r.db.GetContext(ctx, &units, query, studentID); err != nil {
		return 0, fmt.Errorf("sum current units: %w", err)
	}
	return units, nil
}

// HasPassedPrerequisite reports whether the student holds a finalized
// selection for the course with a passing grade.
func (r *SelectionRepository) HasPassedPrerequisite(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM course_selections s
        JOIN grades g ON g.selection_id = s.id
        WHERE s.student_id = $1 AND s.course_id = $2 AND s.is_finalized = TRUE AND g.score >= $3
        LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.PassingScore); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite pass: %w", err)
	}
	return true, nil
}

// ListCoursesByStudent returns the courses behind the student's selections,
// used for time-conflict detection.
func (r *SelectionRepository) ListCoursesByStudent(ctx context.Context, studentID string) ([]models.Course, error) {
	const query = `SELECT c.id, c.code, c.name, c.term_id, c.professor_id, c.capacity, c.units, c.day,
        c.start_time, c.end_time, c.location, c.enrolled_count, c.created_at, c.updated_at
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        WHERE s.student_id = $1`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, fmt.Errorf("list selected courses: %w", err)
	}
	return courses, nil
}

// ListDraft returns the student's not-yet-finalized selections with course
// context, oldest first.
func (r *SelectionRepository) ListDraft(ctx context.Context, studentID string) ([]models.SelectionDetail, error) {
	const query = `SELECT s.id, s.student_id, s.course_id, s.selected_at, s.is_finalized,
        c.code AS course_code, c.name AS course_name, c.units, c.day, c.start_time, c.end_time, c.location,
        '' AS student_name
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        WHERE s.student_id = $1 AND s.is_finalized = FALSE
        ORDER BY s.selected_at`
	var selections []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &selections, query, studentID); err != nil {
		return nil, fmt.Errorf("list draft selections: %w", err)
	}
	return selections, nil
}

// ListByCourse returns the roster of selections for a course ordered by
// student last name.
func (r *SelectionRepository) ListByCourse(ctx context.Context, courseID string) ([]models.SelectionDetail, error) {
	const query = `SELECT s.id, s.student_id, s.course_id, s.selected_at, s.is_finalized,
        c.code AS course_code, c.name AS course_name, c.units, c.day, c.start_time, c.end_time, c.location,
        u.first_name || ' ' || u.last_name AS student_name
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        JOIN users u ON u.id = s.student_id
        WHERE s.course_id = $1
        ORDER BY u.last_name, u.first_name`
	var selections []models.SelectionDetail
	if err := r.db.SelectContext(ctx, &selections, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return selections, nil
}

// FindByStudentAndCourse loads one selection row.
func (r *SelectionRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.CourseSelection, error) {
	const query = `SELECT id, student_id, course_id, selected_at, is_finalized
        FROM course_selections WHERE student_id = $1 AND course_id = $2`
	var selection models.CourseSelection
	if err := r.db.GetContext(ctx, &selection, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &selection, nil
}

// CreateWithCount inserts a draft selection and increments the course
// enrolled count in one transaction. The course row is locked first so the
// capacity re-check and the increment are atomic; a racing duplicate insert
// is caught by the unique (student_id, course_id) constraint.
func (r *SelectionRepository) CreateWithCount(ctx context.Context, selection *models.CourseSelection) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin select tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var course struct {
		Capacity      int `db:"capacity"`
		EnrolledCount int `db:"enrolled_count"`
	}
	if err = tx.GetContext(ctx, &course, `SELECT capacity, enrolled_count FROM courses WHERE id = $1 FOR UPDATE`, selection.CourseID); err != nil {
		return err
	}
	if course.EnrolledCount >= course.Capacity {
		err = ErrCourseFull
		return err
	}

	if selection.ID == "" {
		selection.ID = uuid.NewString()
	}
	if selection.SelectedAt.IsZero() {
		selection.SelectedAt = time.Now().UTC()
	}
	if _, err = tx.NamedExecContext(ctx, `INSERT INTO course_selections (id, student_id, course_id, selected_at, is_finalized)
        VALUES (:id, :student_id, :course_id, :selected_at, :is_finalized)`, selection); err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateSelection
			return err
		}
		return fmt.Errorf("create selection: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE courses SET enrolled_count = enrolled_count + 1, updated_at = $2 WHERE id = $1`, selection.CourseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("increment enrolled count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit select tx: %w", err)
	}
	return nil
}

// DeleteWithCount removes a selection and decrements the course enrolled
// count in one transaction. Finalized selections are refused; the decrement
// is floored at zero.
func (r *SelectionRepository) DeleteWithCount(ctx context.Context, studentID, courseID string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var selection models.CourseSelection
	if err = tx.GetContext(ctx, &selection, `SELECT id, student_id, course_id, selected_at, is_finalized
        FROM course_selections WHERE student_id = $1 AND course_id = $2 FOR UPDATE`, studentID, courseID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSelectionNotFound
		}
		return err
	}
	if selection.IsFinalized {
		err = ErrSelectionFinalized
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM course_selections WHERE id = $1`, selection.ID); err != nil {
		return fmt.Errorf("delete selection: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `UPDATE courses SET enrolled_count = GREATEST(enrolled_count - 1, 0), updated_at = $2 WHERE id = $1`, courseID, time.Now().UTC()); err != nil {
		return fmt.Errorf("decrement enrolled count: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit drop tx: %w", err)
	}
	return nil
}

// FinalizeDraft locks the student's draft rows, checks the total units
// against the allowed window and flips every row to finalized in one bulk
// update. Nothing changes state when the window check fails.
func (r *SelectionRepository) FinalizeDraft(ctx context.Context, studentID string, minUnits, maxUnits int) (result *models.FinalizeResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var draft []struct {
		ID    string `db:"id"`
		Units int    `db:"units"`
	}
	if err = tx.SelectContext(ctx, &draft, `SELECT s.id, c.units
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        WHERE s.student_id = $1 AND s.is_finalized = FALSE
        FOR UPDATE OF s`, studentID); err != nil {
		return nil, fmt.Errorf("lock draft selections: %w", err)
	}
	if len(draft) == 0 {
		err = ErrDraftEmpty
		return nil, err
	}

	total := 0
	for _, row := range draft {
		total += row.Units
	}
	if total < minUnits || total > maxUnits {
		err = &UnitWindowError{Total: total, Min: minUnits, Max: maxUnits}
		return nil, err
	}

	if _, err = tx.ExecContext(ctx, `UPDATE course_selections SET is_finalized = TRUE WHERE student_id = $1 AND is_finalized = FALSE`, studentID); err != nil {
		return nil, fmt.Errorf("finalize draft selections: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize tx: %w", err)
	}
	return &models.FinalizeResult{TotalUnits: total, Finalized: len(draft)}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
