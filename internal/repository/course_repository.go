package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unireg-dev/unireg-api/internal/models"
)

// CourseRepository handles persistence for catalog courses.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `c.id, c.code, c.name, c.term_id, c.professor_id, c.capacity, c.units, c.day,
        c.start_time, c.end_time, c.location, c.enrolled_count, c.created_at, c.updated_at`

// List returns courses matching the provided filters.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c
LEFT JOIN terms t ON t.id = c.term_id
LEFT JOIN users p ON p.id = c.professor_id`
	var conditions []string
	var args []interface{}

	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("c.term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Day != "" {
		conditions = append(conditions, fmt.Sprintf("c.day = $%d", len(args)+1))
		args = append(args, filter.Day)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(c.code ILIKE $%d OR c.name ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":     "c.code",
		"name":     "c.name",
		"units":    "c.units",
		"capacity": "c.capacity",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, t.name AS term_name, t.is_active AS term_active,
        p.first_name || ' ' || p.last_name AS professor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, courseColumns, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID loads a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses c WHERE c.id = $1`, courseColumns)
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID loads a course with its term and professor context. The
// selection rule engine reads the term_active flag from here.
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	query := fmt.Sprintf(`SELECT %s, t.name AS term_name, t.is_active AS term_active,
        p.first_name || ' ' || p.last_name AS professor_name
        FROM courses c
        LEFT JOIN terms t ON t.id = c.term_id
        LEFT JOIN users p ON p.id = c.professor_id
        WHERE c.id = $1`, courseColumns)
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsByCode checks course code uniqueness.
func (r *CourseRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	query := "SELECT 1 FROM courses WHERE code = $1"
	args := []interface{}{code}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course code: %w", err)
	}
	return true, nil
}

// Create inserts a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now

	const query = `INSERT INTO courses (id, code, name, term_id, professor_id, capacity, units, day, start_time, end_time, location, enrolled_count, created_at, updated_at)
        VALUES (:id, :code, :name, :term_id, :professor_id, :capacity, :units, :day, :start_time, :end_time, :location, :enrolled_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies an existing course. The enrolled_count column is owned by
// the selection transactions and deliberately left out.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET code = :code, name = :name, term_id = :term_id, professor_id = :professor_id,
        capacity = :capacity, units = :units, day = :day, start_time = :start_time, end_time = :end_time,
        location = :location, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Delete removes a course permanently.
func (r *CourseRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// CountSelections returns the number of selection rows referencing a course.
func (r *CourseRepository) CountSelections(ctx context.Context, id string) (int, error) {
	const query = `SELECT COUNT(*) FROM course_selections WHERE course_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, id); err != nil {
		return 0, fmt.Errorf("count course selections: %w", err)
	}
	return count, nil
}
