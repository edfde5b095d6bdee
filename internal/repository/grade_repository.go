package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unireg-dev/unireg-api/internal/models"
)

// GradeRepository handles persistence of grades, one per finalized selection.
type GradeRepository struct {
	db *sqlx.DB
}

// NewGradeRepository constructs the repository.
func NewGradeRepository(db *sqlx.DB) *GradeRepository {
	return &GradeRepository{db: db}
}

// FindBySelection loads the grade attached to a selection.
func (r *GradeRepository) FindBySelection(ctx context.Context, selectionID string) (*models.Grade, error) {
	const query = `SELECT id, selection_id, score, status, created_at, updated_at FROM grades WHERE selection_id = $1`
	var grade models.Grade
	if err := r.db.GetContext(ctx, &grade, query, selectionID); err != nil {
		return nil, err
	}
	return &grade, nil
}

// Upsert writes a grade for a selection, recomputing the derived status.
func (r *GradeRepository) Upsert(ctx context.Context, grade *models.Grade) error {
	grade.Status = models.StatusForScore(grade.Score)
	now := time.Now().UTC()
	grade.UpdatedAt = now

	existing, err := r.FindBySelection(ctx, grade.SelectionID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("load grade: %w", err)
	}

	if existing == nil {
		if grade.ID == "" {
			grade.ID = uuid.NewString()
		}
		if grade.CreatedAt.IsZero() {
			grade.CreatedAt = now
		}
		const insert = `INSERT INTO grades (id, selection_id, score, status, created_at, updated_at)
            VALUES (:id, :selection_id, :score, :status, :created_at, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, insert, grade); err != nil {
			return fmt.Errorf("create grade: %w", err)
		}
		return nil
	}

	grade.ID = existing.ID
	grade.CreatedAt = existing.CreatedAt
	const update = `UPDATE grades SET score = :score, status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, update, grade); err != nil {
		return fmt.Errorf("update grade: %w", err)
	}
	return nil
}

// ReportCardRows returns the student's finalized selections for a term with
// the grade score left-joined. Ungraded rows come back with a NULL score.
func (r *GradeRepository) ReportCardRows(ctx context.Context, studentID, termID string) ([]models.ReportCardRow, error) {
	const query = `SELECT c.code AS course_code, c.name AS course_name, c.units, g.score
        FROM course_selections s
        JOIN courses c ON c.id = s.course_id
        LEFT JOIN grades g ON g.selection_id = s.id
        WHERE s.student_id = $1 AND c.term_id = $2 AND s.is_finalized = TRUE
        ORDER BY c.code`
	var rows []models.ReportCardRow
	if err := r.db.SelectContext(ctx, &rows, query, studentID, termID); err != nil {
		return nil, fmt.Errorf("list report card rows: %w", err)
	}
	return rows, nil
}

// ListByCourse returns grades keyed by selection for a course roster.
func (r *GradeRepository) ListByCourse(ctx context.Context, courseID string) (map[string]models.Grade, error) {
	const query = `SELECT g.id, g.selection_id, g.score, g.status, g.created_at, g.updated_at
        FROM grades g
        JOIN course_selections s ON s.id = g.selection_id
        WHERE s.course_id = $1`
	var grades []models.Grade
	if err := r.db.SelectContext(ctx, &grades, query, courseID); err != nil {
		return nil, fmt.Errorf("list course grades: %w", err)
	}
	bySelection := make(map[string]models.Grade, len(grades))
	for _, grade := range grades {
		bySelection[grade.SelectionID] = grade
	}
	return bySelection, nil
}
