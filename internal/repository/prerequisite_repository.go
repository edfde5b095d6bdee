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

// PrerequisiteRepository handles the course prerequisite edges.
type PrerequisiteRepository struct {
	db *sqlx.DB
}

// NewPrerequisiteRepository constructs the repository.
func NewPrerequisiteRepository(db *sqlx.DB) *PrerequisiteRepository {
	return &PrerequisiteRepository{db: db}
}

// ListForCourse returns the prerequisite edges of a course with the
// prerequisite course identity attached.
func (r *PrerequisiteRepository) ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	const query = `SELECT p.id, p.course_id, p.prerequisite_id, p.created_at,
        c.code AS prerequisite_code, c.name AS prerequisite_name
        FROM prerequisites p
        JOIN courses c ON c.id = p.prerequisite_id
        WHERE p.course_id = $1
        ORDER BY c.code`
	var prereqs []models.PrerequisiteDetail
	if err := r.db.SelectContext(ctx, &prereqs, query, courseID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

// Exists checks whether the ordered edge already exists.
func (r *PrerequisiteRepository) Exists(ctx context.Context, courseID, prerequisiteID string) (bool, error) {
	const query = `SELECT 1 FROM prerequisites WHERE course_id = $1 AND prerequisite_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, prerequisiteID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check prerequisite edge: %w", err)
	}
	return true, nil
}

// Create inserts a prerequisite edge.
func (r *PrerequisiteRepository) Create(ctx context.Context, prereq *models.Prerequisite) error {
	if prereq.ID == "" {
		prereq.ID = uuid.NewString()
	}
	if prereq.CreatedAt.IsZero() {
		prereq.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO prerequisites (id, course_id, prerequisite_id, created_at)
        VALUES (:id, :course_id, :prerequisite_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, prereq); err != nil {
		return fmt.Errorf("create prerequisite: %w", err)
	}
	return nil
}

// Delete removes a prerequisite edge.
func (r *PrerequisiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM prerequisites WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete prerequisite: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
