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

// UnitLimitRepository handles the singleton unit-load policy row.
type UnitLimitRepository struct {
	db *sqlx.DB
}

// NewUnitLimitRepository constructs the repository.
func NewUnitLimitRepository(db *sqlx.DB) *UnitLimitRepository {
	return &UnitLimitRepository{db: db}
}

// Find returns the policy row, or sql.ErrNoRows when none exists. Callers
// apply configured defaults on miss.
func (r *UnitLimitRepository) Find(ctx context.Context) (*models.UnitLimit, error) {
	const query = `SELECT id, min_units, max_units, updated_at FROM unit_limits ORDER BY updated_at DESC LIMIT 1`
	var limit models.UnitLimit
	if err := r.db.GetContext(ctx, &limit, query); err != nil {
		return nil, err
	}
	return &limit, nil
}

// Upsert writes the singleton policy row.
func (r *UnitLimitRepository) Upsert(ctx context.Context, limit *models.UnitLimit) error {
	existing, err := r.Find(ctx)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("load unit limit: %w", err)
	}

	limit.UpdatedAt = time.Now().UTC()
	if existing == nil {
		if limit.ID == "" {
			limit.ID = uuid.NewString()
		}
		const insert = `INSERT INTO unit_limits (id, min_units, max_units, updated_at) VALUES (:id, :min_units, :max_units, :updated_at)`
		if _, err := r.db.NamedExecContext(ctx, insert, limit); err != nil {
			return fmt.Errorf("create unit limit: %w", err)
		}
		return nil
	}

	limit.ID = existing.ID
	const update = `UPDATE unit_limits SET min_units = :min_units, max_units = :max_units, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, update, limit); err != nil {
		return fmt.Errorf("update unit limit: %w", err)
	}
	return nil
}
