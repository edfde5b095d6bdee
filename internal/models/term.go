package models

import "time"

// Term models an academic period with its course-selection window. The
// is_active flag is a manual admin toggle and is what gates selection; the
// window dates are informational.
type Term struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	StartSelection time.Time `db:"start_selection" json:"start_selection"`
	EndSelection   time.Time `db:"end_selection" json:"end_selection"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// CreateTermRequest payload for adding a term.
type CreateTermRequest struct {
	Name           string    `json:"name" validate:"required"`
	StartSelection time.Time `json:"start_selection" validate:"required"`
	EndSelection   time.Time `json:"end_selection" validate:"required,gtfield=StartSelection"`
}

// UpdateTermRequest payload for modifying a term.
type UpdateTermRequest struct {
	Name           string    `json:"name" validate:"required"`
	StartSelection time.Time `json:"start_selection" validate:"required"`
	EndSelection   time.Time `json:"end_selection" validate:"required,gtfield=StartSelection"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	IsActive  *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
