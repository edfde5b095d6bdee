package models

import "time"

// Course models a catalog entry offered within a term. EnrolledCount is a
// denormalized counter maintained transactionally alongside selection rows;
// invariant: EnrolledCount <= Capacity after any successful add.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Name          string    `db:"name" json:"name"`
	TermID        *string   `db:"term_id" json:"term_id,omitempty"`
	ProfessorID   *string   `db:"professor_id" json:"professor_id,omitempty"`
	Capacity      int       `db:"capacity" json:"capacity"`
	Units         int       `db:"units" json:"units"`
	Day           string    `db:"day" json:"day"`
	StartTime     *string   `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string   `db:"end_time" json:"end_time,omitempty"`
	Location      string    `db:"location" json:"location"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ConflictsWith reports whether two courses overlap in time. Overlap is
// half-open: existing.start < candidate.end AND existing.end >
// candidate.start, on the same weekday. Courses without start or end times
// never conflict. Times are zero-padded "HH:MM" strings, so the string
// comparison is chronological.
func (c Course) ConflictsWith(other Course) bool {
	if c.Day != other.Day {
		return false
	}
	if c.StartTime == nil || c.EndTime == nil || other.StartTime == nil || other.EndTime == nil {
		return false
	}
	return *c.StartTime < *other.EndTime && *c.EndTime > *other.StartTime
}

// CourseDetail enriches Course with term and professor context for rule
// evaluation and API payloads.
type CourseDetail struct {
	Course
	TermName      *string `db:"term_name" json:"term_name,omitempty"`
	TermActive    *bool   `db:"term_active" json:"term_active,omitempty"`
	ProfessorName *string `db:"professor_name" json:"professor_name,omitempty"`
}

// SelectionOpen reports whether the course belongs to a term currently open
// for selection. Courses without a term are closed.
func (c CourseDetail) SelectionOpen() bool {
	return c.TermActive != nil && *c.TermActive
}

// CourseFilter provides filters for catalog listing.
type CourseFilter struct {
	TermID      string
	ProfessorID string
	Day         string
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// Prerequisite is a directed edge: course requires prerequisite. No
// self-loops, at most one edge per ordered pair.
type Prerequisite struct {
	ID             string    `db:"id" json:"id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	PrerequisiteID string    `db:"prerequisite_id" json:"prerequisite_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PrerequisiteDetail carries the prerequisite course identity for rule
// messages and admin listings.
type PrerequisiteDetail struct {
	Prerequisite
	PrerequisiteCode string `db:"prerequisite_code" json:"prerequisite_code"`
	PrerequisiteName string `db:"prerequisite_name" json:"prerequisite_name"`
}

// UnitLimit is the singleton unit-load policy. When no row exists the
// configured defaults apply.
type UnitLimit struct {
	ID        string    `db:"id" json:"id"`
	MinUnits  int       `db:"min_units" json:"min_units"`
	MaxUnits  int       `db:"max_units" json:"max_units"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CreateCourseRequest payload for adding a catalog course.
type CreateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	TermID      *string `json:"term_id,omitempty"`
	ProfessorID *string `json:"professor_id,omitempty"`
	Capacity    int     `json:"capacity" validate:"required,min=1"`
	Units       int     `json:"units" validate:"required,min=1,max=4"`
	Day         string  `json:"day" validate:"required"`
	StartTime   *string `json:"start_time,omitempty" validate:"omitempty,len=5"`
	EndTime     *string `json:"end_time,omitempty" validate:"omitempty,len=5"`
	Location    string  `json:"location"`
}

// UpdateCourseRequest payload for modifying a catalog course.
type UpdateCourseRequest struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	TermID      *string `json:"term_id,omitempty"`
	ProfessorID *string `json:"professor_id,omitempty"`
	Capacity    int     `json:"capacity" validate:"required,min=1"`
	Units       int     `json:"units" validate:"required,min=1,max=4"`
	Day         string  `json:"day" validate:"required"`
	StartTime   *string `json:"start_time,omitempty" validate:"omitempty,len=5"`
	EndTime     *string `json:"end_time,omitempty" validate:"omitempty,len=5"`
	Location    string  `json:"location"`
}

// AddPrerequisiteRequest payload for creating a prerequisite edge.
type AddPrerequisiteRequest struct {
	PrerequisiteID string `json:"prerequisite_id" validate:"required"`
}

// UpdateUnitLimitRequest payload for rewriting the unit-load policy.
type UpdateUnitLimitRequest struct {
	MinUnits int `json:"min_units" validate:"required,min=1"`
	MaxUnits int `json:"max_units" validate:"required,min=1"`
}
