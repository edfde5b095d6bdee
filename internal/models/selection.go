package models

import "time"

// CourseSelection is a student's claim on a course. Unique per
// (student, course). Draft until finalized in bulk; deleted on drop.
type CourseSelection struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	CourseID    string    `db:"course_id" json:"course_id"`
	SelectedAt  time.Time `db:"selected_at" json:"selected_at"`
	IsFinalized bool      `db:"is_finalized" json:"is_finalized"`
}

// SelectCourseRequest payload for adding a course to the draft schedule.
type SelectCourseRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

// SelectionDetail joins a selection with its course and student context.
type SelectionDetail struct {
	CourseSelection
	CourseCode  string  `db:"course_code" json:"course_code"`
	CourseName  string  `db:"course_name" json:"course_name"`
	Units       int     `db:"units" json:"units"`
	Day         string  `db:"day" json:"day"`
	StartTime   *string `db:"start_time" json:"start_time,omitempty"`
	EndTime     *string `db:"end_time" json:"end_time,omitempty"`
	Location    string  `db:"location" json:"location"`
	StudentName string  `db:"student_name" json:"student_name"`
}

// DraftSummary lists a student's not-yet-finalized selections.
type DraftSummary struct {
	Courses    []SelectionDetail `json:"courses"`
	TotalUnits int               `json:"total_units"`
}

// FinalizeResult reports a successful finalization.
type FinalizeResult struct {
	TotalUnits int `json:"total_units"`
	Finalized  int `json:"finalized"`
}

// ScheduleEntry is one row of a student's weekly schedule.
type ScheduleEntry struct {
	CourseCode string  `json:"course_code"`
	CourseName string  `json:"course_name"`
	StartTime  *string `json:"start_time,omitempty"`
	EndTime    *string `json:"end_time,omitempty"`
	Location   string  `json:"location"`
}

// RuleViolationKind tags a selection business-rule failure.
type RuleViolationKind string

const (
	RuleTermClosed         RuleViolationKind = "TERM_CLOSED"
	RuleDuplicateSelection RuleViolationKind = "DUPLICATE_SELECTION"
	RuleCapacityExceeded   RuleViolationKind = "CAPACITY_EXCEEDED"
	RulePrerequisiteUnmet  RuleViolationKind = "PREREQUISITE_UNMET"
	RuleTimeConflict       RuleViolationKind = "TIME_CONFLICT"
	RuleUnitCeiling        RuleViolationKind = "UNIT_CEILING"
	RuleUnitFloor          RuleViolationKind = "UNIT_FLOOR"
)

// RuleViolation is one violated selection rule. SelectCourse evaluates every
// rule and reports all violations in a single response, so the caller can
// correct everything in one round-trip.
type RuleViolation struct {
	Kind       RuleViolationKind `json:"kind"`
	Message    string            `json:"message"`
	CourseCode string            `json:"course_code,omitempty"`
	Limit      int               `json:"limit,omitempty"`
	Total      int               `json:"total,omitempty"`
}
