package models

import "time"

// GradeStatus is derived from the score on every save.
type GradeStatus string

const (
	GradeStatusPassed  GradeStatus = "passed"
	GradeStatusFailed  GradeStatus = "failed"
	GradeStatusUnknown GradeStatus = "unknown"
)

// PassingScore is the minimum score counting as a pass, on the 0-20 scale.
const PassingScore = 10.0

// StatusForScore derives the grade status from a score.
func StatusForScore(score float64) GradeStatus {
	if score >= PassingScore {
		return GradeStatusPassed
	}
	return GradeStatusFailed
}

// Grade holds the score for one finalized course selection.
type Grade struct {
	ID          string      `db:"id" json:"id"`
	SelectionID string      `db:"selection_id" json:"selection_id"`
	Score       float64     `db:"score" json:"score"`
	Status      GradeStatus `db:"status" json:"status"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// ReportCardRow is one finalized course on a student's report card. Score is
// nil when no grade has been recorded yet; such rows are excluded from GPA
// arithmetic and reported with status unknown.
type ReportCardRow struct {
	CourseCode string      `db:"course_code" json:"course_code"`
	CourseName string      `db:"course_name" json:"course_name"`
	Units      int         `db:"units" json:"units"`
	Score      *float64    `db:"score" json:"score,omitempty"`
	Status     GradeStatus `json:"status"`
}

// GradeRequest payload for recording a score.
type GradeRequest struct {
	Score float64 `json:"score" validate:"min=0,max=20"`
}

// ReportCard aggregates a student's finalized, graded selections for a term.
// GPA is credit-weighted over graded rows only.
type ReportCard struct {
	TermID   string          `json:"term_id"`
	TermName string          `json:"term_name"`
	Courses  []ReportCardRow `json:"courses"`
	GPA      float64         `json:"gpa"`
}
