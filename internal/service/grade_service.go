package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
	"github.com/unireg-dev/unireg-api/pkg/export"
)

type gradeRepository interface {
	FindBySelection(ctx context.Context, selectionID string) (*models.Grade, error)
	Upsert(ctx context.Context, grade *models.Grade) error
	ReportCardRows(ctx context.Context, studentID, termID string) ([]models.ReportCardRow, error)
	ListByCourse(ctx context.Context, courseID string) (map[string]models.Grade, error)
}

type selectionFinder interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.CourseSelection, error)
}

type termReader interface {
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
}

// GradeService records scores against finalized selections and builds term
// report cards with the credit-weighted GPA.
type GradeService struct {
	grades     gradeRepository
	selections selectionFinder
	courses    courseDetailReader
	terms      termReader
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	logger     *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(grades gradeRepository, selections selectionFinder, courses courseDetailReader, terms termReader, logger *zap.Logger) *GradeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		grades:     grades,
		selections: selections,
		courses:    courses,
		terms:      terms,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		logger:     logger,
	}
}

// UpsertGrade records a score for a student's selection in a course owned by
// the professor. Only finalized selections can be graded.
func (s *GradeService) UpsertGrade(ctx context.Context, professorID, courseID, studentID string, score float64) (*models.Grade, error) {
	if score < 0 || score > 20 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "score must be between 0 and 20")
	}

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

	selection, err := s.selections.FindByStudentAndCourse(ctx, studentID, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not enrolled in this course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load selection")
	}
	if !selection.IsFinalized {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "selection is not finalized")
	}

	grade := &models.Grade{SelectionID: selection.ID, Score: score}
	if err := s.grades.Upsert(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade")
	}

	s.logger.Info("grade recorded",
		zap.String("professor_id", professorID),
		zap.String("course_id", courseID),
		zap.String("student_id", studentID),
		zap.Float64("score", score),
	)
	return grade, nil
}

// ReportCard builds the student's report card for a term. An empty termID
// resolves to the active term.
func (s *GradeService) ReportCard(ctx context.Context, studentID, termID string) (*models.ReportCard, error) {
	term, err := s.resolveTerm(ctx, termID)
	if err != nil {
		return nil, err
	}

	rows, err := s.grades.ReportCardRows(ctx, studentID, term.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}

	card := &models.ReportCard{TermID: term.ID, TermName: term.Name, Courses: rows}
	if card.Courses == nil {
		card.Courses = []models.ReportCardRow{}
	}

	var weighted float64
	var gradedUnits int
	for i := range card.Courses {
		row := &card.Courses[i]
		if row.Score == nil {
			row.Status = models.GradeStatusUnknown
			continue
		}
		row.Status = models.StatusForScore(*row.Score)
		weighted += *row.Score * float64(row.Units)
		gradedUnits += row.Units
	}
	if gradedUnits > 0 {
		card.GPA = math.Round(weighted/float64(gradedUnits)*100) / 100
	}
	return card, nil
}

// ExportReportCard renders the report card as CSV or PDF bytes.
func (s *GradeService) ExportReportCard(ctx context.Context, studentID, termID, format string) ([]byte, string, error) {
	card, err := s.ReportCard(ctx, studentID, termID)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Course Code", "Course Name", "Units", "Score", "Status"}
	rows := make([]map[string]string, 0, len(card.Courses)+1)
	for _, row := range card.Courses {
		score := "-"
		if row.Score != nil {
			score = fmt.Sprintf("%.2f", *row.Score)
		}
		rows = append(rows, map[string]string{
			"Course Code": row.CourseCode,
			"Course Name": row.CourseName,
			"Units":       fmt.Sprintf("%d", row.Units),
			"Score":       score,
			"Status":      string(row.Status),
		})
	}
	rows = append(rows, map[string]string{
		"Course Code": "",
		"Course Name": "GPA",
		"Units":       "",
		"Score":       fmt.Sprintf("%.2f", card.GPA),
		"Status":      "",
	})
	dataset := export.Dataset{Headers: headers, Rows: rows}

	switch strings.ToLower(format) {
	case "", "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Report Card - %s", card.TermName))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
}

// CourseGrades returns the grades keyed by selection for a course the
// professor owns.
func (s *GradeService) CourseGrades(ctx context.Context, professorID, courseID string) (map[string]models.Grade, error) {
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

	grades, err := s.grades.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course grades")
	}
	return grades, nil
}

func (s *GradeService) resolveTerm(ctx context.Context, termID string) (*models.Term, error) {
	if termID == "" {
		term, err := s.terms.FindActive(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no active term")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
		}
		return term, nil
	}
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}
