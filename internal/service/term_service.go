package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.Term, int, error)
	FindByID(ctx context.Context, id string) (*models.Term, error)
	FindActive(ctx context.Context) (*models.Term, error)
	Create(ctx context.Context, term *models.Term) error
	Update(ctx context.Context, term *models.Term) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	CountCourses(ctx context.Context, id string) (int, error)
}

// TermService manages academic terms. Activation is exclusive: turning one
// term on turns every other term off in the same transaction.
type TermService struct {
	terms     termRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService constructs TermService.
func NewTermService(terms termRepository, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{terms: terms, validator: validate, logger: logger}
}

// List returns terms matching the filter.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.Term, models.Pagination, error) {
	terms, total, err := s.terms.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	if terms == nil {
		terms = []models.Term{}
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.PageSize <= 0 || pagination.PageSize > 100 {
		pagination.PageSize = 20
	}
	return terms, pagination, nil
}

// Get loads a term by identifier.
func (s *TermService) Get(ctx context.Context, id string) (*models.Term, error) {
	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// Active returns the currently active term, if any.
func (s *TermService) Active(ctx context.Context) (*models.Term, error) {
	term, err := s.terms.FindActive(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active term")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active term")
	}
	return term, nil
}

// Create adds a new term. Terms start inactive.
func (s *TermService) Create(ctx context.Context, req models.CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	term := &models.Term{
		Name:           req.Name,
		StartSelection: req.StartSelection,
		EndSelection:   req.EndSelection,
	}
	if err := s.terms.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}

	s.logger.Info("term created", zap.String("term_id", term.ID), zap.String("name", term.Name))
	return term, nil
}

// Update modifies a term's name and selection window.
func (s *TermService) Update(ctx context.Context, id string, req models.UpdateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	term, err := s.terms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	term.Name = req.Name
	term.StartSelection = req.StartSelection
	term.EndSelection = req.EndSelection
	if err := s.terms.Update(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}

	s.logger.Info("term updated", zap.String("term_id", term.ID))
	return term, nil
}

// SetActive toggles a term's activation. Activation deactivates every other
// term so at most one term is open at any time.
func (s *TermService) SetActive(ctx context.Context, id string, active bool) (*models.Term, error) {
	if err := s.terms.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle term activation")
	}

	s.logger.Info("term activation changed", zap.String("term_id", id), zap.Bool("active", active))
	return s.Get(ctx, id)
}

// Delete removes a term with no courses attached.
func (s *TermService) Delete(ctx context.Context, id string) error {
	if _, err := s.terms.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}

	count, err := s.terms.CountCourses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count term courses")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "term has courses and cannot be deleted")
	}

	if err := s.terms.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete term")
	}

	s.logger.Info("term deleted", zap.String("term_id", id))
	return nil
}
