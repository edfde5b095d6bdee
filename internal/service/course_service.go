package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
	CountSelections(ctx context.Context, id string) (int, error)
}

type prerequisiteRepository interface {
	ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error)
	Exists(ctx context.Context, courseID, prerequisiteID string) (bool, error)
	Create(ctx context.Context, prereq *models.Prerequisite) error
	Delete(ctx context.Context, id string) error
}

type unitLimitRepository interface {
	Find(ctx context.Context) (*models.UnitLimit, error)
	Upsert(ctx context.Context, limit *models.UnitLimit) error
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

const catalogCachePrefix = "catalog:courses"

type courseListPayload struct {
	Courses    []models.CourseDetail `json:"courses"`
	Pagination models.Pagination     `json:"pagination"`
}

// CourseService manages the course catalog: courses, prerequisite edges and
// the unit-load policy. Catalog listings are the hottest read path during
// selection windows, so they go through a Redis read-through cache which is
// invalidated on every catalog write.
type CourseService struct {
	courses   courseRepository
	prereqs   prerequisiteRepository
	limits    unitLimitRepository
	cache     catalogCache
	cacheTTL  time.Duration
	useCache  bool
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService. A nil cache disables caching.
func NewCourseService(courses courseRepository, prereqs prerequisiteRepository, limits unitLimitRepository, cache catalogCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CourseService{
		courses:   courses,
		prereqs:   prereqs,
		limits:    limits,
		cache:     cache,
		cacheTTL:  cacheTTL,
		useCache:  cache != nil,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns catalog courses, cached per filter combination.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, models.Pagination, error) {
	key := s.cacheKey(filter)
	if s.useCache {
		var cached courseListPayload
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return cached.Courses, cached.Pagination, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if courses == nil {
		courses = []models.CourseDetail{}
	}
	pagination := models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.PageSize <= 0 || pagination.PageSize > 100 {
		pagination.PageSize = 20
	}

	if s.useCache {
		if err := s.cache.Set(ctx, key, courseListPayload{Courses: courses, Pagination: pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return courses, pagination, nil
}

// Get loads one course with its term, professor and prerequisites.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, []models.PrerequisiteDetail, error) {
	course, err := s.courses.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	prereqs, err := s.prereqs.ListForCourse(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisites")
	}
	if prereqs == nil {
		prereqs = []models.PrerequisiteDetail{}
	}
	return course, prereqs, nil
}

// Create adds a catalog course.
func (s *CourseService) Create(ctx context.Context, req models.CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := validateTimeWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	exists, err := s.courses.ExistsByCode(ctx, req.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course code %s already exists", req.Code))
	}

	course := &models.Course{
		Code:        req.Code,
		Name:        req.Name,
		TermID:      req.TermID,
		ProfessorID: req.ProfessorID,
		Capacity:    req.Capacity,
		Units:       req.Units,
		Day:         req.Day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
	}
	if err := s.courses.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Update modifies a catalog course. Capacity may not drop below the current
// enrollment.
func (s *CourseService) Update(ctx context.Context, id string, req models.UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if err := validateTimeWindow(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if req.Code != course.Code {
		exists, err := s.courses.ExistsByCode(ctx, req.Code, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course code")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course code %s already exists", req.Code))
		}
	}
	if req.Capacity < course.EnrolledCount {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("capacity %d is below current enrollment %d", req.Capacity, course.EnrolledCount))
	}

	course.Code = req.Code
	course.Name = req.Name
	course.TermID = req.TermID
	course.ProfessorID = req.ProfessorID
	course.Capacity = req.Capacity
	course.Units = req.Units
	course.Day = req.Day
	course.StartTime = req.StartTime
	course.EndTime = req.EndTime
	course.Location = req.Location

	if err := s.courses.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course updated", zap.String("course_id", course.ID), zap.String("code", course.Code))
	return course, nil
}

// Delete removes a course that has no selections referencing it.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.courses.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	count, err := s.courses.CountSelections(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count course selections")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course has selections and cannot be deleted")
	}

	if err := s.courses.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("course deleted", zap.String("course_id", id))
	return nil
}

// AddPrerequisite creates a prerequisite edge for a course.
func (s *CourseService) AddPrerequisite(ctx context.Context, courseID string, req models.AddPrerequisiteRequest) (*models.Prerequisite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if courseID == req.PrerequisiteID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a course cannot be its own prerequisite")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if _, err := s.courses.FindByID(ctx, req.PrerequisiteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prerequisite course")
	}

	exists, err := s.prereqs.Exists(ctx, courseID, req.PrerequisiteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check prerequisite edge")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "prerequisite already defined")
	}

	prereq := &models.Prerequisite{CourseID: courseID, PrerequisiteID: req.PrerequisiteID}
	if err := s.prereqs.Create(ctx, prereq); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create prerequisite")
	}

	s.invalidateCatalog(ctx)
	s.logger.Info("prerequisite added", zap.String("course_id", courseID), zap.String("prerequisite_id", req.PrerequisiteID))
	return prereq, nil
}

// RemovePrerequisite deletes a prerequisite edge by its identifier.
func (s *CourseService) RemovePrerequisite(ctx context.Context, prereqID string) error {
	if err := s.prereqs.Delete(ctx, prereqID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete prerequisite")
	}
	s.invalidateCatalog(ctx)
	return nil
}

// UnitLimit returns the current unit-load policy, falling back to defaults
// when no row exists.
func (s *CourseService) UnitLimit(ctx context.Context, fallback models.UnitLimit) (*models.UnitLimit, error) {
	limit, err := s.limits.Find(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &fallback, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unit limit")
	}
	return limit, nil
}

// UpdateUnitLimit rewrites the unit-load policy.
func (s *CourseService) UpdateUnitLimit(ctx context.Context, req models.UpdateUnitLimitRequest) (*models.UnitLimit, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if req.MinUnits > req.MaxUnits {
		return nil, appErrors.Clone(appErrors.ErrValidation, "min_units cannot exceed max_units")
	}

	limit := &models.UnitLimit{MinUnits: req.MinUnits, MaxUnits: req.MaxUnits}
	if err := s.limits.Upsert(ctx, limit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save unit limit")
	}

	s.logger.Info("unit limit updated", zap.Int("min_units", limit.MinUnits), zap.Int("max_units", limit.MaxUnits))
	return limit, nil
}

func (s *CourseService) cacheKey(filter models.CourseFilter) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%d:%d:%s:%s",
		catalogCachePrefix, filter.TermID, filter.ProfessorID, filter.Day, filter.Search,
		filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if !s.useCache {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, catalogCachePrefix+":*"); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
}

func validateTimeWindow(start, end *string) error {
	if (start == nil) != (end == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if start != nil && *start >= *end {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}
	return nil
}
