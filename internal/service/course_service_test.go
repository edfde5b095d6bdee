package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unireg-dev/unireg-api/internal/models"
	appErrors "github.com/unireg-dev/unireg-api/pkg/errors"
)

type courseRepoStub struct {
	listed    []models.CourseDetail
	listCalls int
	courses   map[string]*models.Course
	codes     map[string]bool
	created   []models.Course
	updated   []models.Course
	deleted   []string
	selCount  int
}

func (s *courseRepoStub) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	s.listCalls++
	return s.listed, len(s.listed), nil
}

func (s *courseRepoStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if course, ok := s.courses[id]; ok {
		return course, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRepoStub) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if course, ok := s.courses[id]; ok {
		return &models.CourseDetail{Course: *course}, nil
	}
	return nil, sql.ErrNoRows
}

func (s *courseRepoStub) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	return s.codes[code], nil
}

func (s *courseRepoStub) Create(ctx context.Context, course *models.Course) error {
	course.ID = "generated"
	s.created = append(s.created, *course)
	return nil
}

func (s *courseRepoStub) Update(ctx context.Context, course *models.Course) error {
	s.updated = append(s.updated, *course)
	return nil
}

func (s *courseRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *courseRepoStub) CountSelections(ctx context.Context, id string) (int, error) {
	return s.selCount, nil
}

type prereqRepoStub struct {
	edges   map[string]bool
	created []models.Prerequisite
	delErr  error
}

func (s *prereqRepoStub) ListForCourse(ctx context.Context, courseID string) ([]models.PrerequisiteDetail, error) {
	return nil, nil
}

func (s *prereqRepoStub) Exists(ctx context.Context, courseID, prerequisiteID string) (bool, error) {
	return s.edges[courseID+"/"+prerequisiteID], nil
}

func (s *prereqRepoStub) Create(ctx context.Context, prereq *models.Prerequisite) error {
	s.created = append(s.created, *prereq)
	return nil
}

func (s *prereqRepoStub) Delete(ctx context.Context, id string) error {
	return s.delErr
}

type unitLimitRepoStub struct {
	limit    *models.UnitLimit
	upserted []models.UnitLimit
}

func (s *unitLimitRepoStub) Find(ctx context.Context) (*models.UnitLimit, error) {
	if s.limit == nil {
		return nil, sql.ErrNoRows
	}
	return s.limit, nil
}

func (s *unitLimitRepoStub) Upsert(ctx context.Context, limit *models.UnitLimit) error {
	s.upserted = append(s.upserted, *limit)
	s.limit = limit
	return nil
}

type fakeCache struct {
	store       map[string][]byte
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{store: map[string][]byte{}}
}

func (f *fakeCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	return nil
}

func (f *fakeCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.store {
		if strings.HasPrefix(key, prefix) {
			delete(f.store, key)
		}
	}
	f.invalidated++
	return nil
}

func newCatalogService(courses *courseRepoStub, prereqs *prereqRepoStub, limits *unitLimitRepoStub, cache catalogCache) *CourseService {
	return NewCourseService(courses, prereqs, limits, cache, time.Minute, nil, nil, nil)
}

func validCourseRequest() models.CreateCourseRequest {
	return models.CreateCourseRequest{
		Code:      "CS101",
		Name:      "Intro to CS",
		Capacity:  30,
		Units:     3,
		Day:       "monday",
		StartTime: strPtr("08:00"),
		EndTime:   strPtr("10:00"),
	}
}

func TestCourseListReadsThroughCache(t *testing.T) {
	repo := &courseRepoStub{listed: []models.CourseDetail{{Course: models.Course{ID: "c1", Code: "CS101"}}}}
	cache := newFakeCache()
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, cache)

	first, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.listCalls)

	second, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 1, repo.listCalls, "second read should come from cache")
}

func TestCourseCreateInvalidatesCache(t *testing.T) {
	repo := &courseRepoStub{}
	cache := newFakeCache()
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, cache)

	_, _, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validCourseRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
	assert.Empty(t, cache.store)
}

func TestCourseCreateDuplicateCode(t *testing.T) {
	repo := &courseRepoStub{codes: map[string]bool{"CS101": true}}
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	_, err := svc.Create(context.Background(), validCourseRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateInvertedTimeWindow(t *testing.T) {
	svc := newCatalogService(&courseRepoStub{}, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	req := validCourseRequest()
	req.StartTime = strPtr("10:00")
	req.EndTime = strPtr("08:00")
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCourseUpdateCapacityBelowEnrollment(t *testing.T) {
	repo := &courseRepoStub{courses: map[string]*models.Course{
		"c1": {ID: "c1", Code: "CS101", Capacity: 30, EnrolledCount: 25},
	}}
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	req := models.UpdateCourseRequest{
		Code: "CS101", Name: "Intro", Capacity: 20, Units: 3, Day: "monday",
		StartTime: strPtr("08:00"), EndTime: strPtr("10:00"),
	}
	_, err := svc.Update(context.Background(), "c1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}

func TestCourseDeleteRefusedWithSelections(t *testing.T) {
	repo := &courseRepoStub{
		courses:  map[string]*models.Course{"c1": {ID: "c1"}},
		selCount: 2,
	}
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	err := svc.Delete(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}

func TestAddPrerequisiteSelfLoop(t *testing.T) {
	repo := &courseRepoStub{courses: map[string]*models.Course{"c1": {ID: "c1"}}}
	svc := newCatalogService(repo, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	_, err := svc.AddPrerequisite(context.Background(), "c1", models.AddPrerequisiteRequest{PrerequisiteID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAddPrerequisiteDuplicateEdge(t *testing.T) {
	repo := &courseRepoStub{courses: map[string]*models.Course{"c1": {ID: "c1"}, "c2": {ID: "c2"}}}
	prereqs := &prereqRepoStub{edges: map[string]bool{"c1/c2": true}}
	svc := newCatalogService(repo, prereqs, &unitLimitRepoStub{}, nil)

	_, err := svc.AddPrerequisite(context.Background(), "c1", models.AddPrerequisiteRequest{PrerequisiteID: "c2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAddPrerequisite(t *testing.T) {
	repo := &courseRepoStub{courses: map[string]*models.Course{"c1": {ID: "c1"}, "c2": {ID: "c2"}}}
	prereqs := &prereqRepoStub{}
	svc := newCatalogService(repo, prereqs, &unitLimitRepoStub{}, nil)

	prereq, err := svc.AddPrerequisite(context.Background(), "c1", models.AddPrerequisiteRequest{PrerequisiteID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "c1", prereq.CourseID)
	assert.Equal(t, "c2", prereq.PrerequisiteID)
	require.Len(t, prereqs.created, 1)
}

func TestUnitLimitFallback(t *testing.T) {
	svc := newCatalogService(&courseRepoStub{}, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	limit, err := svc.UnitLimit(context.Background(), models.UnitLimit{MinUnits: 12, MaxUnits: 20})
	require.NoError(t, err)
	assert.Equal(t, 12, limit.MinUnits)
	assert.Equal(t, 20, limit.MaxUnits)
}

func TestUpdateUnitLimitInvertedWindow(t *testing.T) {
	svc := newCatalogService(&courseRepoStub{}, &prereqRepoStub{}, &unitLimitRepoStub{}, nil)

	_, err := svc.UpdateUnitLimit(context.Background(), models.UpdateUnitLimitRequest{MinUnits: 22, MaxUnits: 20})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUpdateUnitLimit(t *testing.T) {
	limits := &unitLimitRepoStub{}
	svc := newCatalogService(&courseRepoStub{}, &prereqRepoStub{}, limits, nil)

	limit, err := svc.UpdateUnitLimit(context.Background(), models.UpdateUnitLimitRequest{MinUnits: 10, MaxUnits: 18})
	require.NoError(t, err)
	assert.Equal(t, 10, limit.MinUnits)
	require.Len(t, limits.upserted, 1)
}

func TestRemovePrerequisiteNotFound(t *testing.T) {
	prereqs := &prereqRepoStub{delErr: sql.ErrNoRows}
	svc := newCatalogService(&courseRepoStub{}, prereqs, &unitLimitRepoStub{}, nil)

	err := svc.RemovePrerequisite(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
