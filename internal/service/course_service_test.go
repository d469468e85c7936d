package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/database"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type memCourseRepo struct {
	courses   []models.Course
	listCalls int
}

func (m *memCourseRepo) List(ctx context.Context) ([]models.Course, error) {
	m.listCalls++
	return append([]models.Course(nil), m.courses...), nil
}

func (m *memCourseRepo) Create(ctx context.Context, course *models.Course) error {
	for _, c := range m.courses {
		if c.Name == course.Name {
			return &pq.Error{Code: "23505", Constraint: database.ConstraintCoursesName}
		}
	}
	m.courses = append(m.courses, *course)
	return nil
}

func (m *memCourseRepo) DeleteByName(ctx context.Context, name string) error {
	kept := m.courses[:0]
	for _, c := range m.courses {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	m.courses = kept
	return nil
}

func (m *memCourseRepo) Exists(ctx context.Context, name string) (bool, error) {
	for _, c := range m.courses {
		if c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

type memCache struct {
	items map[string][]byte
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = raw
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func newCourseFixture() (*CourseService, *memCourseRepo) {
	repo := &memCourseRepo{}
	cache := NewCacheService(&memCache{items: map[string][]byte{}}, NewMetricsService(), time.Minute, zap.NewNop(), true)
	return NewCourseService(repo, cache, time.Minute, nil, zap.NewNop()), repo
}

func TestCourseServiceAddListRemove(t *testing.T) {
	svc, repo := newCourseFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, adminClaims, dto.CreateCourseRequest{Name: " CS101 "})
	require.NoError(t, err)
	_, err = svc.Add(ctx, adminClaims, dto.CreateCourseRequest{Name: "EE200"})
	require.NoError(t, err)

	names, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101", "EE200"}, names)
	_, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	require.NoError(t, svc.Remove(ctx, adminClaims, "CS101"))
	require.NoError(t, svc.Remove(ctx, adminClaims, "CS101"))
	names, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"EE200"}, names)
	assert.Equal(t, 2, repo.listCalls)

	ok, err := svc.Exists(ctx, "EE200")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCourseServiceAddErrors(t *testing.T) {
	svc, _ := newCourseFixture()
	ctx := context.Background()

	_, err := svc.Add(ctx, adminClaims, dto.CreateCourseRequest{Name: "CS101"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, adminClaims, dto.CreateCourseRequest{Name: "CS101"})
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateCourse))

	_, err = svc.Add(ctx, adminClaims, dto.CreateCourseRequest{Name: "  "})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Add(ctx, studentClaims, dto.CreateCourseRequest{Name: "ME300"})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.True(t, appErrors.Is(svc.Remove(ctx, studentClaims, "CS101"), appErrors.ErrForbidden))
}

func TestCourseServiceWithoutCache(t *testing.T) {
	repo := &memCourseRepo{courses: []models.Course{{Name: "CS101"}}}
	svc := NewCourseService(repo, nil, 0, nil, nil)

	names, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101"}, names)
	_, _ = svc.List(context.Background())
	assert.Equal(t, 2, repo.listCalls)
}
