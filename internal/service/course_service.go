package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/database"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

const courseListCacheKey = "portal:courses:list"

type courseRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	DeleteByName(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// CourseService manages the course registry.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService. cache may be nil.
func NewCourseService(repo courseRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns course names in insertion order.
func (s *CourseService) List(ctx context.Context) ([]string, error) {
	var cached []string
	if hit, _ := s.cache.Get(ctx, courseListCacheKey, &cached); hit {
		return cached, nil
	}

	courses, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	names := make([]string, 0, len(courses))
	for _, course := range courses {
		names = append(names, course.Name)
	}
	_ = s.cache.Set(ctx, courseListCacheKey, names, s.cacheTTL)
	return names, nil
}

// Add registers a new course name.
func (s *CourseService) Add(ctx context.Context, actor *models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "course name is required")
	}

	course := &models.Course{Name: req.Name}
	if err := s.repo.Create(ctx, course); err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, appErrors.Clone(appErrors.ErrDuplicateCourse, "course "+req.Name+" already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)
	s.logger.Info("course added", zap.String("course", course.Name), zap.String("actor", actor.UserID))
	return course, nil
}

// Remove deletes a course by name. Unknown names succeed; profiles that
// still reference the course are left untouched.
func (s *CourseService) Remove(ctx context.Context, actor *models.JWTClaims, name string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.DeleteByName(ctx, strings.TrimSpace(name)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course")
	}
	s.invalidate(ctx)
	s.logger.Info("course removed", zap.String("course", name), zap.String("actor", actor.UserID))
	return nil
}

// Exists reports whether name is a registered course.
func (s *CourseService) Exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.repo.Exists(ctx, name)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course")
	}
	return ok, nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, courseListCacheKey)
}
