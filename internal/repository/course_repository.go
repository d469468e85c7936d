package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
)

// CourseRepository manages the course registry table.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses in insertion order.
func (r *CourseRepository) List(ctx context.Context) ([]models.Course, error) {
	const query = `SELECT id, name, created_at FROM courses ORDER BY created_at ASC, id ASC`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// Create inserts a course. Duplicate names surface as a unique violation.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO courses (id, name, created_at) VALUES (:id, :name, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// DeleteByName removes a course by name. Missing names are not an error.
func (r *CourseRepository) DeleteByName(ctx context.Context, name string) error {
	const query = `DELETE FROM courses WHERE name = $1`
	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return nil
}

// Exists reports whether a course with the exact name is registered.
func (r *CourseRepository) Exists(ctx context.Context, name string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE name = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, name); err != nil {
		return false, fmt.Errorf("check course exists: %w", err)
	}
	return exists, nil
}
