package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/database"
)

var studentColumns = []string{
	"id", "user_id", "name", "email", "course",
	"student_id", "register_no", "academic_year",
	"resume_path", "photo_path", "created_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// StudentRepository handles persistence of student profiles.
type StudentRepository struct {
	db      *sqlx.DB
	builder sq.StatementBuilderType
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// FindByUserID returns the profile owned by userID.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error) {
	return r.findOne(ctx, sq.Eq{"user_id": userID}, "find student by user")
}

// FindByID returns a profile by its own identifier.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, "find student by id")
}

func (r *StudentRepository) findOne(ctx context.Context, pred sq.Eq, op string) (*models.StudentProfile, error) {
	query, args, err := r.builder.Select(studentColumns...).From("students").Where(pred).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s query: %w", op, err)
	}
	var profile models.StudentProfile
	if err := r.db.GetContext(ctx, &profile, query, args...); err != nil {
		if err = database.NoRowsOnInvalidText(err); err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &profile, nil
}

// Upsert inserts the profile for its user or updates it in place.
// Nil file paths keep whatever is already stored.
func (r *StudentRepository) Upsert(ctx context.Context, profile *models.StudentProfile) (*models.StudentProfile, error) {
	now := time.Now().UTC()
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	profile.UpdatedAt = now
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}

	query := `INSERT INTO students (` + strings.Join(studentColumns, ", ") + `)
VALUES (:id, :user_id, :name, :email, :course, :student_id, :register_no, :academic_year, :resume_path, :photo_path, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET
	name = EXCLUDED.name,
	email = EXCLUDED.email,
	course = EXCLUDED.course,
	student_id = EXCLUDED.student_id,
	register_no = EXCLUDED.register_no,
	academic_year = EXCLUDED.academic_year,
	resume_path = COALESCE(EXCLUDED.resume_path, students.resume_path),
	photo_path = COALESCE(EXCLUDED.photo_path, students.photo_path),
	updated_at = EXCLUDED.updated_at
RETURNING ` + strings.Join(studentColumns, ", ")

	named, args, err := r.db.BindNamed(query, profile)
	if err != nil {
		return nil, fmt.Errorf("bind upsert student: %w", err)
	}
	var stored models.StudentProfile
	if err := r.db.GetContext(ctx, &stored, named, args...); err != nil {
		return nil, fmt.Errorf("upsert student: %w", err)
	}
	return &stored, nil
}

// Delete removes a profile row, returning sql.ErrNoRows when absent.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.builder.Delete("students").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete student query: %w", err)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if err = database.NoRowsOnInvalidText(err); err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Search matches name or email by case-insensitive substring and, when set,
// course by exact equality. Results follow creation order.
func (r *StudentRepository) Search(ctx context.Context, filter models.DirectoryFilter) ([]models.StudentProfile, error) {
	qb := r.builder.Select(studentColumns...).From("students")

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		qb = qb.Where(sq.Or{
			sq.Expr("LOWER(name) LIKE ?", pattern),
			sq.Expr("LOWER(email) LIKE ?", pattern),
		})
	}
	if course := strings.TrimSpace(filter.Course); course != "" {
		qb = qb.Where(sq.Eq{"course": course})
	}

	query, args, err := qb.OrderBy("created_at ASC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build student search query: %w", err)
	}

	var profiles []models.StudentProfile
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("search students: %w", err)
	}
	return profiles, nil
}
