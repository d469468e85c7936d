package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/database"
)

const pendingColumns = `id, username, password_hash, name, email, course, submitted_at`

// RegistrationRepository persists the pending registration queue.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// UsernameTaken reports whether username belongs to a user or a pending registration.
func (r *RegistrationRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1) OR EXISTS (SELECT 1 FROM pending_registrations WHERE username = $1)`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, username); err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return taken, nil
}

// Create queues a registration. It returns false without writing when the
// username already belongs to a user; a clash with another pending row is
// reported by the unique constraint.
func (r *RegistrationRepository) Create(ctx context.Context, pending *models.PendingRegistration) (bool, error) {
	if pending.ID == "" {
		pending.ID = uuid.NewString()
	}
	if pending.SubmittedAt.IsZero() {
		pending.SubmittedAt = time.Now().UTC()
	}

	const query = `INSERT INTO pending_registrations (id, username, password_hash, name, email, course, submitted_at)
SELECT $1::uuid, $2::text, $3::text, $4::text, $5::text, $6::text, $7::timestamptz
WHERE NOT EXISTS (SELECT 1 FROM users WHERE username = $2::text)`
	res, err := r.db.ExecContext(ctx, query,
		pending.ID,
		pending.Username,
		pending.PasswordHash,
		pending.Name,
		pending.Email,
		pending.Course,
		pending.SubmittedAt,
	)
	if err != nil {
		return false, fmt.Errorf("create pending registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create pending registration rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns pending registrations in submission order.
func (r *RegistrationRepository) List(ctx context.Context) ([]models.PendingRegistration, error) {
	const query = `SELECT ` + pendingColumns + ` FROM pending_registrations ORDER BY submitted_at ASC, id ASC`
	var items []models.PendingRegistration
	if err := r.db.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("list pending registrations: %w", err)
	}
	return items, nil
}

// FindByID returns one pending registration.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.PendingRegistration, error) {
	const query = `SELECT ` + pendingColumns + ` FROM pending_registrations WHERE id = $1`
	var item models.PendingRegistration
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		if err = database.NoRowsOnInvalidText(err); err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find pending registration: %w", err)
	}
	return &item, nil
}

// Delete removes a pending registration, returning sql.ErrNoRows when absent.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM pending_registrations WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if err = database.NoRowsOnInvalidText(err); err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("delete pending registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pending registration rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Approve promotes a pending registration into a student user and profile.
// The pending row is locked, the three writes share one transaction, and any
// failure rolls all of them back. sql.ErrNoRows means the id is not queued.
func (r *RegistrationRepository) Approve(ctx context.Context, id string) (result *models.ApprovalResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approval transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var pending models.PendingRegistration
	const lockQuery = `SELECT ` + pendingColumns + ` FROM pending_registrations WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &pending, lockQuery, id); err != nil {
		if err = database.NoRowsOnInvalidText(err); err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock pending registration: %w", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     pending.Username,
		PasswordHash: pending.PasswordHash,
		IsAdmin:      false,
		CreatedAt:    now,
	}
	const insertUser = `INSERT INTO users (id, username, password_hash, is_admin, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err = tx.ExecContext(ctx, insertUser, user.ID, user.Username, user.PasswordHash, user.IsAdmin, user.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert approved user: %w", err)
	}

	profile := models.StudentProfile{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Name:      pending.Name,
		Email:     pending.Email,
		Course:    pending.Course,
		CreatedAt: now,
		UpdatedAt: now,
	}
	const insertProfile = `INSERT INTO students (id, user_id, name, email, course, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, insertProfile, profile.ID, profile.UserID, profile.Name, profile.Email, profile.Course, profile.CreatedAt, profile.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert approved profile: %w", err)
	}

	const deletePending = `DELETE FROM pending_registrations WHERE id = $1`
	if _, err = tx.ExecContext(ctx, deletePending, pending.ID); err != nil {
		return nil, fmt.Errorf("delete approved registration: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approval: %w", err)
	}
	return &models.ApprovalResult{User: user, Profile: profile}, nil
}
