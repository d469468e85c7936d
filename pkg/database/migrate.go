package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Constraint names referenced when mapping unique violations.
const (
	ConstraintUsersUsername   = "users_username_key"
	ConstraintPendingUsername = "pending_registrations_username_key"
	ConstraintCoursesName     = "courses_name_key"
	ConstraintStudentsUserID  = "students_user_id_key"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT users_username_key UNIQUE (username)
)`,
	`CREATE TABLE IF NOT EXISTS students (
	id            UUID PRIMARY KEY,
	user_id       UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	course        TEXT NOT NULL,
	student_id    TEXT,
	register_no   TEXT,
	academic_year TEXT,
	resume_path   TEXT,
	photo_path    TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT students_user_id_key UNIQUE (user_id)
)`,
	`CREATE TABLE IF NOT EXISTS pending_registrations (
	id            UUID PRIMARY KEY,
	username      TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL,
	course        TEXT NOT NULL,
	submitted_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT pending_registrations_username_key UNIQUE (username)
)`,
	`CREATE TABLE IF NOT EXISTS courses (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT courses_name_key UNIQUE (name)
)`,
	`CREATE INDEX IF NOT EXISTS students_course_idx ON students (course)`,
}

// Migrate creates the portal tables when they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
