package models

import "time"

// PendingRegistration is a self-submitted account awaiting admin review.
type PendingRegistration struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Course       string    `db:"course" json:"course"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`
}

// ApprovalResult is the user and profile created from an approved registration.
type ApprovalResult struct {
	User    User           `json:"user"`
	Profile StudentProfile `json:"profile"`
}
