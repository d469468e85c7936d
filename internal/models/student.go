package models

import "time"

// StudentProfile is the academic record owned by exactly one user.
type StudentProfile struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Course       string    `db:"course" json:"course"`
	StudentID    *string   `db:"student_id" json:"student_id,omitempty"`
	RegisterNo   *string   `db:"register_no" json:"register_no,omitempty"`
	AcademicYear *string   `db:"academic_year" json:"academic_year,omitempty"`
	ResumePath   *string   `db:"resume_path" json:"resume_path,omitempty"`
	PhotoPath    *string   `db:"photo_path" json:"photo_path,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// DirectoryFilter narrows the admin student search.
type DirectoryFilter struct {
	Query  string
	Course string
}

// FileKind names one of the two files attached to a profile.
type FileKind string

const (
	FileKindResume FileKind = "resume"
	FileKindPhoto  FileKind = "photo"
)

// Valid reports whether k is a known attachment kind.
func (k FileKind) Valid() bool {
	return k == FileKindResume || k == FileKindPhoto
}

// PathOf returns the stored path for kind, or nil.
func (p *StudentProfile) PathOf(kind FileKind) *string {
	switch kind {
	case FileKindResume:
		return p.ResumePath
	case FileKindPhoto:
		return p.PhotoPath
	default:
		return nil
	}
}
