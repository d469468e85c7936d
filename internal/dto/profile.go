package dto

// UpsertProfileRequest carries the text fields of a profile save. It binds
// from multipart form values so files can travel in the same request.
type UpsertProfileRequest struct {
	Name         string `form:"name" json:"name" validate:"required,max=200"`
	Email        string `form:"email" json:"email" validate:"required,email,max=254"`
	Course       string `form:"course" json:"course" validate:"required"`
	StudentID    string `form:"student_id" json:"student_id" validate:"required,max=64"`
	RegisterNo   string `form:"register_no" json:"register_no" validate:"required,max=64"`
	AcademicYear string `form:"academic_year" json:"academic_year" validate:"required,max=32"`
}

// FileDownloadURL is a signed link to a stored resume or photo.
type FileDownloadURL struct {
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}
