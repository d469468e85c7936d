package dto

// CreateCourseRequest adds a course to the registry.
type CreateCourseRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}
