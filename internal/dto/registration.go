package dto

// SubmitRegistrationRequest is the self-registration payload.
type SubmitRegistrationRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Course   string `json:"course" validate:"required"`
}
