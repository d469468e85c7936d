package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type registrationService interface {
	Submit(ctx context.Context, req dto.SubmitRegistrationRequest) (*models.PendingRegistration, error)
	ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.PendingRegistration, error)
	Approve(ctx context.Context, actor *models.JWTClaims, pendingID string) (*models.ApprovalResult, error)
	Reject(ctx context.Context, actor *models.JWTClaims, pendingID string) error
}

// RegistrationHandler exposes self-registration and its admin review queue.
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler builds a registration handler.
func NewRegistrationHandler(svc registrationService) *RegistrationHandler {
	return &RegistrationHandler{service: svc}
}

// Submit godoc
// @Summary Request an account
// @Description Queues a registration for admin approval
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRegistrationRequest true "Registration payload"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /auth/register [post]
func (h *RegistrationHandler) Submit(c *gin.Context) {
	var req dto.SubmitRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	pending, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, pending)
}

// List godoc
// @Summary List pending registrations
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	items, err := h.service.ListPending(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, map[string]interface{}{"total": len(items)})
}

// Approve godoc
// @Summary Approve registration
// @Description Creates the user and student profile, then drops the pending row
// @Tags Registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Pending registration ID"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/registrations/{id}/approve [post]
func (h *RegistrationHandler) Approve(c *gin.Context) {
	result, err := h.service.Approve(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Reject godoc
// @Summary Reject registration
// @Tags Registrations
// @Security BearerAuth
// @Param id path string true "Pending registration ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/registrations/{id} [delete]
func (h *RegistrationHandler) Reject(c *gin.Context) {
	if err := h.service.Reject(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
