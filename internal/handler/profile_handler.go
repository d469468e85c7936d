package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type profileService interface {
	Get(ctx context.Context, actor *models.JWTClaims, userID string) (*models.StudentProfile, error)
	Upsert(ctx context.Context, actor *models.JWTClaims, userID string, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error)
	UpsertByProfileID(ctx context.Context, actor *models.JWTClaims, profileID string, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error)
	Delete(ctx context.Context, actor *models.JWTClaims, profileID string) error
	OpenOwnFile(ctx context.Context, actor *models.JWTClaims, kind models.FileKind) (*service.FileDownload, error)
	OpenFile(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*service.FileDownload, error)
}

// ProfileHandler serves the student's own profile and the admin edit endpoints.
type ProfileHandler struct {
	service       profileService
	maxUploadSize int64
}

// NewProfileHandler builds a profile handler. maxUploadSize caps each file part.
func NewProfileHandler(svc profileService, maxUploadSize int64) *ProfileHandler {
	return &ProfileHandler{service: svc, maxUploadSize: maxUploadSize}
}

// GetOwn godoc
// @Summary Get own profile
// @Description Returns null data when the profile has not been filled in yet
// @Tags Profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /me/profile [get]
func (h *ProfileHandler) GetOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.service.Get(c.Request.Context(), claims, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

// UpsertOwn godoc
// @Summary Save own profile
// @Description Multipart form with the profile fields and optional resume (PDF) and photo (JPEG/PNG) parts
// @Tags Profile
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param name formData string true "Full name"
// @Param email formData string true "Email"
// @Param course formData string true "Course"
// @Param student_id formData string true "Student ID"
// @Param register_no formData string true "Register number"
// @Param academic_year formData string true "Academic year"
// @Param resume formData file false "Resume PDF"
// @Param photo formData file false "Profile photo"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 415 {object} response.Envelope
// @Router /me/profile [put]
func (h *ProfileHandler) UpsertOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.upsert(c, func(ctx context.Context, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error) {
		return h.service.Upsert(ctx, claims, claims.UserID, req, resume, photo)
	})
}

// UpsertStudent godoc
// @Summary Edit a student profile
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id}/profile [put]
func (h *ProfileHandler) UpsertStudent(c *gin.Context) {
	claims := claimsFromContext(c)
	profileID := c.Param("id")
	h.upsert(c, func(ctx context.Context, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error) {
		return h.service.UpsertByProfileID(ctx, claims, profileID, req, resume, photo)
	})
}

// DeleteStudent godoc
// @Summary Delete a student profile
// @Description Removes the profile row; the login account is kept
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id} [delete]
func (h *ProfileHandler) DeleteStudent(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DownloadOwnResume godoc
// @Summary Download own resume
// @Tags Profile
// @Produce application/pdf
// @Security BearerAuth
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /me/profile/resume [get]
func (h *ProfileHandler) DownloadOwnResume(c *gin.Context) {
	h.downloadOwn(c, models.FileKindResume)
}

// DownloadOwnPhoto godoc
// @Summary Download own photo
// @Tags Profile
// @Produce image/jpeg,image/png
// @Security BearerAuth
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /me/profile/photo [get]
func (h *ProfileHandler) DownloadOwnPhoto(c *gin.Context) {
	h.downloadOwn(c, models.FileKindPhoto)
}

// DownloadStudentFile godoc
// @Summary Download a student's resume or photo
// @Tags Students
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param kind path string true "resume or photo"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id}/files/{kind} [get]
func (h *ProfileHandler) DownloadStudentFile(c *gin.Context) {
	kind, err := fileKindParam(c, "kind")
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.OpenFile(c.Request.Context(), claimsFromContext(c), c.Param("id"), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

type upsertFunc func(ctx context.Context, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error)

func (h *ProfileHandler) upsert(c *gin.Context, save upsertFunc) {
	var req dto.UpsertProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	resume, closeResume, err := formFile(c, "resume", h.maxUploadSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeResume()
	photo, closePhoto, err := formFile(c, "photo", h.maxUploadSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closePhoto()

	profile, err := save(c.Request.Context(), req, resume, photo)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

func (h *ProfileHandler) downloadOwn(c *gin.Context, kind models.FileKind) {
	file, err := h.service.OpenOwnFile(c.Request.Context(), claimsFromContext(c), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
