package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// formFile opens an optional multipart part. A missing part yields a nil upload.
// The returned closer must be called once the upload has been consumed.
func formFile(c *gin.Context, field string, maxSize int64) (*service.FileUpload, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, func() {}, nil
	}
	if maxSize > 0 && header.Size > maxSize {
		return nil, func() {}, appErrors.Clone(appErrors.ErrValidation, field+" exceeds the maximum upload size")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unreadable "+field+" upload")
	}
	return &service.FileUpload{Filename: header.Filename, Content: file}, closer(file), nil
}

func closer(file multipart.File) func() {
	return func() { _ = file.Close() }
}

func fileKindParam(c *gin.Context, name string) (models.FileKind, error) {
	kind := models.FileKind(c.Param(name))
	if !kind.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "kind must be resume or photo")
	}
	return kind, nil
}
