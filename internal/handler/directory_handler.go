package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/response"
)

type directoryService interface {
	Search(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]models.StudentProfile, error)
	Get(ctx context.Context, actor *models.JWTClaims, profileID string) (*models.StudentProfile, error)
	ExportResumesMatching(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]byte, int, error)
	ExportRoster(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter, format string) (*service.FileDownload, error)
	FileURL(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*dto.FileDownloadURL, error)
	DownloadSigned(ctx context.Context, token string) (*service.FileDownload, error)
}

// DirectoryHandler exposes the admin student directory.
type DirectoryHandler struct {
	service directoryService
}

// NewDirectoryHandler builds a directory handler.
func NewDirectoryHandler(svc directoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// Search godoc
// @Summary Search students
// @Description Case-insensitive match on name or email, optionally within one course
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name or email fragment"
// @Param course query string false "Exact course"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *DirectoryHandler) Search(c *gin.Context) {
	filter, ok := bindDirectoryQuery(c)
	if !ok {
		return
	}
	students, err := h.service.Search(c.Request.Context(), claimsFromContext(c), filter.toFilter())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, map[string]interface{}{"total": len(students)})
}

// Get godoc
// @Summary Student details
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *DirectoryHandler) Get(c *gin.Context) {
	student, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student)
}

// ExportResumes godoc
// @Summary Download resumes as ZIP
// @Description Zips the resumes of the students matching the search
// @Tags Students
// @Produce application/zip
// @Security BearerAuth
// @Param q query string false "Name or email fragment"
// @Param course query string false "Exact course"
// @Success 200 {file} binary
// @Router /admin/students/export/resumes [get]
func (h *DirectoryHandler) ExportResumes(c *gin.Context) {
	filter, ok := bindDirectoryQuery(c)
	if !ok {
		return
	}
	archive, entries, err := h.service.ExportResumesMatching(c.Request.Context(), claimsFromContext(c), filter.toFilter())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("X-Export-Entries", strconv.Itoa(entries))
	response.Attachment(c, service.ResumeArchiveName, "application/zip", archive)
}

// ExportRoster godoc
// @Summary Download the student roster
// @Tags Students
// @Produce text/csv,application/pdf
// @Security BearerAuth
// @Param q query string false "Name or email fragment"
// @Param course query string false "Exact course"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /admin/students/export/roster [get]
func (h *DirectoryHandler) ExportRoster(c *gin.Context) {
	query, ok := bindDirectoryQuery(c)
	if !ok {
		return
	}
	file, err := h.service.ExportRoster(c.Request.Context(), claimsFromContext(c), query.toFilter(), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// FileURL godoc
// @Summary Signed link to a student's file
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param kind path string true "resume or photo"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/students/{id}/files/{kind}/url [get]
func (h *DirectoryHandler) FileURL(c *gin.Context) {
	kind, err := fileKindParam(c, "kind")
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.service.FileURL(c.Request.Context(), claimsFromContext(c), c.Param("id"), kind)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, link)
}

// DownloadSigned godoc
// @Summary Download through a signed link
// @Tags Files
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{token} [get]
func (h *DirectoryHandler) DownloadSigned(c *gin.Context) {
	file, err := h.service.DownloadSigned(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

type directoryQuery dto.DirectoryQuery

func (q directoryQuery) toFilter() models.DirectoryFilter {
	return models.DirectoryFilter{Query: q.Query, Course: q.Course}
}

func bindDirectoryQuery(c *gin.Context) (directoryQuery, bool) {
	var query dto.DirectoryQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return directoryQuery{}, false
	}
	return directoryQuery(query), true
}
