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

type courseService interface {
	List(ctx context.Context) ([]string, error)
	Add(ctx context.Context, actor *models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error)
	Remove(ctx context.Context, actor *models.JWTClaims, name string) error
}

// CourseHandler exposes the course registry.
type CourseHandler struct {
	service courseService
}

// NewCourseHandler builds a course handler.
func NewCourseHandler(svc courseService) *CourseHandler {
	return &CourseHandler{service: svc}
}

// List godoc
// @Summary List courses
// @Description Course names in the order they were added
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, map[string]interface{}{"total": len(courses)})
}

// Add godoc
// @Summary Add course
// @Tags Courses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/courses [post]
func (h *CourseHandler) Add(c *gin.Context) {
	var req dto.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid course payload"))
		return
	}
	course, err := h.service.Add(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Remove godoc
// @Summary Remove course
// @Description Removing an unknown course is a no-op
// @Tags Courses
// @Security BearerAuth
// @Param name path string true "Course name"
// @Success 204
// @Router /admin/courses/{name} [delete]
func (h *CourseHandler) Remove(c *gin.Context) {
	if err := h.service.Remove(c.Request.Context(), claimsFromContext(c), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
