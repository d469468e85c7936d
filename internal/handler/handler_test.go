package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/middleware"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/internal/service"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

var (
	adminClaims   = &models.JWTClaims{UserID: "admin-1", Username: "admin", Role: models.RoleAdmin}
	studentClaims = &models.JWTClaims{UserID: "user-1", Username: "alice", Role: models.RoleStudent}
)

func newContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var env map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type authServiceMock struct {
	loginReq models.LoginRequest
	loginErr error
}

func (m *authServiceMock) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.loginReq = req
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return &models.LoginResponse{AccessToken: "token", TokenType: "Bearer"}, nil
}

func (m *authServiceMock) Me(ctx context.Context, claims *models.JWTClaims) (*models.UserInfo, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return &models.UserInfo{ID: claims.UserID, Username: claims.Username, Role: claims.Role}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	svc := &authServiceMock{}
	h := NewAuthHandler(svc)

	c, w := newContext(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"alice","password":"secret1"}`), nil)
	h.Login(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice", svc.loginReq.Username)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
}

func TestAuthHandlerLoginErrors(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials})

	c, w := newContext(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":`), nil)
	h.Login(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"a","password":"b"}`), nil)
	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{})

	c, w := newContext(http.MethodGet, "/auth/me", nil, studentClaims)
	h.Me(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"STUDENT"`)

	c, w = newContext(http.MethodGet, "/auth/me", nil, nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type courseServiceMock struct {
	courses []string
	added   dto.CreateCourseRequest
	removed string
	addErr  error
}

func (m *courseServiceMock) List(ctx context.Context) ([]string, error) {
	return m.courses, nil
}

func (m *courseServiceMock) Add(ctx context.Context, actor *models.JWTClaims, req dto.CreateCourseRequest) (*models.Course, error) {
	m.added = req
	if m.addErr != nil {
		return nil, m.addErr
	}
	return &models.Course{ID: "c-1", Name: req.Name}, nil
}

func (m *courseServiceMock) Remove(ctx context.Context, actor *models.JWTClaims, name string) error {
	m.removed = name
	return nil
}

func TestCourseHandler(t *testing.T) {
	svc := &courseServiceMock{courses: []string{"CSE", "ECE"}}
	h := NewCourseHandler(svc)

	c, w := newContext(http.MethodGet, "/courses", nil, nil)
	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.JSONEq(t, `["CSE","ECE"]`, string(env["data"]))
	assert.JSONEq(t, `{"total":2}`, string(env["meta"]))

	c, w = newContext(http.MethodPost, "/admin/courses", bytes.NewBufferString(`{"name":"MECH"}`), adminClaims)
	h.Add(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "MECH", svc.added.Name)

	svc.addErr = appErrors.ErrDuplicateCourse
	c, w = newContext(http.MethodPost, "/admin/courses", bytes.NewBufferString(`{"name":"MECH"}`), adminClaims)
	h.Add(c)
	assert.Equal(t, http.StatusConflict, w.Code)

	c, w = newContext(http.MethodDelete, "/admin/courses/MECH", nil, adminClaims)
	c.Params = gin.Params{{Key: "name", Value: "MECH"}}
	h.Remove(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "MECH", svc.removed)
}

type registrationServiceMock struct {
	submitted  dto.SubmitRegistrationRequest
	submitErr  error
	approvedID string
	rejectErr  error
}

func (m *registrationServiceMock) Submit(ctx context.Context, req dto.SubmitRegistrationRequest) (*models.PendingRegistration, error) {
	m.submitted = req
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	return &models.PendingRegistration{ID: "p-1", Username: req.Username}, nil
}

func (m *registrationServiceMock) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.PendingRegistration, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	return []models.PendingRegistration{{ID: "p-1"}}, nil
}

func (m *registrationServiceMock) Approve(ctx context.Context, actor *models.JWTClaims, pendingID string) (*models.ApprovalResult, error) {
	m.approvedID = pendingID
	return &models.ApprovalResult{User: models.User{ID: "u-9"}}, nil
}

func (m *registrationServiceMock) Reject(ctx context.Context, actor *models.JWTClaims, pendingID string) error {
	return m.rejectErr
}

func TestRegistrationHandlerSubmit(t *testing.T) {
	svc := &registrationServiceMock{}
	h := NewRegistrationHandler(svc)

	body := `{"username":"bob","password":"secret1","name":"Bob","email":"bob@srmist.edu.in","course":"CSE"}`
	c, w := newContext(http.MethodPost, "/auth/register", bytes.NewBufferString(body), nil)
	h.Submit(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "bob@srmist.edu.in", svc.submitted.Email)
	assert.NotContains(t, w.Body.String(), "secret1")

	svc.submitErr = appErrors.ErrInvalidDomain
	c, w = newContext(http.MethodPost, "/auth/register", bytes.NewBufferString(body), nil)
	h.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrInvalidDomain.Code)
}

func TestRegistrationHandlerReview(t *testing.T) {
	svc := &registrationServiceMock{rejectErr: appErrors.ErrNotFound}
	h := NewRegistrationHandler(svc)

	c, w := newContext(http.MethodGet, "/admin/registrations", nil, studentClaims)
	h.List(c)
	assert.Equal(t, http.StatusForbidden, w.Code)

	c, w = newContext(http.MethodPost, "/admin/registrations/p-1/approve", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "p-1"}}
	h.Approve(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "p-1", svc.approvedID)

	c, w = newContext(http.MethodDelete, "/admin/registrations/p-2", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "p-2"}}
	h.Reject(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type profileServiceMock struct {
	req        dto.UpsertProfileRequest
	userID     string
	profileID  string
	resumeName string
	resumeBody []byte
	photo      *service.FileUpload
	deleteErr  error
}

func (m *profileServiceMock) Get(ctx context.Context, actor *models.JWTClaims, userID string) (*models.StudentProfile, error) {
	return nil, nil
}

func (m *profileServiceMock) Upsert(ctx context.Context, actor *models.JWTClaims, userID string, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error) {
	m.userID = userID
	m.req = req
	m.photo = photo
	if resume != nil {
		m.resumeName = resume.Filename
		m.resumeBody, _ = io.ReadAll(resume.Content)
	}
	return &models.StudentProfile{ID: "s-1", UserID: userID, Name: req.Name}, nil
}

func (m *profileServiceMock) UpsertByProfileID(ctx context.Context, actor *models.JWTClaims, profileID string, req dto.UpsertProfileRequest, resume, photo *service.FileUpload) (*models.StudentProfile, error) {
	m.profileID = profileID
	return m.Upsert(ctx, actor, "owner", req, resume, photo)
}

func (m *profileServiceMock) Delete(ctx context.Context, actor *models.JWTClaims, profileID string) error {
	return m.deleteErr
}

func (m *profileServiceMock) OpenOwnFile(ctx context.Context, actor *models.JWTClaims, kind models.FileKind) (*service.FileDownload, error) {
	if kind == models.FileKindPhoto {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no photo uploaded")
	}
	return &service.FileDownload{Filename: "Alice_resume.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4")}, nil
}

func (m *profileServiceMock) OpenFile(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*service.FileDownload, error) {
	return &service.FileDownload{Filename: "Alice_photo.png", ContentType: "image/png", Content: []byte("png")}, nil
}

func multipartProfile(t *testing.T, resume []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fields := map[string]string{
		"name":          "Alice",
		"email":         "alice@srmist.edu.in",
		"course":        "CSE",
		"student_id":    "S1",
		"register_no":   "R1",
		"academic_year": "2024",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if resume != nil {
		part, err := mw.CreateFormFile("resume", "cv.pdf")
		require.NoError(t, err)
		_, err = part.Write(resume)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestProfileHandlerUpsertOwnMultipart(t *testing.T) {
	svc := &profileServiceMock{}
	h := NewProfileHandler(svc, 1024)

	body, contentType := multipartProfile(t, []byte("%PDF-1.4 resume"))
	c, w := newContext(http.MethodPut, "/me/profile", body, studentClaims)
	c.Request.Header.Set("Content-Type", contentType)
	h.UpsertOwn(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-1", svc.userID)
	assert.Equal(t, "Alice", svc.req.Name)
	assert.Equal(t, "2024", svc.req.AcademicYear)
	assert.Equal(t, "cv.pdf", svc.resumeName)
	assert.Equal(t, []byte("%PDF-1.4 resume"), svc.resumeBody)
	assert.Nil(t, svc.photo)
}

func TestProfileHandlerRejectsOversizedUpload(t *testing.T) {
	svc := &profileServiceMock{}
	h := NewProfileHandler(svc, 4)

	body, contentType := multipartProfile(t, []byte("%PDF-1.4 too large"))
	c, w := newContext(http.MethodPut, "/me/profile", body, studentClaims)
	c.Request.Header.Set("Content-Type", contentType)
	h.UpsertOwn(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.userID)
}

func TestProfileHandlerUpsertStudent(t *testing.T) {
	svc := &profileServiceMock{}
	h := NewProfileHandler(svc, 1024)

	body, contentType := multipartProfile(t, nil)
	c, w := newContext(http.MethodPut, "/admin/students/s-1/profile", body, adminClaims)
	c.Request.Header.Set("Content-Type", contentType)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}}
	h.UpsertStudent(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s-1", svc.profileID)
	assert.Empty(t, svc.resumeName)
}

func TestProfileHandlerGetOwnRequiresSession(t *testing.T) {
	h := NewProfileHandler(&profileServiceMock{}, 1024)

	c, w := newContext(http.MethodGet, "/me/profile", nil, nil)
	h.GetOwn(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newContext(http.MethodGet, "/me/profile", nil, studentClaims)
	h.GetOwn(c)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProfileHandlerDownloads(t *testing.T) {
	h := NewProfileHandler(&profileServiceMock{deleteErr: appErrors.ErrNotFound}, 1024)

	c, w := newContext(http.MethodGet, "/me/profile/resume", nil, studentClaims)
	h.DownloadOwnResume(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Alice_resume.pdf"`, w.Header().Get("Content-Disposition"))

	c, w = newContext(http.MethodGet, "/me/profile/photo", nil, studentClaims)
	h.DownloadOwnPhoto(c)
	assert.Equal(t, http.StatusNotFound, w.Code)

	c, w = newContext(http.MethodGet, "/admin/students/s-1/files/cv", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}, {Key: "kind", Value: "cv"}}
	h.DownloadStudentFile(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newContext(http.MethodGet, "/admin/students/s-1/files/photo", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}, {Key: "kind", Value: "photo"}}
	h.DownloadStudentFile(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	c, w = newContext(http.MethodDelete, "/admin/students/s-9", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "s-9"}}
	h.DeleteStudent(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type directoryServiceMock struct {
	filter models.DirectoryFilter
	format string
}

func (m *directoryServiceMock) Search(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]models.StudentProfile, error) {
	m.filter = filter
	return []models.StudentProfile{{ID: "s-1", Name: "Alice"}}, nil
}

func (m *directoryServiceMock) Get(ctx context.Context, actor *models.JWTClaims, profileID string) (*models.StudentProfile, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
}

func (m *directoryServiceMock) ExportResumesMatching(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]byte, int, error) {
	m.filter = filter
	return []byte("PK"), 3, nil
}

func (m *directoryServiceMock) ExportRoster(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter, format string) (*service.FileDownload, error) {
	m.format = format
	if format == "xls" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.FileDownload{Filename: "student_roster.csv", ContentType: "text/csv", Content: []byte("Name\n")}, nil
}

func (m *directoryServiceMock) FileURL(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*dto.FileDownloadURL, error) {
	return &dto.FileDownloadURL{URL: "/api/v1/files/tok"}, nil
}

func (m *directoryServiceMock) DownloadSigned(ctx context.Context, token string) (*service.FileDownload, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	return &service.FileDownload{Filename: "Alice_resume.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}, nil
}

func TestDirectoryHandlerSearch(t *testing.T) {
	svc := &directoryServiceMock{}
	h := NewDirectoryHandler(svc)

	c, w := newContext(http.MethodGet, "/admin/students?q=ali&course=CSE", nil, adminClaims)
	h.Search(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.DirectoryFilter{Query: "ali", Course: "CSE"}, svc.filter)

	c, w = newContext(http.MethodGet, "/admin/students/s-404", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "s-404"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDirectoryHandlerExports(t *testing.T) {
	svc := &directoryServiceMock{}
	h := NewDirectoryHandler(svc)

	c, w := newContext(http.MethodGet, "/admin/students/export/resumes?course=ECE", nil, adminClaims)
	h.ExportResumes(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="student_resumes.zip"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "3", w.Header().Get("X-Export-Entries"))
	assert.Equal(t, "ECE", svc.filter.Course)

	c, w = newContext(http.MethodGet, "/admin/students/export/roster?format=xls", nil, adminClaims)
	h.ExportRoster(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xls", svc.format)

	c, w = newContext(http.MethodGet, "/admin/students/export/roster", nil, adminClaims)
	h.ExportRoster(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestDirectoryHandlerSignedLinks(t *testing.T) {
	h := NewDirectoryHandler(&directoryServiceMock{})

	c, w := newContext(http.MethodGet, "/admin/students/s-1/files/resume/url", nil, adminClaims)
	c.Params = gin.Params{{Key: "id", Value: "s-1"}, {Key: "kind", Value: "resume"}}
	h.FileURL(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/files/tok")

	c, w = newContext(http.MethodGet, "/files/good", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "good"}}
	h.DownloadSigned(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/files/bad", nil, nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}
	h.DownloadSigned(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type pingStub struct{ err error }

func (p pingStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandler(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), pingStub{})

	c, w := newContext(http.MethodGet, "/ready", nil, nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newContext(http.MethodGet, "/metrics", nil, nil)
	h.Prometheus(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "goroutines_total")

	down := NewMetricsHandler(nil, pingStub{err: errors.New("connection refused")})
	c, w = newContext(http.MethodGet, "/ready", nil, nil)
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newContext(http.MethodGet, "/metrics", nil, nil)
	down.Prometheus(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
