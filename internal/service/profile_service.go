package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/storage"
)

type profileRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentProfile, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
	Upsert(ctx context.Context, profile *models.StudentProfile) (*models.StudentProfile, error)
	Delete(ctx context.Context, id string) error
}

// fileStore is the subset of storage.LocalStorage used for uploads.
type fileStore interface {
	SaveStream(name string, r io.Reader) (string, error)
	ReadFile(name string) ([]byte, error)
	Exists(name string) bool
}

var allowedMIMEs = map[models.FileKind][]string{
	models.FileKindResume: {"application/pdf"},
	models.FileKindPhoto:  {"image/jpeg", "image/png"},
}

// FileUpload is a resume or photo supplied with a profile save.
type FileUpload struct {
	Filename string
	Content  io.Reader
}

// FileDownload is a stored file ready to be streamed back.
type FileDownload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ProfileConfig tunes upload handling.
type ProfileConfig struct {
	MaxFileSize int64
	// LegacyNames keeps the bare sanitized filename, so equal names overwrite each other.
	LegacyNames bool
}

// ProfileService manages student profiles and their attachments.
type ProfileService struct {
	repo      profileRepository
	courses   courseChecker
	resumes   fileStore
	photos    fileStore
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	config    ProfileConfig
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo profileRepository, courses courseChecker, resumes, photos fileStore, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg ProfileConfig) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 5 * 1024 * 1024
	}
	return &ProfileService{
		repo:      repo,
		courses:   courses,
		resumes:   resumes,
		photos:    photos,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		config:    cfg,
	}
}

// Get returns the profile owned by userID, or nil when none exists yet.
func (s *ProfileService) Get(ctx context.Context, actor *models.JWTClaims, userID string) (*models.StudentProfile, error) {
	if err := s.canAccessUser(actor, userID); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// Upsert saves the profile of userID. Supplied files are written before the
// row; a failed write aborts the save. Omitted files keep their stored paths.
func (s *ProfileService) Upsert(ctx context.Context, actor *models.JWTClaims, userID string, req dto.UpsertProfileRequest, resume, photo *FileUpload) (*models.StudentProfile, error) {
	if err := s.canAccessUser(actor, userID); err != nil {
		return nil, err
	}

	req = trimProfileRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "all profile fields are required")
	}
	offered, err := s.courses.Exists(ctx, req.Course)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course "+req.Course+" is not offered")
	}

	resumeFile, err := s.prepare(models.FileKindResume, userID, resume)
	if err != nil {
		return nil, err
	}
	photoFile, err := s.prepare(models.FileKindPhoto, userID, photo)
	if err != nil {
		return nil, err
	}

	profile := &models.StudentProfile{
		UserID:       userID,
		Name:         req.Name,
		Email:        req.Email,
		Course:       req.Course,
		StudentID:    &req.StudentID,
		RegisterNo:   &req.RegisterNo,
		AcademicYear: &req.AcademicYear,
	}
	if profile.ResumePath, err = s.store(s.resumes, models.FileKindResume, resumeFile); err != nil {
		return nil, err
	}
	if profile.PhotoPath, err = s.store(s.photos, models.FileKindPhoto, photoFile); err != nil {
		return nil, err
	}

	saved, err := s.repo.Upsert(ctx, profile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save profile")
	}
	s.logger.Info("profile saved",
		zap.String("profile_id", saved.ID),
		zap.String("user_id", userID),
		zap.String("actor", actor.UserID),
		zap.Bool("resume_uploaded", resumeFile != nil),
		zap.Bool("photo_uploaded", photoFile != nil),
	)
	return saved, nil
}

// UpsertByProfileID lets an admin edit a profile addressed by its own id.
func (s *ProfileService) UpsertByProfileID(ctx context.Context, actor *models.JWTClaims, profileID string, req dto.UpsertProfileRequest, resume, photo *FileUpload) (*models.StudentProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	existing, err := s.findByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, actor, existing.UserID, req, resume, photo)
}

// Delete removes a profile row. Stored files stay on disk.
func (s *ProfileService) Delete(ctx context.Context, actor *models.JWTClaims, profileID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, profileID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.logger.Info("profile deleted", zap.String("profile_id", profileID), zap.String("actor", actor.UserID))
	return nil
}

// OpenOwnFile returns the caller's own resume or photo.
func (s *ProfileService) OpenOwnFile(ctx context.Context, actor *models.JWTClaims, kind models.FileKind) (*FileDownload, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.Get(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
	}
	return s.open(profile, kind)
}

// OpenFile returns a resume or photo of the profile with profileID.
func (s *ProfileService) OpenFile(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*FileDownload, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	profile, err := s.findByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if err := s.canAccessUser(actor, profile.UserID); err != nil {
		return nil, err
	}
	return s.open(profile, kind)
}

// ReadStored loads the bytes behind a stored path, used by exports and signed links.
func (s *ProfileService) ReadStored(kind models.FileKind, path string) ([]byte, bool) {
	store := s.storeFor(kind)
	if store == nil || path == "" || !store.Exists(path) {
		return nil, false
	}
	data, err := store.ReadFile(path)
	if err != nil {
		s.logger.Warn("stored file unreadable", zap.String("kind", string(kind)), zap.String("path", path), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (s *ProfileService) open(profile *models.StudentProfile, kind models.FileKind) (*FileDownload, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file kind")
	}
	path := profile.PathOf(kind)
	if path == nil || *path == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no %s uploaded", kind))
	}
	data, ok := s.ReadStored(kind, *path)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s file is missing", kind))
	}
	return &FileDownload{
		Filename:    filepath.Base(*path),
		ContentType: contentTypeOf(data),
		Content:     data,
	}, nil
}

type preparedFile struct {
	name string
	data []byte
}

func (s *ProfileService) prepare(kind models.FileKind, userID string, upload *FileUpload) (*preparedFile, error) {
	if upload == nil || upload.Content == nil {
		return nil, nil
	}
	name, err := storage.SanitizeFilename(upload.Filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("%s filename is not allowed", kind))
	}

	data, err := io.ReadAll(io.LimitReader(upload.Content, s.config.MaxFileSize+1))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("failed to read %s upload", kind))
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s file is empty", kind))
	}
	if int64(len(data)) > s.config.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s exceeds %d bytes", kind, s.config.MaxFileSize))
	}

	detected := mimetype.Detect(data)
	if !mimetype.EqualsAny(detected.String(), allowedMIMEs[kind]...) {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("%s must be %s, got %s", kind, strings.Join(allowedMIMEs[kind], " or "), detected.String()))
	}

	if !s.config.LegacyNames {
		name = userID + "_" + name
	}
	return &preparedFile{name: name, data: data}, nil
}

func (s *ProfileService) store(store fileStore, kind models.FileKind, file *preparedFile) (*string, error) {
	if file == nil {
		return nil, nil
	}
	path, err := store.SaveStream(file.name, bytes.NewReader(file.data))
	if err != nil {
		s.logger.Error("upload write failed", zap.String("kind", string(kind)), zap.String("name", file.name), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, fmt.Sprintf("failed to store %s", kind))
	}
	s.metrics.RecordUpload(string(kind))
	return &path, nil
}

func (s *ProfileService) storeFor(kind models.FileKind) fileStore {
	switch kind {
	case models.FileKindResume:
		return s.resumes
	case models.FileKindPhoto:
		return s.photos
	default:
		return nil
	}
}

func (s *ProfileService) findByID(ctx context.Context, profileID string) (*models.StudentProfile, error) {
	profile, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return profile, nil
}

func (s *ProfileService) canAccessUser(actor *models.JWTClaims, userID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if actor.IsAdmin() || actor.UserID == userID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "profile belongs to another user")
}

func contentTypeOf(data []byte) string {
	return mimetype.Detect(data).String()
}

func extOf(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func trimProfileRequest(req dto.UpsertProfileRequest) dto.UpsertProfileRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Course = strings.TrimSpace(req.Course)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.RegisterNo = strings.TrimSpace(req.RegisterNo)
	req.AcademicYear = strings.TrimSpace(req.AcademicYear)
	return req
}
