package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
	"github.com/noah-isme/student-portal-api/pkg/export"
	"github.com/noah-isme/student-portal-api/pkg/storage"
)

// ResumeArchiveName is the download name of the bulk resume export.
const ResumeArchiveName = "student_resumes.zip"

var entryNameCleaner = strings.NewReplacer("/", "-", `\`, "-")

var rosterColumns = []export.Column{
	{Key: "name", Header: "Name"},
	{Key: "email", Header: "Email"},
	{Key: "course", Header: "Course"},
	{Key: "student_id", Header: "Student ID"},
	{Key: "register_no", Header: "Register No"},
	{Key: "academic_year", Header: "Academic Year"},
}

type directoryRepository interface {
	Search(ctx context.Context, filter models.DirectoryFilter) ([]models.StudentProfile, error)
	FindByID(ctx context.Context, id string) (*models.StudentProfile, error)
}

type storedFileReader interface {
	ReadStored(kind models.FileKind, path string) ([]byte, bool)
}

// DirectoryConfig configures link generation.
type DirectoryConfig struct {
	APIPrefix string
}

// DirectoryService backs the admin student directory and its exports.
type DirectoryService struct {
	repo    directoryRepository
	files   storedFileReader
	signer  *storage.SignedURLSigner
	zip     *export.ZipExporter
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	metrics *MetricsService
	config  DirectoryConfig
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(repo directoryRepository, files storedFileReader, signer *storage.SignedURLSigner, logger *zap.Logger, metrics *MetricsService, cfg DirectoryConfig) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{
		repo:    repo,
		files:   files,
		signer:  signer,
		zip:     export.NewZipExporter(),
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		metrics: metrics,
		config:  cfg,
	}
}

// Search lists profiles whose name or email contains the query, optionally within one course.
func (s *DirectoryService) Search(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]models.StudentProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	profiles, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search students")
	}
	if profiles == nil {
		profiles = []models.StudentProfile{}
	}
	return profiles, nil
}

// Get returns the full record of one student.
func (s *DirectoryService) Get(ctx context.Context, actor *models.JWTClaims, profileID string) (*models.StudentProfile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return profile, nil
}

// ExportResumes zips the resumes of profiles as {name}_{course}_resume.pdf.
// Profiles without a readable resume are skipped. When two profiles map to
// the same entry name the later one replaces the earlier.
func (s *DirectoryService) ExportResumes(ctx context.Context, actor *models.JWTClaims, profiles []models.StudentProfile) ([]byte, int, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}

	entries := make([]export.ZipEntry, 0, len(profiles))
	index := make(map[string]int, len(profiles))
	skipped := 0
	for _, profile := range profiles {
		if profile.ResumePath == nil || *profile.ResumePath == "" {
			skipped++
			continue
		}
		data, ok := s.files.ReadStored(models.FileKindResume, *profile.ResumePath)
		if !ok {
			skipped++
			continue
		}
		name := entryNameCleaner.Replace(fmt.Sprintf("%s_%s_resume.pdf", profile.Name, profile.Course))
		if i, dup := index[name]; dup {
			entries[i].Content = data
			continue
		}
		index[name] = len(entries)
		entries = append(entries, export.ZipEntry{Name: name, Content: data})
	}

	archive, err := s.zip.Render(entries)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build resume archive")
	}
	s.metrics.ObserveExport("zip", len(entries))
	s.logger.Info("resume export built",
		zap.Int("profiles", len(profiles)),
		zap.Int("entries", len(entries)),
		zap.Int("skipped", skipped),
		zap.String("actor", actor.UserID),
	)
	return archive, len(entries), nil
}

// ExportResumesMatching runs Search and zips the resumes of the result.
func (s *DirectoryService) ExportResumesMatching(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter) ([]byte, int, error) {
	profiles, err := s.Search(ctx, actor, filter)
	if err != nil {
		return nil, 0, err
	}
	return s.ExportResumes(ctx, actor, profiles)
}

// ExportRoster renders the matching students as CSV or PDF.
func (s *DirectoryService) ExportRoster(ctx context.Context, actor *models.JWTClaims, filter models.DirectoryFilter, format string) (*FileDownload, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = dto.RosterFormatCSV
	}
	if format != dto.RosterFormatCSV && format != dto.RosterFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	profiles, err := s.Search(ctx, actor, filter)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Title: "Student roster", Columns: rosterColumns, Rows: make([]map[string]string, 0, len(profiles))}
	for _, p := range profiles {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"name":          p.Name,
			"email":         p.Email,
			"course":        p.Course,
			"student_id":    deref(p.StudentID),
			"register_no":   deref(p.RegisterNo),
			"academic_year": deref(p.AcademicYear),
		})
	}

	download := &FileDownload{Filename: "student_roster." + format}
	switch format {
	case dto.RosterFormatPDF:
		download.ContentType = "application/pdf"
		download.Content, err = s.pdf.Render(dataset)
	default:
		download.ContentType = "text/csv"
		download.Content, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}
	s.metrics.ObserveExport(format, len(profiles))
	return download, nil
}

// FileURL issues a signed, expiring link to a student's resume or photo.
func (s *DirectoryService) FileURL(ctx context.Context, actor *models.JWTClaims, profileID string, kind models.FileKind) (*dto.FileDownloadURL, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown file kind")
	}
	profile, err := s.Get(ctx, actor, profileID)
	if err != nil {
		return nil, err
	}
	path := profile.PathOf(kind)
	if path == nil || *path == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no %s uploaded", kind))
	}
	token, expiresAt, err := s.signer.Generate(profile.ID+":"+string(kind), *path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	return &dto.FileDownloadURL{
		URL:       strings.TrimRight(s.config.APIPrefix, "/") + "/files/" + token,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// DownloadSigned resolves a token from FileURL. Links die when the file is replaced.
func (s *DirectoryService) DownloadSigned(ctx context.Context, token string) (*FileDownload, error) {
	subject, path, err := s.signer.Parse(token)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	profileID, rawKind, ok := strings.Cut(subject, ":")
	kind := models.FileKind(rawKind)
	if !ok || !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download link")
	}

	profile, err := s.repo.FindByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	current := profile.PathOf(kind)
	if current == nil || *current != path {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file has been replaced")
	}
	data, found := s.files.ReadStored(kind, path)
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s file is missing", kind))
	}
	return &FileDownload{Filename: profile.Name + "_" + string(kind) + extOf(path), ContentType: contentTypeOf(data), Content: data}, nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
