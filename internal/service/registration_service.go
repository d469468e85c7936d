package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-portal-api/internal/dto"
	"github.com/noah-isme/student-portal-api/internal/models"
	"github.com/noah-isme/student-portal-api/pkg/database"
	appErrors "github.com/noah-isme/student-portal-api/pkg/errors"
)

type registrationRepository interface {
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, pending *models.PendingRegistration) (bool, error)
	List(ctx context.Context) ([]models.PendingRegistration, error)
	Delete(ctx context.Context, id string) error
	Approve(ctx context.Context, id string) (*models.ApprovalResult, error)
}

type courseChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// RegistrationConfig holds the intake policy.
type RegistrationConfig struct {
	AllowedEmailDomains []string
}

// RegistrationService runs the pending → approved/rejected workflow.
type RegistrationService struct {
	repo      registrationRepository
	courses   courseChecker
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	domains   []string
	hash      func(string) (string, error)
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(repo registrationRepository, courses courseChecker, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, cfg RegistrationConfig) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	domains := make([]string, 0, len(cfg.AllowedEmailDomains))
	for _, d := range cfg.AllowedEmailDomains {
		if d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@")); d != "" {
			domains = append(domains, d)
		}
	}
	return &RegistrationService{
		repo:      repo,
		courses:   courses,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		domains:   domains,
		hash:      HashPassword,
	}
}

// Submit validates a self-registration and queues it for review.
func (s *RegistrationService) Submit(ctx context.Context, req dto.SubmitRegistrationRequest) (*models.PendingRegistration, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Course = strings.TrimSpace(req.Course)

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	if len(req.Password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if !s.domainAllowed(req.Email) {
		return nil, appErrors.Clone(appErrors.ErrInvalidDomain, "email must use one of: "+strings.Join(s.domains, ", "))
	}

	offered, err := s.courses.Exists(ctx, req.Course)
	if err != nil {
		return nil, err
	}
	if !offered {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course "+req.Course+" is not offered")
	}

	taken, err := s.repo.UsernameTaken(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	if taken {
		return nil, duplicateUsername(req.Username)
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrValidation) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	pending := &models.PendingRegistration{
		Username:     req.Username,
		PasswordHash: hash,
		Name:         req.Name,
		Email:        req.Email,
		Course:       req.Course,
	}
	inserted, err := s.repo.Create(ctx, pending)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return nil, duplicateUsername(req.Username)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit registration")
	}
	if !inserted {
		return nil, duplicateUsername(req.Username)
	}

	s.metrics.RecordRegistration("submitted")
	s.logger.Info("registration submitted", zap.String("pending_id", pending.ID), zap.String("username", pending.Username))
	return pending, nil
}

// ListPending returns the review queue in submission order.
func (s *RegistrationService) ListPending(ctx context.Context, actor *models.JWTClaims) ([]models.PendingRegistration, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending registrations")
	}
	if items == nil {
		items = []models.PendingRegistration{}
	}
	return items, nil
}

// Approve turns a pending registration into a student account and profile.
// A failed approval leaves the pending row in place so it can be retried.
func (s *RegistrationService) Approve(ctx context.Context, actor *models.JWTClaims, pendingID string) (*models.ApprovalResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	result, err := s.repo.Approve(ctx, pendingID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pending registration not found")
		case database.IsUniqueViolation(err, database.ConstraintUsersUsername):
			return nil, appErrors.Wrap(err, appErrors.ErrDuplicateUsername.Code, appErrors.ErrDuplicateUsername.Status, "username already belongs to an account")
		case database.IsUniqueViolation(err, database.ConstraintStudentsUserID):
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "student profile already exists for this account")
		default:
			s.logger.Error("registration approval rolled back", zap.String("pending_id", pendingID), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrTransactionFailed.Code, appErrors.ErrTransactionFailed.Status, "failed to approve registration")
		}
	}

	s.metrics.RecordRegistration("approved")
	s.logger.Info("registration approved",
		zap.String("pending_id", pendingID),
		zap.String("user_id", result.User.ID),
		zap.String("profile_id", result.Profile.ID),
		zap.String("actor", actor.UserID),
	)
	return result, nil
}

// Reject discards a pending registration.
func (s *RegistrationService) Reject(ctx context.Context, actor *models.JWTClaims, pendingID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, pendingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "pending registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject registration")
	}
	s.metrics.RecordRegistration("rejected")
	s.logger.Info("registration rejected", zap.String("pending_id", pendingID), zap.String("actor", actor.UserID))
	return nil
}

func (s *RegistrationService) domainAllowed(email string) bool {
	if len(s.domains) == 0 {
		return true
	}
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range s.domains {
		if domain == allowed {
			return true
		}
	}
	return false
}

func duplicateUsername(username string) *appErrors.Error {
	return appErrors.Clone(appErrors.ErrDuplicateUsername, "username "+username+" is already taken")
}
