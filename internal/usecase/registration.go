package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/infra/logger"
	"github.com/avrorin/estate-api/internal/infra/security"
	"github.com/avrorin/estate-api/internal/repository"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ErrDuplicateEmail indicates an account already exists under the email.
var ErrDuplicateEmail = errors.New("email already registered")

// ValidationError carries a user-facing message for a rejected input field.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	users    port.UserRepository
	policy   *security.PasswordPolicy
	events   port.EventPublisher
	notifier *AdminNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(
	users port.UserRepository,
	policy *security.PasswordPolicy,
	events port.EventPublisher,
	notifier *AdminNotifier,
	log *zap.Logger,
) *RegistrationService {
	if policy == nil {
		policy = security.NewPasswordPolicy()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RegistrationService{
		users:    users,
		policy:   policy,
		events:   events,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// RegisterInput carries the fields accepted at signup.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register validates input, creates the credential record, and notifies
// administrators. The new user is not signed in; login is a separate step.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if name == "" {
		return nil, &ValidationError{Message: "Name is required"}
	}
	if email == "" {
		return nil, &ValidationError{Message: "Email is required"}
	}
	if !emailPattern.MatchString(email) {
		return nil, &ValidationError{Message: "Invalid email format"}
	}

	if err := s.policy.Validate(input.Password, name, email); err != nil {
		var policyErr *security.PasswordPolicyError
		if errors.As(err, &policyErr) {
			return nil, &ValidationError{Message: policyErr.Message}
		}
		return nil, fmt.Errorf("validate password: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check duplicate email: %w", err)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		// Self-registration always yields a regular account. Privileged
		// roles are assigned through admin tooling.
		Role:         domain.RoleUser,
		Phone:        strings.TrimSpace(input.Phone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("role", string(user.Role)))

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			UserID:       user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Role:         user.Role,
			Method:       "password",
			RegisteredAt: now,
		}); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err))
		}
	}
	if s.notifier != nil {
		// Admin notifications never hold up the signup response.
		go s.notifier.NotifyUserRegistered(context.WithoutCancel(ctx), user)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}
