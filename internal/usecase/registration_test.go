package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/infra/security"
)

type memNotificationRepo struct {
	mu      sync.Mutex
	created []domain.Notification
}

func (r *memNotificationRepo) Create(_ context.Context, notification domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, notification)
	return nil
}

type registrationFixture struct {
	service       *RegistrationService
	users         *memUserRepo
	notifications *memNotificationRepo
	publisher     *recordingPublisher
}

func newRegistrationFixture(t *testing.T) *registrationFixture {
	t.Helper()

	tokens := newMemTokenRepo()
	users := newMemUserRepo(tokens)
	notifications := &memNotificationRepo{}
	publisher := &recordingPublisher{}
	log := zaptest.NewLogger(t)

	// The notifier runs detached from the request; it is exercised directly
	// in its own tests so assertions here stay deterministic.
	service := NewRegistrationService(users, security.NewPasswordPolicy(), publisher, nil, log)

	return &registrationFixture{
		service:       service,
		users:         users,
		notifications: notifications,
		publisher:     publisher,
	}
}

func TestRegister_Success(t *testing.T) {
	f := newRegistrationFixture(t)

	user, err := f.service.Register(context.Background(), RegisterInput{
		Name:     "Bob Builder",
		Email:    "Bob@Example.com",
		Password: "longenough1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if user.Email != "bob@example.com" {
		t.Errorf("expected email lowercased, got %s", user.Email)
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected user role, got %s", user.Role)
	}
	if user.PasswordHash != "" {
		t.Errorf("password hash leaked into response user")
	}

	stored, err := f.users.GetByEmail(context.Background(), "bob@example.com")
	if err != nil {
		t.Fatalf("user not persisted: %v", err)
	}
	if !stored.HasPassword() {
		t.Errorf("stored user missing password hash")
	}
	ok, err := security.VerifyPassword("longenough1", stored.PasswordHash)
	if err != nil || !ok {
		t.Errorf("stored hash does not verify: ok=%v err=%v", ok, err)
	}

	if len(f.publisher.signedUps) != 1 || f.publisher.signedUps[0].Method != "password" {
		t.Errorf("expected one password registration event, got %+v", f.publisher.signedUps)
	}
}

func TestAdminNotifier_NotifiesEachAdmin(t *testing.T) {
	f := newRegistrationFixture(t)
	f.users.users["a1"] = &domain.User{ID: "a1", Email: "admin1@example.com", Role: domain.RoleAdmin, IsActive: true}
	f.users.users["a2"] = &domain.User{ID: "a2", Email: "admin2@example.com", Role: domain.RoleAdmin, IsActive: true}

	notifier := NewAdminNotifier(f.users, f.notifications, zaptest.NewLogger(t))
	notifier.NotifyUserRegistered(context.Background(), domain.User{
		ID:   "u-carol",
		Name: "Carol",
		Role: domain.RoleUser,
	})

	if len(f.notifications.created) != 2 {
		t.Fatalf("expected a notification per admin, got %d", len(f.notifications.created))
	}
	recipients := map[string]bool{}
	for _, n := range f.notifications.created {
		recipients[n.UserID] = true
		if n.Type != "user_registered" {
			t.Errorf("unexpected notification type %s", n.Type)
		}
	}
	if !recipients["a1"] || !recipients["a2"] {
		t.Errorf("expected both admins notified, got %v", recipients)
	}
}

func TestRegister_ValidationFailures(t *testing.T) {
	f := newRegistrationFixture(t)

	cases := []struct {
		name    string
		input   RegisterInput
		message string
	}{
		{"missing name", RegisterInput{Email: "x@example.com", Password: "longenough1"}, "Name is required"},
		{"missing email", RegisterInput{Name: "X", Password: "longenough1"}, "Email is required"},
		{"bad email", RegisterInput{Name: "X", Email: "not-an-email", Password: "longenough1"}, "Invalid email format"},
		{"short password", RegisterInput{Name: "X", Email: "x@example.com", Password: "short1"}, "Password must be at least 8 characters long"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.service.Register(context.Background(), tc.input)
			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Message != tc.message {
				t.Errorf("expected %q, got %q", tc.message, validationErr.Message)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newRegistrationFixture(t)

	input := RegisterInput{Name: "Dana", Email: "dana@example.com", Password: "longenough1"}
	if _, err := f.service.Register(context.Background(), input); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	input.Email = "DANA@example.com"
	if _, err := f.service.Register(context.Background(), input); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}
