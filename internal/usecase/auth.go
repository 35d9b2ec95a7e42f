package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/infra/config"
	"github.com/avrorin/estate-api/internal/infra/logger"
	"github.com/avrorin/estate-api/internal/infra/security"
	"github.com/avrorin/estate-api/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// responses cannot distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountBanned indicates the account is banned; surfaced with its own
	// message on login and guard checks.
	ErrAccountBanned = errors.New("account banned")
	// ErrAccountInactive indicates the account is deactivated.
	ErrAccountInactive = errors.New("account inactive")
	// ErrInvalidRefreshToken indicates the presented refresh token does not
	// exist, was already used, or has expired.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrSessionExpired indicates the refresh token predates a bulk
	// revocation and the whole session set is gone.
	ErrSessionExpired = errors.New("session expired")
	// ErrUserNotFound indicates the credential record behind a token no
	// longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrCannotBanAdmin rejects ban attempts against administrator accounts.
	ErrCannotBanAdmin = errors.New("cannot ban an administrator")
	// ErrGoogleIdentity indicates the Google ID token failed verification.
	ErrGoogleIdentity = errors.New("invalid google identity")
)

// TokenPair is the result of a successful login or refresh: a signed access
// token and the raw refresh token exactly once.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService coordinates login, session rotation, and revocation flows.
type AuthService struct {
	cfg      *config.AppConfig
	users    port.UserRepository
	tokens   port.TokenRepository
	codec    *security.AccessTokenCodec
	identity port.IdentityVerifier
	events   port.EventPublisher
	notifier *AdminNotifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tokens port.TokenRepository,
	codec *security.AccessTokenCodec,
	identity port.IdentityVerifier,
	events port.EventPublisher,
	notifier *AdminNotifier,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:      cfg,
		users:    users,
		tokens:   tokens,
		codec:    codec,
		identity: identity,
		events:   events,
		notifier: notifier,
		logger:   log,
		now:      time.Now,
	}
}

// WithClock injects a custom clock, primarily for testing.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login validates an email and password pair and opens a new session.
// Password verification runs even when the account has no stored hash so the
// failure path takes comparable time either way.
func (s *AuthService) Login(ctx context.Context, email, password string, device domain.DeviceMetadata) (*TokenPair, *domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	// A banned account is reported as banned even when the password is
	// wrong; the ban already confirms the account exists.
	if user.IsBanned {
		return nil, nil, ErrAccountBanned
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}

	pair, err := s.openSession(ctx, user, device)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("ip", logger.MaskIP(device.IPAddress)))

	sanitized := user.Sanitized()
	return pair, &sanitized, nil
}

// StartSession issues a fresh token pair for an already-validated account.
// Registration uses it so the new user is signed in immediately.
func (s *AuthService) StartSession(ctx context.Context, userID string, device domain.DeviceMetadata) (*TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	return s.openSession(ctx, user, device)
}

// LoginWithGoogle verifies a Google ID token and either signs the matching
// account in, links the Google subject to an existing account with the same
// email, or provisions a password-less account.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string, device domain.DeviceMetadata) (*TokenPair, *domain.User, error) {
	profile, err := s.identity.Verify(ctx, idToken)
	if err != nil {
		return nil, nil, ErrGoogleIdentity
	}
	// Accounts are keyed by email, so a Google profile without one can
	// neither match nor be provisioned.
	if strings.TrimSpace(profile.Email) == "" {
		return nil, nil, ErrGoogleIdentity
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		if user.GoogleID == nil || *user.GoogleID == "" {
			if err := s.users.LinkGoogleID(ctx, user.ID, profile.Subject); err != nil {
				return nil, nil, fmt.Errorf("link google id: %w", err)
			}
		}
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.provisionGoogleUser(ctx, profile)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsBanned {
		return nil, nil, ErrAccountBanned
	}
	if !user.IsActive {
		return nil, nil, ErrAccountInactive
	}

	pair, err := s.openSession(ctx, user, device)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("google login",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)))

	sanitized := user.Sanitized()
	return pair, &sanitized, nil
}

// Refresh rotates a refresh token. The presented token is consumed first, so
// whatever the outcome it can never be replayed.
func (s *AuthService) Refresh(ctx context.Context, rawToken string, device domain.DeviceMetadata) (*TokenPair, *domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, nil, ErrInvalidRefreshToken
	}

	stored, err := s.tokens.Remove(ctx, security.HashToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, fmt.Errorf("consume refresh token: %w", err)
	}

	if stored.IsExpired(s.now().UTC()) {
		return nil, nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsBanned {
		return nil, nil, ErrAccountBanned
	}
	if stored.IsStale(user.TokenVersion) {
		return nil, nil, ErrSessionExpired
	}

	pair, err := s.openSession(ctx, user, device)
	if err != nil {
		return nil, nil, err
	}

	sanitized := user.Sanitized()
	return pair, &sanitized, nil
}

// Logout revokes a single session by consuming its refresh token. A missing
// or already-consumed token is not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}

	if _, err := s.tokens.Remove(ctx, security.HashToken(rawToken)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("remove refresh token: %w", err)
	}

	return nil
}

// LogoutAll revokes every session of the user: all refresh tokens are purged
// and the token version bump invalidates outstanding access tokens at the
// guard.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	newVersion, err := s.users.RevokeAllSessions(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.publishSessionsRevoked(ctx, userID, "logout_all", newVersion)
	return nil
}

// Ban bans the account and revokes all its sessions in one state change.
// Administrator accounts cannot be banned.
func (s *AuthService) Ban(ctx context.Context, userID, bannedBy string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}
	if user.Role == domain.RoleAdmin {
		return ErrCannotBanAdmin
	}

	newVersion, err := s.users.RevokeAllSessions(ctx, userID, true)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("revoke sessions: %w", err)
	}

	s.logger.Info("user banned",
		zap.String("user_id", userID),
		zap.String("banned_by", bannedBy))

	now := s.now().UTC()
	if s.events != nil {
		if err := s.events.PublishUserBanned(ctx, domain.UserBannedEvent{
			UserID:   userID,
			BannedBy: bannedBy,
			BannedAt: now,
		}); err != nil {
			s.logger.Warn("publish user banned event", zap.Error(err))
		}
	}
	s.publishSessionsRevoked(ctx, userID, "ban", newVersion)

	return nil
}

// Unban lifts the ban flag. Revoked sessions stay revoked; the user has to
// log in again.
func (s *AuthService) Unban(ctx context.Context, userID, unbannedBy string) error {
	if err := s.users.SetBanned(ctx, userID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lift ban: %w", err)
	}

	s.logger.Info("user unbanned",
		zap.String("user_id", userID),
		zap.String("unbanned_by", unbannedBy))

	if s.events != nil {
		if err := s.events.PublishUserUnbanned(ctx, domain.UserUnbannedEvent{
			UserID:     userID,
			UnbannedBy: unbannedBy,
			UnbannedAt: s.now().UTC(),
		}); err != nil {
			s.logger.Warn("publish user unbanned event", zap.Error(err))
		}
	}

	return nil
}

// CurrentUser loads the fresh credential record behind a verified set of
// claims.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// VerifyAccess validates an access token and loads the live credential
// record behind it. The token version embedded in the claims must match the
// stored version or the session set was revoked since issuance.
func (s *AuthService) VerifyAccess(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if user.IsBanned {
		return nil, ErrAccountBanned
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, ErrSessionExpired
	}

	sanitized := user.Sanitized()
	return &sanitized, nil
}

// ListSessions returns the active refresh-token records of the user for
// device display, pruning expired rows first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	now := s.now().UTC()
	if err := s.tokens.DeleteExpired(ctx, userID, now); err != nil {
		return nil, fmt.Errorf("prune expired tokens: %w", err)
	}

	sessions, err := s.tokens.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

// openSession issues a fresh token pair and stores the refresh token hash.
func (s *AuthService) openSession(ctx context.Context, user *domain.User, device domain.DeviceMetadata) (*TokenPair, error) {
	accessToken, err := s.codec.Issue(*user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	rawRefresh, err := security.GenerateSecureToken(security.RefreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	now := s.now().UTC()
	if err := s.tokens.DeleteExpired(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("prune expired tokens: %w", err)
	}

	record := domain.RefreshToken{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		TokenHash:     security.HashToken(rawRefresh),
		IssuedVersion: user.TokenVersion,
		UserAgent:     device.UserAgent,
		IPAddress:     device.IPAddress,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.JWT.RefreshTokenTTL),
	}

	if err := s.tokens.Insert(ctx, record); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: rawRefresh}, nil
}

// provisionGoogleUser creates a password-less account from a verified Google
// profile.
func (s *AuthService) provisionGoogleUser(ctx context.Context, profile *port.GoogleProfile) (*domain.User, error) {
	now := s.now().UTC()
	subject := profile.Subject
	user := &domain.User{
		ID:        uuid.NewString(),
		Name:      profile.Name,
		Email:     strings.ToLower(strings.TrimSpace(profile.Email)),
		Role:      domain.RoleUser,
		Image:     profile.Picture,
		IsActive:  true,
		GoogleID:  &subject,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, *user); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			UserID:       user.ID,
			Name:         user.Name,
			Email:        user.Email,
			Role:         user.Role,
			Method:       "google",
			RegisteredAt: now,
		}); err != nil {
			s.logger.Warn("publish user registered event", zap.Error(err))
		}
	}
	if s.notifier != nil {
		// Admin notifications never hold up the signup response.
		go s.notifier.NotifyUserRegistered(context.WithoutCancel(ctx), *user)
	}

	return user, nil
}

func (s *AuthService) publishSessionsRevoked(ctx context.Context, userID, reason string, version int) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishSessionsRevoked(ctx, domain.SessionsRevokedEvent{
		UserID:       userID,
		Reason:       reason,
		TokenVersion: version,
		RevokedAt:    s.now().UTC(),
	}); err != nil {
		s.logger.Warn("publish sessions revoked event", zap.Error(err))
	}
}
