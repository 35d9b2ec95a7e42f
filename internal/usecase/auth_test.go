package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/infra/config"
	"github.com/avrorin/estate-api/internal/infra/security"
	"github.com/avrorin/estate-api/internal/repository"
)

type memTokenRepo struct {
	mu     sync.Mutex
	tokens map[string]domain.RefreshToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]domain.RefreshToken{}}
}

func (r *memTokenRepo) Insert(_ context.Context, token domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.TokenHash] = token

	var owned []domain.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == token.UserID {
			owned = append(owned, t)
		}
	}
	if len(owned) > domain.MaxRefreshTokensPerUser {
		sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
		for _, evict := range owned[:len(owned)-domain.MaxRefreshTokensPerUser] {
			delete(r.tokens, evict.TokenHash)
		}
	}
	return nil
}

func (r *memTokenRepo) Remove(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.tokens, tokenHash)
	return &token, nil
}

func (r *memTokenRepo) DeleteExpired(_ context.Context, userID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for hash, token := range r.tokens {
		if token.UserID == userID && token.IsExpired(now) {
			delete(r.tokens, hash)
		}
	}
	return nil
}

func (r *memTokenRepo) ListByUser(_ context.Context, userID string) ([]domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var owned []domain.RefreshToken
	for _, token := range r.tokens {
		if token.UserID == userID {
			owned = append(owned, token)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	return owned, nil
}

func (r *memTokenRepo) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, token := range r.tokens {
		if token.UserID == userID {
			n++
		}
	}
	return n
}

type memUserRepo struct {
	mu     sync.Mutex
	users  map[string]*domain.User
	tokens *memTokenRepo
}

func newMemUserRepo(tokens *memTokenRepo) *memUserRepo {
	return &memUserRepo{users: map[string]*domain.User{}, tokens: tokens}
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := user
	r.users[user.ID] = &clone
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) LinkGoogleID(_ context.Context, userID, googleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.GoogleID = &googleID
	return nil
}

func (r *memUserRepo) SetBanned(_ context.Context, userID string, banned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsBanned = banned
	return nil
}

func (r *memUserRepo) RevokeAllSessions(ctx context.Context, userID string, ban bool) (int, error) {
	r.mu.Lock()
	user, ok := r.users[userID]
	if !ok {
		r.mu.Unlock()
		return 0, repository.ErrNotFound
	}
	user.TokenVersion++
	if ban {
		user.IsBanned = true
	}
	version := user.TokenVersion
	r.mu.Unlock()

	r.tokens.mu.Lock()
	for hash, token := range r.tokens.tokens {
		if token.UserID == userID {
			delete(r.tokens.tokens, hash)
		}
	}
	r.tokens.mu.Unlock()

	return version, nil
}

func (r *memUserRepo) ListAdmins(_ context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var admins []domain.User
	for _, user := range r.users {
		if user.Role == domain.RoleAdmin {
			admins = append(admins, *user)
		}
	}
	return admins, nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	banned    []domain.UserBannedEvent
	unbanned  []domain.UserUnbannedEvent
	revoked   []domain.SessionsRevokedEvent
	signedUps []domain.UserRegisteredEvent
}

func (p *recordingPublisher) PublishUserRegistered(_ context.Context, e domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signedUps = append(p.signedUps, e)
	return nil
}

func (p *recordingPublisher) PublishUserBanned(_ context.Context, e domain.UserBannedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned = append(p.banned, e)
	return nil
}

func (p *recordingPublisher) PublishUserUnbanned(_ context.Context, e domain.UserUnbannedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unbanned = append(p.unbanned, e)
	return nil
}

func (p *recordingPublisher) PublishSessionsRevoked(_ context.Context, e domain.SessionsRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, e)
	return nil
}

type staticVerifier struct {
	profile *port.GoogleProfile
	err     error
}

func (v *staticVerifier) Verify(context.Context, string) (*port.GoogleProfile, error) {
	return v.profile, v.err
}

type authFixture struct {
	service   *AuthService
	users     *memUserRepo
	tokens    *memTokenRepo
	publisher *recordingPublisher
	codec     *security.AccessTokenCodec
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	codec, err := security.NewAccessTokenCodec("fixture-secret-0123456789abcdef!!", "estate-api", "estate-clients", 15*time.Minute)
	if err != nil {
		t.Fatalf("NewAccessTokenCodec: %v", err)
	}
	f.codec = codec.WithClock(clock)

	cfg := &config.AppConfig{}
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 7 * 24 * time.Hour

	f.tokens = newMemTokenRepo()
	f.users = newMemUserRepo(f.tokens)
	f.publisher = &recordingPublisher{}

	f.service = NewAuthService(cfg, f.users, f.tokens, f.codec, &staticVerifier{}, f.publisher, nil, zaptest.NewLogger(t)).
		WithClock(clock)

	return f
}

func (f *authFixture) seedUser(t *testing.T, id, email, password string, mutate func(*domain.User)) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:       id,
		Name:     "Seed User",
		Email:    email,
		Role:     domain.RoleUser,
		IsActive: true,
	}
	if password != "" {
		hash, err := security.HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		user.PasswordHash = hash
	}
	if mutate != nil {
		mutate(user)
	}

	f.users.mu.Lock()
	f.users.users[id] = user
	f.users.mu.Unlock()
	return user
}

func testDevice() domain.DeviceMetadata {
	return domain.DeviceMetadata{UserAgent: "test-agent", IPAddress: "203.0.113.7"}
}

func TestLogin_Success(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	pair, user, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}
	if user.PasswordHash != "" {
		t.Errorf("password hash leaked into response user")
	}

	stored, err := f.tokens.Remove(context.Background(), security.HashToken(pair.RefreshToken))
	if err != nil {
		t.Fatalf("refresh token not stored under its hash: %v", err)
	}
	if stored.UserID != "u1" {
		t.Errorf("stored token belongs to %s", stored.UserID)
	}
	if stored.UserAgent != "test-agent" || stored.IPAddress != "203.0.113.7" {
		t.Errorf("device metadata not captured: %+v", stored)
	}
	if !stored.ExpiresAt.Equal(f.now.Add(7 * 24 * time.Hour)) {
		t.Errorf("unexpected expiry %v", stored.ExpiresAt)
	}
}

func TestLogin_CaseInsensitiveEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	if _, _, err := f.service.Login(context.Background(), "Alice@Example.COM", "longenough1", testDevice()); err != nil {
		t.Fatalf("expected case-insensitive email match, got %v", err)
	}
}

func TestLogin_FailureModesIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	_, _, unknownErr := f.service.Login(context.Background(), "nobody@example.com", "longenough1", testDevice())
	_, _, wrongErr := f.service.Login(context.Background(), "alice@example.com", "not-the-password", testDevice())

	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", unknownErr)
	}
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}
	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("failure modes distinguishable: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLogin_PasswordlessAccountFailsClosed(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "google-only@example.com", "", func(u *domain.User) {
		subject := "google-subject-1"
		u.GoogleID = &subject
	})

	_, _, err := f.service.Login(context.Background(), "google-only@example.com", "anything", testDevice())
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_BannedAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "banned@example.com", "longenough1", func(u *domain.User) {
		u.IsBanned = true
	})

	_, _, err := f.service.Login(context.Background(), "banned@example.com", "longenough1", testDevice())
	if !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected ErrAccountBanned, got %v", err)
	}

	// The ban wins over the credential check: a wrong password still gets
	// the banned error, not the masked credential failure.
	_, _, err = f.service.Login(context.Background(), "banned@example.com", "wrong-password", testDevice())
	if !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected ErrAccountBanned for wrong password, got %v", err)
	}
}

func TestRefresh_RotationIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, _, err := f.service.Refresh(context.Background(), pair.RefreshToken, testDevice())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("rotation reissued the same refresh token")
	}

	if _, _, err := f.service.Refresh(context.Background(), pair.RefreshToken, testDevice()); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replay to fail with ErrInvalidRefreshToken, got %v", err)
	}

	if _, _, err := f.service.Refresh(context.Background(), rotated.RefreshToken, testDevice()); err != nil {
		t.Fatalf("rotated token should be usable once: %v", err)
	}
}

func TestRefresh_StaleVersionFailsAndConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", func(u *domain.User) {
		u.TokenVersion = 2
	})

	raw := "stale-refresh-token"
	_ = f.tokens.Insert(context.Background(), domain.RefreshToken{
		ID:            "t1",
		UserID:        "u1",
		TokenHash:     security.HashToken(raw),
		IssuedVersion: 1,
		CreatedAt:     f.now,
		ExpiresAt:     f.now.Add(time.Hour),
	})

	if _, _, err := f.service.Refresh(context.Background(), raw, testDevice()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	// The stale token was consumed on presentation.
	if _, err := f.tokens.Remove(context.Background(), security.HashToken(raw)); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("stale token should be gone, got %v", err)
	}
}

func TestRefresh_ExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	raw := "expired-refresh-token"
	_ = f.tokens.Insert(context.Background(), domain.RefreshToken{
		ID:        "t1",
		UserID:    "u1",
		TokenHash: security.HashToken(raw),
		CreatedAt: f.now.Add(-8 * 24 * time.Hour),
		ExpiresAt: f.now.Add(-24 * time.Hour),
	})

	if _, _, err := f.service.Refresh(context.Background(), raw, testDevice()); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshTokenCapEvictsOldest(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	var firstPair *TokenPair
	for i := 0; i < domain.MaxRefreshTokensPerUser+2; i++ {
		f.now = f.now.Add(time.Second)
		pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
		if err != nil {
			t.Fatalf("Login %d: %v", i, err)
		}
		if firstPair == nil {
			firstPair = pair
		}
	}

	if got := f.tokens.countFor("u1"); got != domain.MaxRefreshTokensPerUser {
		t.Fatalf("expected %d stored tokens, got %d", domain.MaxRefreshTokensPerUser, got)
	}

	if _, _, err := f.service.Refresh(context.Background(), firstPair.RefreshToken, testDevice()); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected evicted token to be unusable, got %v", err)
	}
}

func TestLogoutAll_InvalidatesAccessAndRefresh(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.LogoutAll(context.Background(), "u1"); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}

	if got := f.tokens.countFor("u1"); got != 0 {
		t.Fatalf("expected all refresh tokens purged, %d remain", got)
	}

	if _, err := f.service.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected outstanding access token to fail with ErrSessionExpired, got %v", err)
	}

	if len(f.publisher.revoked) != 1 || f.publisher.revoked[0].Reason != "logout_all" {
		t.Errorf("expected one sessions-revoked event, got %+v", f.publisher.revoked)
	}
}

func TestBan_RevokesSessionsAndBlocksLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)
	f.seedUser(t, "admin", "admin@example.com", "longenough1", func(u *domain.User) {
		u.Role = domain.RoleAdmin
	})

	pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.Ban(context.Background(), "u1", "admin"); err != nil {
		t.Fatalf("Ban: %v", err)
	}

	if got := f.tokens.countFor("u1"); got != 0 {
		t.Fatalf("expected refresh tokens purged on ban, %d remain", got)
	}

	if _, err := f.service.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected ErrAccountBanned on guard, got %v", err)
	}

	if _, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice()); !errors.Is(err, ErrAccountBanned) {
		t.Fatalf("expected ErrAccountBanned on login, got %v", err)
	}

	if len(f.publisher.banned) != 1 {
		t.Errorf("expected one banned event, got %d", len(f.publisher.banned))
	}
}

func TestBan_AdminRejected(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "admin", "admin@example.com", "longenough1", func(u *domain.User) {
		u.Role = domain.RoleAdmin
	})

	if err := f.service.Ban(context.Background(), "admin", "other-admin"); !errors.Is(err, ErrCannotBanAdmin) {
		t.Fatalf("expected ErrCannotBanAdmin, got %v", err)
	}
}

func TestUnban_DoesNotRestoreSessions(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)
	f.seedUser(t, "admin", "admin@example.com", "longenough1", func(u *domain.User) {
		u.Role = domain.RoleAdmin
	})

	pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.Ban(context.Background(), "u1", "admin"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if err := f.service.Unban(context.Background(), "u1", "admin"); err != nil {
		t.Fatalf("Unban: %v", err)
	}

	// Pre-ban tokens stay dead.
	if _, err := f.service.VerifyAccess(context.Background(), pair.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected pre-ban access token to stay invalid, got %v", err)
	}
	if _, _, err := f.service.Refresh(context.Background(), pair.RefreshToken, testDevice()); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected pre-ban refresh token to stay invalid, got %v", err)
	}

	// A fresh login works again.
	if _, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice()); err != nil {
		t.Fatalf("expected login after unban to succeed, got %v", err)
	}
}

func TestLogout_Idempotent(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	pair, _, err := f.service.Login(context.Background(), "alice@example.com", "longenough1", testDevice())
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.service.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := f.service.Logout(context.Background(), pair.RefreshToken); err != nil {
		t.Fatalf("second Logout should be a no-op, got %v", err)
	}
	if err := f.service.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout with empty token should be a no-op, got %v", err)
	}
}

func TestLoginWithGoogle_ProvisionsAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.service.identity = &staticVerifier{profile: &port.GoogleProfile{
		Subject: "google-sub-1",
		Email:   "new@example.com",
		Name:    "New User",
		Picture: "https://example.com/p.png",
	}}

	pair, user, err := f.service.LoginWithGoogle(context.Background(), "some-id-token", testDevice())
	if err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected a full token pair")
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected default role user, got %s", user.Role)
	}

	stored, err := f.users.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("provisioned user not stored: %v", err)
	}
	if stored.HasPassword() {
		t.Errorf("google-provisioned account must not carry a password hash")
	}
	if len(f.publisher.signedUps) != 1 || f.publisher.signedUps[0].Method != "google" {
		t.Errorf("expected one google registration event, got %+v", f.publisher.signedUps)
	}
}

func TestLoginWithGoogle_LinksExistingAccount(t *testing.T) {
	f := newAuthFixture(t)
	f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)
	f.service.identity = &staticVerifier{profile: &port.GoogleProfile{
		Subject: "google-sub-2",
		Email:   "alice@example.com",
		Name:    "Alice",
	}}

	if _, _, err := f.service.LoginWithGoogle(context.Background(), "some-id-token", testDevice()); err != nil {
		t.Fatalf("LoginWithGoogle: %v", err)
	}

	stored, err := f.users.GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.GoogleID == nil || *stored.GoogleID != "google-sub-2" {
		t.Errorf("expected google subject linked, got %v", stored.GoogleID)
	}
}

func TestLoginWithGoogle_RejectedToken(t *testing.T) {
	f := newAuthFixture(t)
	f.service.identity = &staticVerifier{err: errors.New("bad signature")}

	if _, _, err := f.service.LoginWithGoogle(context.Background(), "forged", testDevice()); !errors.Is(err, ErrGoogleIdentity) {
		t.Fatalf("expected ErrGoogleIdentity, got %v", err)
	}
}

func TestLoginWithGoogle_MissingEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.service.identity = &staticVerifier{profile: &port.GoogleProfile{
		Subject: "google-sub-3",
		Name:    "No Email",
	}}

	if _, _, err := f.service.LoginWithGoogle(context.Background(), "some-id-token", testDevice()); !errors.Is(err, ErrGoogleIdentity) {
		t.Fatalf("expected ErrGoogleIdentity, got %v", err)
	}
	if len(f.users.users) != 0 {
		t.Fatalf("no account should be provisioned without an email, got %d", len(f.users.users))
	}
}

func TestVerifyAccess_InactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "u1", "alice@example.com", "longenough1", nil)

	token, err := f.codec.Issue(*user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	f.users.mu.Lock()
	f.users.users["u1"].IsActive = false
	f.users.mu.Unlock()

	if _, err := f.service.VerifyAccess(context.Background(), token); !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestVerifyAccess_DeletedUser(t *testing.T) {
	f := newAuthFixture(t)
	user := f.seedUser(t, "ghost", "ghost@example.com", "longenough1", nil)

	token, err := f.codec.Issue(*user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	f.users.mu.Lock()
	delete(f.users.users, "ghost")
	f.users.mu.Unlock()

	if _, err := f.service.VerifyAccess(context.Background(), token); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
