package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	josejwt "github.com/go-jose/go-jose/v4/jwt"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/port"
)

const (
	defaultJWKSURL  = "https://www.googleapis.com/oauth2/v3/certs"
	jwksCacheTTL    = time.Hour
	fetchTimeout    = 10 * time.Second
	issuerCanonical = "https://accounts.google.com"
	issuerLegacy    = "accounts.google.com"
)

// ErrInvalidIDToken indicates the Google ID token failed verification.
var ErrInvalidIDToken = errors.New("google: invalid id token")

// Verifier validates Google ID tokens against Google's published JWKS.
type Verifier struct {
	clientID   string
	jwksURL    string
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time

	mu        sync.RWMutex
	keys      *jose.JSONWebKeySet
	fetchedAt time.Time
}

// NewVerifier constructs a verifier for the given OAuth client ID.
func NewVerifier(clientID, jwksURL string, logger *zap.Logger) *Verifier {
	if jwksURL == "" {
		jwksURL = defaultJWKSURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Verifier{
		clientID:   clientID,
		jwksURL:    jwksURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		logger:     logger,
		now:        time.Now,
	}
}

type idTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Verify parses and validates the ID token, returning the verified profile.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*port.GoogleProfile, error) {
	if idToken == "" {
		return nil, ErrInvalidIDToken
	}

	parsed, err := josejwt.ParseSigned(idToken, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, ErrInvalidIDToken
	}

	if len(parsed.Headers) == 0 {
		return nil, ErrInvalidIDToken
	}
	kid := parsed.Headers[0].KeyID

	key, err := v.signingKey(ctx, kid)
	if err != nil {
		return nil, err
	}

	var registered josejwt.Claims
	var custom idTokenClaims
	if err := parsed.Claims(key.Key, &registered, &custom); err != nil {
		return nil, ErrInvalidIDToken
	}

	if err := registered.Validate(josejwt.Expected{Time: v.now()}); err != nil {
		return nil, ErrInvalidIDToken
	}
	if registered.Issuer != issuerCanonical && registered.Issuer != issuerLegacy {
		return nil, ErrInvalidIDToken
	}
	if v.clientID != "" && !containsAudience(registered.Audience, v.clientID) {
		return nil, ErrInvalidIDToken
	}
	if registered.Subject == "" || custom.Email == "" {
		return nil, ErrInvalidIDToken
	}

	return &port.GoogleProfile{
		Subject: registered.Subject,
		Email:   custom.Email,
		Name:    custom.Name,
		Picture: custom.Picture,
	}, nil
}

func containsAudience(aud josejwt.Audience, clientID string) bool {
	for _, a := range aud {
		if a == clientID {
			return true
		}
	}
	return false
}

// signingKey returns the JWKS key matching kid, refetching the set when the
// cache is stale or the kid is unknown (key rotation).
func (v *Verifier) signingKey(ctx context.Context, kid string) (*jose.JSONWebKey, error) {
	v.mu.RLock()
	keys := v.keys
	fresh := v.keys != nil && v.now().Sub(v.fetchedAt) < jwksCacheTTL
	v.mu.RUnlock()

	if fresh {
		if key := matchKey(keys, kid); key != nil {
			return key, nil
		}
	}

	refreshed, err := v.fetchKeys(ctx)
	if err != nil {
		return nil, err
	}

	if key := matchKey(refreshed, kid); key != nil {
		return key, nil
	}

	return nil, ErrInvalidIDToken
}

func matchKey(set *jose.JSONWebKeySet, kid string) *jose.JSONWebKey {
	if set == nil {
		return nil
	}
	matches := set.Key(kid)
	if len(matches) == 0 {
		return nil
	}
	return &matches[0]
}

func (v *Verifier) fetchKeys(ctx context.Context) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwksURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: build jwks request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: fetch jwks: unexpected status %d", resp.StatusCode)
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("google: decode jwks: %w", err)
	}

	v.mu.Lock()
	v.keys = &set
	v.fetchedAt = v.now()
	v.mu.Unlock()

	v.logger.Debug("refreshed google jwks", zap.Int("keys", len(set.Keys)))

	return &set, nil
}

var _ port.IdentityVerifier = (*Verifier)(nil)
