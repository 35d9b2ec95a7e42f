package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avrorin/estate-api/internal/core/domain"
)

var (
	// ErrInvalidAccessToken indicates the token is malformed, carries the
	// wrong issuer/audience, or failed signature validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the token validated except for its
	// expiry. Callers branch on this to tell clients to refresh rather than
	// re-login.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// AccessTokenClaims embeds the credential snapshot carried by every access
// token: user id, role, and the token version used for bulk revocation.
type AccessTokenClaims struct {
	UserID       string      `json:"userId"`
	Role         domain.Role `json:"role"`
	TokenVersion int         `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// AccessTokenCodec signs and verifies short-lived access tokens with a shared
// HMAC secret and fixed issuer/audience claims.
type AccessTokenCodec struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewAccessTokenCodec constructs the codec. TTL defaults to 15 minutes.
func NewAccessTokenCodec(secret, issuer, audience string, ttl time.Duration) (*AccessTokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &AccessTokenCodec{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// WithClock injects a custom clock, primarily for testing.
func (c *AccessTokenCodec) WithClock(now func() time.Time) *AccessTokenCodec {
	if now != nil {
		c.now = now
	}
	return c
}

// TTL returns the configured access-token lifetime.
func (c *AccessTokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs an access token for the credential record. Deterministic given
// identical input and clock.
func (c *AccessTokenCodec) Issue(user domain.User) (string, error) {
	if user.ID == "" {
		return "", fmt.Errorf("user id is required")
	}

	now := c.now().UTC()
	claims := AccessTokenClaims{
		UserID:       user.ID,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify validates signature, issuer, audience, and expiry. Expiry is the
// only failure reported as ErrExpiredAccessToken; everything else collapses
// into ErrInvalidAccessToken.
func (c *AccessTokenCodec) Verify(token string) (*AccessTokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidAccessToken
	}

	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredAccessToken
		}
		return nil, ErrInvalidAccessToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidAccessToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidAccessToken
	}

	return claims, nil
}
