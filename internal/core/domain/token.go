package domain

import "time"

// MaxRefreshTokensPerUser caps the stored refresh-token records for a single
// account. Insertion beyond the cap evicts the oldest entries by creation
// order, not by expiry.
const MaxRefreshTokensPerUser = 10

// RefreshToken is a persisted refresh-token record. Only the SHA-256 hash of
// the opaque token is ever stored; the raw value exists transiently in memory
// and inside the single response that issued it.
type RefreshToken struct {
	ID            string
	UserID        string
	TokenHash     string
	IssuedVersion int
	UserAgent     string
	IPAddress     string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsStale reports whether the token was issued against an older token version
// and therefore belongs to a globally revoked session set.
func (t RefreshToken) IsStale(currentVersion int) bool {
	return t.IssuedVersion != currentVersion
}

// DeviceMetadata captures the originating client of a login or refresh, kept
// for audit and device listings.
type DeviceMetadata struct {
	UserAgent string
	IPAddress string
}
