package port

import (
	"context"
	"time"

	"github.com/avrorin/estate-api/internal/core/domain"
)

// TokenRepository persists hashed refresh tokens.
type TokenRepository interface {
	// Insert stores a new refresh-token record and enforces the per-user cap,
	// evicting the oldest entries first.
	Insert(ctx context.Context, token domain.RefreshToken) error
	// Remove atomically finds and deletes the record matching the hash,
	// returning it. Returns repository.ErrNotFound when no record matches;
	// concurrent presentations of the same hash see at most one success.
	Remove(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	// DeleteExpired prunes records for the user whose expiry has passed.
	DeleteExpired(ctx context.Context, userID string, now time.Time) error
	// ListByUser returns the stored records for device/audit display, newest
	// first.
	ListByUser(ctx context.Context, userID string) ([]domain.RefreshToken, error)
}
