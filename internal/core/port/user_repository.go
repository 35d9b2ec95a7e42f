package port

import (
	"context"

	"github.com/avrorin/estate-api/internal/core/domain"
)

// UserRepository persists credential records.
type UserRepository interface {
	// Create inserts a new credential record.
	Create(ctx context.Context, user domain.User) error
	// GetByID retrieves a record by identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail retrieves a record by its case-insensitive email key.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// LinkGoogleID attaches an external Google identity to an existing record.
	LinkGoogleID(ctx context.Context, userID, googleID string) error
	// SetBanned flips the ban flag without touching sessions. Used by unban;
	// ban goes through RevokeAllSessions in the same state change.
	SetBanned(ctx context.Context, userID string, banned bool) error
	// RevokeAllSessions deletes every stored refresh token and increments the
	// token version as one atomic state change, optionally setting the ban
	// flag in the same step. Returns the new token version.
	RevokeAllSessions(ctx context.Context, userID string, ban bool) (int, error)
	// ListAdmins returns every record holding the admin role.
	ListAdmins(ctx context.Context) ([]domain.User, error)
}
