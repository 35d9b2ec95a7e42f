package domain

import "time"

// UserRegisteredEvent is emitted after a new credential record is created,
// via password registration or first Google sign-in.
type UserRegisteredEvent struct {
	UserID       string
	Name         string
	Email        string
	Role         Role
	Method       string
	RegisteredAt time.Time
}

// UserBannedEvent is emitted when an administrator bans an account.
type UserBannedEvent struct {
	UserID   string
	BannedBy string
	BannedAt time.Time
}

// UserUnbannedEvent is emitted when an administrator lifts a ban.
type UserUnbannedEvent struct {
	UserID     string
	UnbannedBy string
	UnbannedAt time.Time
}

// SessionsRevokedEvent is emitted when every session of an account is
// invalidated at once (logout-all or ban).
type SessionsRevokedEvent struct {
	UserID       string
	Reason       string
	TokenVersion int
	RevokedAt    time.Time
}
