package domain

import "time"

// Role enumerates the account roles recognised by the marketplace.
type Role string

const (
	RoleUser     Role = "user"
	RoleAdmin    Role = "admin"
	RoleAgent    Role = "agent"
	RoleLandlord Role = "landlord"
	RoleBuilder  Role = "builder"
)

// User mirrors the persisted credential record in the users table.
// PasswordHash is empty for Google-only accounts and must never be serialized
// into API responses.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Phone        string
	Image        string
	IsBanned     bool
	IsActive     bool
	TokenVersion int
	GoogleID     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether password login is possible at all for this
// account. Accounts created through Google carry no hash and fail closed.
func (u User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Sanitized returns a copy safe to attach to request contexts and responses.
func (u User) Sanitized() User {
	clean := u
	clean.PasswordHash = ""
	clean.GoogleID = nil
	return clean
}
