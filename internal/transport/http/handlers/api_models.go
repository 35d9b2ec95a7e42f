package handlers

import (
	"time"

	"github.com/avrorin/estate-api/internal/core/domain"
)

// UserSummary is the public projection of a credential record. The password
// hash and the linked Google subject never appear here.
type UserSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Image     string    `json:"image,omitempty"`
	IsBanned  bool      `json:"isBanned"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserSummary(user *domain.User) *UserSummary {
	if user == nil {
		return nil
	}
	return &UserSummary{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Phone:     user.Phone,
		Image:     user.Image,
		IsBanned:  user.IsBanned,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

// RegisterRequest is the signup payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

// LoginRequest is the password login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleLoginRequest carries the Google ID token.
type GoogleLoginRequest struct {
	IDToken string `json:"idToken"`
}

// RefreshRequest carries the refresh token for clients that do not use the
// cookie.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the envelope for authentication endpoints.
type AuthResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Code    string       `json:"code,omitempty"`
	User    *UserSummary `json:"user,omitempty"`
}

// SessionSummary describes one active device session.
type SessionSummary struct {
	ID        string    `json:"id"`
	UserAgent string    `json:"userAgent,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionsResponse lists the active sessions of the authenticated user.
type SessionsResponse struct {
	Success  bool             `json:"success"`
	Sessions []SessionSummary `json:"sessions"`
}

// HealthResponse reports liveness status.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency health.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
