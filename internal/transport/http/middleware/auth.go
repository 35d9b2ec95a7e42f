package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/infra/security"
	"github.com/avrorin/estate-api/internal/usecase"
)

const accessTokenCookie = "accessToken"

type authErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func abortAuth(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, authErrorBody{Success: false, Message: message, Code: code})
}

// extractToken returns the access token from the Authorization header or,
// failing that, the accessToken cookie. The header wins when both are
// present so API clients can override a stale browser cookie.
func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if cookie, err := c.Cookie(accessTokenCookie); err == nil {
		return strings.TrimSpace(cookie)
	}

	return ""
}

// RequireAuth validates the access token and loads the live user record into
// the request context. Requests with no token, a bad token, or a revoked
// session never reach the handler.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abortAuth(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
			return
		}

		user, err := auth.VerifyAccess(c.Request.Context(), token)
		if err != nil {
			respondAuthError(c, err)
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalAuth loads the user when a valid token is present but lets the
// request through either way. Handlers branch on CurrentUser presence.
func OptionalAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Next()
			return
		}

		if user, err := auth.VerifyAccess(c.Request.Context(), token); err == nil {
			SetCurrentUser(c, user)
		}

		c.Next()
	}
}

// RequireRole allows only users holding one of the listed roles. Must run
// after RequireAuth.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
			return
		}

		if !allowed[user.Role] {
			abortAuth(c, http.StatusForbidden,
				"You do not have permission to perform this action", "INSUFFICIENT_PERMISSIONS")
			return
		}

		c.Next()
	}
}

// ResourceOwner resolves the owning user of the resource a route addresses.
// An empty owner ID means the resource does not exist.
type ResourceOwner func(c *gin.Context) (string, error)

// RequireOwnerOrAdmin loads the addressed resource's owner and allows the
// request when the authenticated user owns it or holds the admin role. A
// resource that cannot be found yields 404 rather than leaking whether the
// caller would have been allowed. Must run after RequireAuth.
func RequireOwnerOrAdmin(owner ResourceOwner) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortAuth(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
			return
		}

		ownerID, err := owner(c)
		if err != nil {
			abortAuth(c, http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
			return
		}
		if ownerID == "" {
			abortAuth(c, http.StatusNotFound, "Resource not found", "NOT_FOUND")
			return
		}

		if user.Role != domain.RoleAdmin && ownerID != user.ID {
			abortAuth(c, http.StatusForbidden,
				"You do not have permission to perform this action", "INSUFFICIENT_PERMISSIONS")
			return
		}

		c.Next()
	}
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, security.ErrExpiredAccessToken):
		abortAuth(c, http.StatusUnauthorized, "Access token expired", "ACCESS_TOKEN_EXPIRED")
	case errors.Is(err, security.ErrInvalidAccessToken):
		abortAuth(c, http.StatusUnauthorized, "Invalid token", "INVALID_TOKEN")
	case errors.Is(err, usecase.ErrUserNotFound):
		abortAuth(c, http.StatusUnauthorized, "User not found", "USER_NOT_FOUND")
	case errors.Is(err, usecase.ErrAccountBanned):
		abortAuth(c, http.StatusForbidden,
			"Your account has been banned. Please contact support for more information.", "ACCOUNT_BANNED")
	case errors.Is(err, usecase.ErrAccountInactive):
		abortAuth(c, http.StatusForbidden, "Your account is deactivated.", "ACCOUNT_INACTIVE")
	case errors.Is(err, usecase.ErrSessionExpired):
		abortAuth(c, http.StatusUnauthorized, "Session expired. Please log in again.", "SESSION_EXPIRED")
	default:
		abortAuth(c, http.StatusInternalServerError, "Authentication failed", "INTERNAL_ERROR")
	}
}
