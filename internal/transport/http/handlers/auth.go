package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/transport/http/middleware"
	"github.com/avrorin/estate-api/internal/usecase"
)

const (
	bannedMessage       = "Your account has been banned. Please contact support for more information."
	invalidLoginMessage = "Invalid email or password"
)

// AuthHandler exposes registration, login, and session endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	registration *usecase.RegistrationService
	cookies      *CookieWriter
	logger       *zap.Logger
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(
	auth *usecase.AuthService,
	registration *usecase.RegistrationService,
	cookies *CookieWriter,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{auth: auth, registration: registration, cookies: cookies, logger: log}
}

func deviceFromRequest(c *gin.Context) domain.DeviceMetadata {
	return domain.DeviceMetadata{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}

func fail(c *gin.Context, status int, message, code string) {
	c.JSON(status, AuthResponse{Success: false, Message: message, Code: code})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "VALIDATION")
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		var validationErr *usecase.ValidationError
		switch {
		case errors.As(err, &validationErr):
			fail(c, http.StatusBadRequest, validationErr.Message, "VALIDATION")
		case errors.Is(err, usecase.ErrDuplicateEmail):
			fail(c, http.StatusBadRequest, "An account with this email already exists", "DUPLICATE_EMAIL")
		default:
			h.logger.Error("registration failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Registration failed", "INTERNAL_ERROR")
		}
		return
	}

	// The new account is signed in right away.
	pair, err := h.auth.StartSession(c.Request.Context(), user.ID, deviceFromRequest(c))
	if err != nil {
		h.logger.Error("post-registration session failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Registration failed", "INTERNAL_ERROR")
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Registration successful",
		User:    toUserSummary(user),
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "VALIDATION")
		return
	}

	pair, user, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, deviceFromRequest(c))
	if err != nil {
		h.respondLoginError(c, err)
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    toUserSummary(user),
	})
}

// LoginWithGoogle handles POST /api/auth/google.
func (h *AuthHandler) LoginWithGoogle(c *gin.Context) {
	var req GoogleLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.IDToken) == "" {
		fail(c, http.StatusBadRequest, "Google ID token is required", "VALIDATION")
		return
	}

	pair, user, err := h.auth.LoginWithGoogle(c.Request.Context(), req.IDToken, deviceFromRequest(c))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrGoogleIdentity):
			fail(c, http.StatusUnauthorized, "Google sign-in failed", "INVALID_TOKEN")
		case errors.Is(err, usecase.ErrAccountBanned):
			fail(c, http.StatusUnauthorized, bannedMessage, "ACCOUNT_BANNED")
		case errors.Is(err, usecase.ErrAccountInactive):
			fail(c, http.StatusForbidden, "Your account is deactivated.", "ACCOUNT_INACTIVE")
		default:
			h.logger.Error("google login failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Login failed", "INTERNAL_ERROR")
		}
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Login successful",
		User:    toUserSummary(user),
	})
}

// Refresh handles POST /api/auth/refresh. The refresh token arrives in the
// httpOnly cookie or, for non-browser clients, in the request body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	rawToken, _ := c.Cookie(refreshTokenCookie)
	if strings.TrimSpace(rawToken) == "" {
		var req RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			rawToken = req.RefreshToken
		}
	}
	if strings.TrimSpace(rawToken) == "" {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	pair, user, err := h.auth.Refresh(c.Request.Context(), rawToken, deviceFromRequest(c))
	if err != nil {
		h.cookies.ClearAuthCookies(c)
		switch {
		case errors.Is(err, usecase.ErrInvalidRefreshToken):
			fail(c, http.StatusUnauthorized, "Invalid or expired refresh token", "INVALID_REFRESH")
		case errors.Is(err, usecase.ErrSessionExpired):
			fail(c, http.StatusUnauthorized, "Session expired. Please log in again.", "SESSION_EXPIRED")
		case errors.Is(err, usecase.ErrUserNotFound):
			fail(c, http.StatusUnauthorized, "User not found", "USER_NOT_FOUND")
		case errors.Is(err, usecase.ErrAccountBanned):
			fail(c, http.StatusUnauthorized, bannedMessage, "ACCOUNT_BANNED")
		default:
			h.logger.Error("token refresh failed", zap.Error(err))
			fail(c, http.StatusInternalServerError, "Token refresh failed", "INTERNAL_ERROR")
		}
		return
	}

	h.cookies.SetAuthCookies(c, pair.AccessToken, pair.RefreshToken)
	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Token refreshed",
		User:    toUserSummary(user),
	})
}

// Logout handles POST /api/auth/logout. Succeeds whether or not a session
// existed.
func (h *AuthHandler) Logout(c *gin.Context) {
	if rawToken, err := c.Cookie(refreshTokenCookie); err == nil {
		if err := h.auth.Logout(c.Request.Context(), rawToken); err != nil {
			h.logger.Warn("logout failed", zap.Error(err))
		}
	}

	h.cookies.ClearAuthCookies(c)
	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Logged out"})
}

// LogoutAll handles POST /api/auth/logout-all. Requires authentication.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	if err := h.auth.LogoutAll(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("logout all failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Logout failed", "INTERNAL_ERROR")
		return
	}

	h.cookies.ClearAuthCookies(c)
	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "Logged out from all devices"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Success: true, User: toUserSummary(user)})
}

// Sessions handles GET /api/auth/sessions and lists active devices.
func (h *AuthHandler) Sessions(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	sessions, err := h.auth.ListSessions(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Could not list sessions", "INTERNAL_ERROR")
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:        session.ID,
			UserAgent: session.UserAgent,
			IPAddress: session.IPAddress,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		})
	}

	c.JSON(http.StatusOK, SessionsResponse{Success: true, Sessions: summaries})
}

func (h *AuthHandler) respondLoginError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		fail(c, http.StatusUnauthorized, invalidLoginMessage, "INVALID_CREDENTIALS")
	case errors.Is(err, usecase.ErrAccountBanned):
		// Credential endpoints report a ban as a failed authentication. The
		// guard keeps returning 403 for authenticated requests.
		fail(c, http.StatusUnauthorized, bannedMessage, "ACCOUNT_BANNED")
	case errors.Is(err, usecase.ErrAccountInactive):
		fail(c, http.StatusForbidden, "Your account is deactivated.", "ACCOUNT_INACTIVE")
	default:
		h.logger.Error("login failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "Login failed", "INTERNAL_ERROR")
	}
}
