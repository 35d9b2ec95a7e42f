package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/transport/http/middleware"
	"github.com/avrorin/estate-api/internal/usecase"
)

// AdminHandler exposes moderation endpoints restricted to administrators.
type AdminHandler struct {
	auth   *usecase.AuthService
	logger *zap.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(auth *usecase.AuthService, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{auth: auth, logger: log}
}

// BanUser handles POST /api/auth/admin/ban/:id. Banning revokes every
// session of the target in the same step.
func (h *AdminHandler) BanUser(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	targetID := c.Param("id")
	if err := h.auth.Ban(c.Request.Context(), targetID, admin.ID); err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			fail(c, http.StatusNotFound, "User not found", "USER_NOT_FOUND")
		case errors.Is(err, usecase.ErrCannotBanAdmin):
			fail(c, http.StatusForbidden, "Administrators cannot be banned", "CANNOT_BAN_ADMIN")
		default:
			h.logger.Error("ban user failed", zap.String("target_id", targetID), zap.Error(err))
			fail(c, http.StatusInternalServerError, "Could not ban user", "INTERNAL_ERROR")
		}
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "User banned"})
}

// UnbanUser handles POST /api/auth/admin/unban/:id. Lifting a ban does not
// restore revoked sessions.
func (h *AdminHandler) UnbanUser(c *gin.Context) {
	admin, ok := middleware.CurrentUser(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Authentication required. Please log in.", "NO_TOKEN")
		return
	}

	targetID := c.Param("id")
	if err := h.auth.Unban(c.Request.Context(), targetID, admin.ID); err != nil {
		switch {
		case errors.Is(err, usecase.ErrUserNotFound):
			fail(c, http.StatusNotFound, "User not found", "USER_NOT_FOUND")
		default:
			h.logger.Error("unban user failed", zap.String("target_id", targetID), zap.Error(err))
			fail(c, http.StatusInternalServerError, "Could not unban user", "INTERNAL_ERROR")
		}
		return
	}

	c.JSON(http.StatusOK, AuthResponse{Success: true, Message: "User unbanned"})
}
