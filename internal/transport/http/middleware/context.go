package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/avrorin/estate-api/internal/core/domain"
)

const (
	// CurrentUserKey is the gin context key holding the authenticated user.
	CurrentUserKey = "current_user"
)

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c *gin.Context, user *domain.User) {
	c.Set(CurrentUserKey, user)
}

// CurrentUser retrieves the authenticated user placed by RequireAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(CurrentUserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	if !ok || user == nil {
		return nil, false
	}
	return user, true
}
