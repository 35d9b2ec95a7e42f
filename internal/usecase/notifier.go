package usecase

import (
	"context"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
)

// AdminNotifier writes in-app notifications for administrators when accounts
// register. Failures are logged and swallowed; signup never fails because a
// notification could not be written.
type AdminNotifier struct {
	users         port.UserRepository
	notifications port.NotificationRepository
	logger        *zap.Logger
	now           func() time.Time
}

// NewAdminNotifier constructs an AdminNotifier.
func NewAdminNotifier(users port.UserRepository, notifications port.NotificationRepository, log *zap.Logger) *AdminNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminNotifier{
		users:         users,
		notifications: notifications,
		logger:        log,
		now:           time.Now,
	}
}

// NotifyUserRegistered creates one notification row per administrator.
func (n *AdminNotifier) NotifyUserRegistered(ctx context.Context, user domain.User) {
	admins, err := n.users.ListAdmins(ctx)
	if err != nil {
		n.logger.Warn("list admins for signup notification", zap.Error(err))
		return
	}

	now := n.now().UTC()
	for _, admin := range admins {
		notification := domain.Notification{
			ID:       uuid.NewString(),
			UserID:   admin.ID,
			Title:    "New user registered",
			Message:  user.Name + " joined as " + string(user.Role),
			Type:     "user_registered",
			Category: "users",
			Priority: "normal",
			Metadata: map[string]any{
				"new_user_id": user.ID,
				"role":        string(user.Role),
			},
			CreatedAt: now,
		}
		if err := n.notifications.Create(ctx, notification); err != nil {
			n.logger.Warn("create signup notification",
				zap.String("admin_id", admin.ID),
				zap.Error(err))
		}
	}
}
