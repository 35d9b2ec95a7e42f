package port

import (
	"context"

	"github.com/avrorin/estate-api/internal/core/domain"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification domain.Notification) error
}
