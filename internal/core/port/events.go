package port

import (
	"context"

	"github.com/avrorin/estate-api/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserBanned(ctx context.Context, event domain.UserBannedEvent) error
	PublishUserUnbanned(ctx context.Context, event domain.UserUnbannedEvent) error
	PublishSessionsRevoked(ctx context.Context, event domain.SessionsRevokedEvent) error
}
