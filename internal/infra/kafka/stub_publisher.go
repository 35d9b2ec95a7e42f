package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
)

// StubPublisher logs events instead of producing them. Used when Kafka
// is unavailable or disabled so the rest of the service keeps working.
type StubPublisher struct {
	logger *zap.Logger
}

func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (s *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	s.logger.Info("event skipped, kafka disabled",
		zap.String("event_type", "user.registered"),
		zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishUserBanned(_ context.Context, event domain.UserBannedEvent) error {
	s.logger.Info("event skipped, kafka disabled",
		zap.String("event_type", "user.banned"),
		zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishUserUnbanned(_ context.Context, event domain.UserUnbannedEvent) error {
	s.logger.Info("event skipped, kafka disabled",
		zap.String("event_type", "user.unbanned"),
		zap.String("user_id", event.UserID))
	return nil
}

func (s *StubPublisher) PublishSessionsRevoked(_ context.Context, event domain.SessionsRevokedEvent) error {
	s.logger.Info("event skipped, kafka disabled",
		zap.String("event_type", "auth.sessions_revoked"),
		zap.String("user_id", event.UserID))
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
