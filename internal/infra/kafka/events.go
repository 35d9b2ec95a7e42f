package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(userID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes estate.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Name         string    `json:"name"`
		Email        string    `json:"email"`
		Role         string    `json:"role"`
		Method       string    `json:"method"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Name:         event.Name,
		Email:        event.Email,
		Role:         string(event.Role),
		Method:       event.Method,
		RegisteredAt: event.RegisteredAt,
	}

	return p.publish(ctx, "user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserBanned publishes estate.user.banned events.
func (p *EventPublisher) PublishUserBanned(ctx context.Context, event domain.UserBannedEvent) error {
	payload := struct {
		UserID   string    `json:"user_id"`
		BannedBy string    `json:"banned_by"`
		BannedAt time.Time `json:"banned_at"`
	}{
		UserID:   event.UserID,
		BannedBy: event.BannedBy,
		BannedAt: event.BannedAt,
	}

	return p.publish(ctx, "user.banned", event.UserID, event.BannedAt, payload)
}

// PublishUserUnbanned publishes estate.user.unbanned events.
func (p *EventPublisher) PublishUserUnbanned(ctx context.Context, event domain.UserUnbannedEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		UnbannedBy string    `json:"unbanned_by"`
		UnbannedAt time.Time `json:"unbanned_at"`
	}{
		UserID:     event.UserID,
		UnbannedBy: event.UnbannedBy,
		UnbannedAt: event.UnbannedAt,
	}

	return p.publish(ctx, "user.unbanned", event.UserID, event.UnbannedAt, payload)
}

// PublishSessionsRevoked publishes estate.auth.sessions_revoked events.
func (p *EventPublisher) PublishSessionsRevoked(ctx context.Context, event domain.SessionsRevokedEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Reason       string    `json:"reason"`
		TokenVersion int       `json:"token_version"`
		RevokedAt    time.Time `json:"revoked_at"`
	}{
		UserID:       event.UserID,
		Reason:       event.Reason,
		TokenVersion: event.TokenVersion,
		RevokedAt:    event.RevokedAt,
	}

	return p.publish(ctx, "auth.sessions_revoked", event.UserID, event.RevokedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
