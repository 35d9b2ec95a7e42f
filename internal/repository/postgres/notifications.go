package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
)

// NotificationRepository implements port.NotificationRepository using PostgreSQL.
type NotificationRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewNotificationRepository wires a PostgreSQL-backed notification repository.
func NewNotificationRepository(pool pgPool) *NotificationRepository {
	return &NotificationRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a notification row. Metadata is stored as JSONB.
func (r *NotificationRepository) Create(ctx context.Context, notification domain.Notification) error {
	var metadata any
	if notification.Metadata != nil {
		encoded, err := json.Marshal(notification.Metadata)
		if err != nil {
			return fmt.Errorf("marshal notification metadata: %w", err)
		}
		metadata = encoded
	}

	stmt, args, err := r.builder.Insert("notifications").
		Columns(
			"id",
			"user_id",
			"title",
			"message",
			"type",
			"category",
			"priority",
			"action_url",
			"metadata",
			"read",
			"created_at",
		).
		Values(
			notification.ID,
			notification.UserID,
			notification.Title,
			notification.Message,
			notification.Type,
			notification.Category,
			notification.Priority,
			notification.ActionURL,
			metadata,
			notification.Read,
			notification.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert notification sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
