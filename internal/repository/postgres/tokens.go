package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/repository"
)

var tokenColumns = []string{
	"id",
	"user_id",
	"token_hash",
	"issued_version",
	"user_agent",
	"ip_address",
	"created_at",
	"expires_at",
}

// TokenRepository implements port.TokenRepository using PostgreSQL.
type TokenRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository wires a PostgreSQL-backed refresh token repository.
func NewTokenRepository(pool pgPool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *TokenRepository) WithTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Insert stores a refresh token row and evicts the oldest rows beyond the
// per-user cap in the same transaction.
func (r *TokenRepository) Insert(ctx context.Context, token domain.RefreshToken) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert token tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt, args, err := r.builder.Insert("user_refresh_tokens").
		Columns(tokenColumns...).
		Values(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.IssuedVersion,
			token.UserAgent,
			token.IPAddress,
			token.CreatedAt,
			token.ExpiresAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert token sql: %w", err)
	}

	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert token: %w", err)
	}

	// Keep the newest rows by creation order. Expiry does not matter here,
	// an unexpired old session is still evicted before a newer one.
	evictStmt := `DELETE FROM user_refresh_tokens
		WHERE user_id = $1
		  AND id NOT IN (
			SELECT id FROM user_refresh_tokens
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		  )`
	if _, err := tx.Exec(ctx, evictStmt, token.UserID, domain.MaxRefreshTokensPerUser); err != nil {
		return fmt.Errorf("evict oldest tokens: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit insert token tx: %w", err)
	}

	return nil
}

// Remove deletes the row matching the hash and returns it. The single DELETE
// with RETURNING guarantees at most one caller wins a concurrent race on the
// same hash.
func (r *TokenRepository) Remove(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.Delete("user_refresh_tokens").
		Where(squirrel.Eq{"token_hash": tokenHash}).
		Suffix("RETURNING " + columnList(tokenColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build remove token sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	token, err := scanTokenRow(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan removed token: %w", err)
	}

	return token, nil
}

// DeleteExpired prunes rows for the user whose expiry has passed.
func (r *TokenRepository) DeleteExpired(ctx context.Context, userID string, now time.Time) error {
	stmt, args, err := r.builder.Delete("user_refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.LtOrEq{"expires_at": now}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete expired tokens sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete expired tokens: %w", err)
	}

	return nil
}

// ListByUser returns stored rows for the user, newest first.
func (r *TokenRepository) ListByUser(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	stmt, args, err := r.builder.Select(tokenColumns...).
		From("user_refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.RefreshToken
	for rows.Next() {
		token, err := scanTokenRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan token row: %w", err)
		}
		tokens = append(tokens, *token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token rows: %w", err)
	}

	return tokens, nil
}

func scanTokenRow(scan func(dest ...any) error) (*domain.RefreshToken, error) {
	var token domain.RefreshToken

	if err := scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.IssuedVersion,
		&token.UserAgent,
		&token.IPAddress,
		&token.CreatedAt,
		&token.ExpiresAt,
	); err != nil {
		return nil, err
	}

	return &token, nil
}

func columnList(columns []string) string {
	return strings.Join(columns, ", ")
}

var _ port.TokenRepository = (*TokenRepository)(nil)
