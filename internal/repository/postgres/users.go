package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/core/port"
	"github.com/avrorin/estate-api/internal/repository"
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"role",
	"phone",
	"image",
	"is_banned",
	"is_active",
	"token_version",
	"google_id",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    pgPool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(pool pgPool) *UserRepository {
	return &UserRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	var googleID any
	if user.GoogleID != nil && *user.GoogleID != "" {
		googleID = *user.GoogleID
	}

	stmt, args, err := r.builder.Insert("users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.Phone,
			user.Image,
			user.IsBanned,
			user.IsActive,
			user.TokenVersion,
			googleID,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by id sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	user, err := scanUserRow(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user by id: %w", err)
	}

	return user, nil
}

// GetByEmail retrieves a user by email, compared case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("users").
		Where(squirrel.Expr("lower(email) = lower(?)", email)).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by email sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	user, err := scanUserRow(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user by email: %w", err)
	}

	return user, nil
}

// LinkGoogleID attaches a Google subject to an existing account.
func (r *UserRepository) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	stmt, args, err := r.builder.Update("users").
		Set("google_id", googleID).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build link google id sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("link google id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetBanned flips the ban flag without touching stored tokens.
func (r *UserRepository) SetBanned(ctx context.Context, userID string, banned bool) error {
	stmt, args, err := r.builder.Update("users").
		Set("is_banned", banned).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set banned sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// RevokeAllSessions deletes every refresh token of the user and increments the
// token version inside a single transaction, so no interleaving can observe
// the version bump without the token purge. When ban is set the ban flag is
// raised in the same transaction.
func (r *UserRepository) RevokeAllSessions(ctx context.Context, userID string, ban bool) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin revoke sessions tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	update := r.builder.Update("users").
		Set("token_version", squirrel.Expr("token_version + 1")).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": userID}).
		Suffix("RETURNING token_version")
	if ban {
		update = update.Set("is_banned", true)
	}

	stmt, args, err := update.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke sessions sql: %w", err)
	}

	var newVersion int
	if err := tx.QueryRow(ctx, stmt, args...).Scan(&newVersion); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("bump token version: %w", err)
	}

	deleteStmt, deleteArgs, err := r.builder.Delete("user_refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete refresh tokens sql: %w", err)
	}

	if _, err := tx.Exec(ctx, deleteStmt, deleteArgs...); err != nil {
		return 0, fmt.Errorf("delete refresh tokens: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit revoke sessions tx: %w", err)
	}

	return newVersion, nil
}

// ListAdmins returns every account holding the admin role.
func (r *UserRepository) ListAdmins(ctx context.Context) ([]domain.User, error) {
	stmt, args, err := r.builder.Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"role": domain.RoleAdmin}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list admins sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var admins []domain.User
	for rows.Next() {
		user, err := scanUserRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan admin row: %w", err)
		}
		admins = append(admins, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admin rows: %w", err)
	}

	return admins, nil
}

func scanUserRow(scan func(dest ...any) error) (*domain.User, error) {
	var (
		user     domain.User
		googleID sql.NullString
	)

	if err := scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Phone,
		&user.Image,
		&user.IsBanned,
		&user.IsActive,
		&user.TokenVersion,
		&googleID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if googleID.Valid {
		value := googleID.String
		user.GoogleID = &value
	}

	return &user, nil
}

var _ port.UserRepository = (*UserRepository)(nil)
