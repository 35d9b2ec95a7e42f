package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/avrorin/estate-api/internal/core/domain"
	"github.com/avrorin/estate-api/internal/repository"
)

func testToken(now time.Time) domain.RefreshToken {
	return domain.RefreshToken{
		ID:            "token-1",
		UserID:        "user-1",
		TokenHash:     "deadbeef",
		IssuedVersion: 3,
		UserAgent:     "curl/8.0",
		IPAddress:     "203.0.113.7",
		CreatedAt:     now,
		ExpiresAt:     now.Add(7 * 24 * time.Hour),
	}
}

func TestTokenRepository_InsertEnforcesCap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	now := time.Now().UTC()
	token := testToken(now)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_refresh_tokens`).
		WithArgs(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.IssuedVersion,
			token.UserAgent,
			token.IPAddress,
			token.CreatedAt,
			token.ExpiresAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM user_refresh_tokens`).
		WithArgs(token.UserID, domain.MaxRefreshTokensPerUser).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	if err := repo.Insert(context.Background(), token); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_InsertRollsBackOnEvictionFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	token := testToken(time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO user_refresh_tokens`).
		WithArgs(
			token.ID,
			token.UserID,
			token.TokenHash,
			token.IssuedVersion,
			token.UserAgent,
			token.IPAddress,
			token.CreatedAt,
			token.ExpiresAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM user_refresh_tokens`).
		WithArgs(token.UserID, domain.MaxRefreshTokensPerUser).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.Insert(context.Background(), token); err == nil {
		t.Fatalf("expected eviction failure to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_RemoveReturnsRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	now := time.Now().UTC()
	want := testToken(now)

	mock.ExpectQuery(`DELETE FROM user_refresh_tokens`).
		WithArgs(want.TokenHash).
		WillReturnRows(pgxmock.NewRows(tokenColumns).AddRow(
			want.ID,
			want.UserID,
			want.TokenHash,
			want.IssuedVersion,
			want.UserAgent,
			want.IPAddress,
			want.CreatedAt,
			want.ExpiresAt,
		))

	got, err := repo.Remove(context.Background(), want.TokenHash)
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if got.ID != want.ID || got.UserID != want.UserID || got.IssuedVersion != want.IssuedVersion {
		t.Fatalf("unexpected token %+v", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_RemoveMiss(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)

	mock.ExpectQuery(`DELETE FROM user_refresh_tokens`).
		WithArgs("unknown-hash").
		WillReturnRows(pgxmock.NewRows(tokenColumns))

	if _, err := repo.Remove(context.Background(), "unknown-hash"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_DeleteExpired(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	now := time.Now().UTC()

	mock.ExpectExec(`DELETE FROM user_refresh_tokens`).
		WithArgs("user-1", now).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))

	if err := repo.DeleteExpired(context.Background(), "user-1", now); err != nil {
		t.Fatalf("DeleteExpired returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTokenRepository_ListByUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTokenRepository(mock)
	now := time.Now().UTC()
	newer := testToken(now)
	older := testToken(now.Add(-time.Hour))
	older.ID = "token-0"
	older.TokenHash = "cafe"

	mock.ExpectQuery(`SELECT .+ FROM user_refresh_tokens`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(tokenColumns).
			AddRow(newer.ID, newer.UserID, newer.TokenHash, newer.IssuedVersion, newer.UserAgent, newer.IPAddress, newer.CreatedAt, newer.ExpiresAt).
			AddRow(older.ID, older.UserID, older.TokenHash, older.IssuedVersion, older.UserAgent, older.IPAddress, older.CreatedAt, older.ExpiresAt))

	tokens, err := repo.ListByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListByUser returned error: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(tokens))
	}
	if tokens[0].ID != newer.ID || tokens[1].ID != older.ID {
		t.Fatalf("unexpected order: %s, %s", tokens[0].ID, tokens[1].ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
