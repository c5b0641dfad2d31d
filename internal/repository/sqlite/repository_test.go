package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "accounts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))
	require.NoError(t, repo.Init(ctx), "Init must be idempotent")

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        "alice@example.com",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC),
	}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.GetByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, user.PasswordHash, got.PasswordHash)
	assert.True(t, user.CreatedAt.Equal(got.CreatedAt))

	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, got.Email)

	dup := *user
	dup.ID = uuid.NewString()
	err = repo.Create(ctx, &dup)
	require.ErrorIs(t, err, repository.ErrUserAlreadyExists)

	sameID := *user
	sameID.Email = "other@example.com"
	err = repo.Create(ctx, &sameID)
	require.Error(t, err)
	require.NotErrorIs(t, err, repository.ErrUserAlreadyExists)
	_, err = repo.GetByEmail(ctx, "other@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByEmail(ctx, "ALICE@example.com")
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConfigRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewConfigRepository(openTestDB(t))
	require.NoError(t, repo.Init(ctx))

	a, b := uuid.NewString(), uuid.NewString()
	_, err := repo.Get(ctx, a)
	require.ErrorIs(t, err, repository.ErrNotFound)

	ts1 := time.Date(2024, 6, 1, 10, 0, 0, 987654321, time.UTC)
	rec, err := repo.Put(ctx, a, json.RawMessage(`{"theme":"dark"}`), ts1)
	require.NoError(t, err)
	assert.True(t, ts1.Equal(rec.UpdatedAt))

	got, err := repo.Get(ctx, a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"theme":"dark"}`, string(got.Config))
	assert.True(t, ts1.Equal(got.UpdatedAt))

	ts2 := ts1.Add(time.Minute)
	_, err = repo.Put(ctx, a, json.RawMessage(`{"lang":"en"}`), ts2)
	require.NoError(t, err)

	got, err = repo.Get(ctx, a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lang":"en"}`, string(got.Config))
	assert.True(t, ts2.Equal(got.UpdatedAt))

	_, err = repo.Get(ctx, b)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
