package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
)

const createConfigsTable = `
CREATE TABLE IF NOT EXISTS user_configs (
	user_id TEXT PRIMARY KEY,
	config TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// ConfigRepository keeps one user_configs row per user. updated_at is stored
// as unix nanoseconds so reads return the exact instant that was written.
type ConfigRepository struct {
	db *sql.DB
}

func NewConfigRepository(db *sql.DB) repository.ConfigRepository {
	return &ConfigRepository{db: db}
}

func (r *ConfigRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createConfigsTable); err != nil {
		return fmt.Errorf("create user_configs table: %w", err)
	}
	return nil
}

func (r *ConfigRepository) Get(ctx context.Context, userID string) (*domain.ConfigRecord, error) {
	var (
		raw       string
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
SELECT config, updated_at
FROM user_configs
WHERE user_id = ?`,
		userID,
	).Scan(&raw, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("select config: %w", err)
	}

	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    json.RawMessage(raw),
		UpdatedAt: time.Unix(0, updatedAt).UTC(),
	}, nil
}

func (r *ConfigRepository) Put(ctx context.Context, userID string, config json.RawMessage, updatedAt time.Time) (*domain.ConfigRecord, error) {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_configs (user_id, config, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	config = excluded.config,
	updated_at = excluded.updated_at`,
		userID,
		string(config),
		updatedAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert config: %w", err)
	}

	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    append(json.RawMessage(nil), config...),
		UpdatedAt: updatedAt,
	}, nil
}
