package repository

import (
	"context"
	"encoding/json"
	"time"

	"easystudy-account/internal/domain"
)

// ConfigRepository stores one configuration record per user.
type ConfigRepository interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, userID string) (*domain.ConfigRecord, error)
	// Put replaces the user's record wholesale.
	Put(ctx context.Context, userID string, config json.RawMessage, updatedAt time.Time) (*domain.ConfigRecord, error)
}
