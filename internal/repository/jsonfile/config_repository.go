package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
)

const configsDir = "configs"

type configDocument struct {
	Config    json.RawMessage      `json:"config"`
	UpdatedAt repository.Timestamp `json:"updated_at"`
}

// storedDocument is the read side of configDocument. updated_at is decoded
// separately so a bad timestamp does not hide the config.
type storedDocument struct {
	Config    json.RawMessage `json:"config"`
	UpdatedAt json.RawMessage `json:"updated_at"`
}

// ConfigRepository stores each user's config in configs/<user id>.json.
type ConfigRepository struct {
	dir   string
	locks keyedMutex
}

func NewConfigRepository(dataDir string) repository.ConfigRepository {
	return &ConfigRepository{dir: filepath.Join(dataDir, configsDir)}
}

func (r *ConfigRepository) Init(ctx context.Context) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create configs dir: %w", err)
	}
	return nil
}

func (r *ConfigRepository) Get(ctx context.Context, userID string) (*domain.ConfigRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validID(userID) {
		return nil, repository.ErrNotFound
	}

	var doc storedDocument
	found, err := readJSON(r.pathFor(userID), &doc)
	if errors.Is(err, errCorrupt) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if !found || len(doc.Config) == 0 || string(doc.Config) == "null" {
		return nil, repository.ErrNotFound
	}
	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    doc.Config,
		UpdatedAt: repository.LenientTimestamp(doc.UpdatedAt),
	}, nil
}

func (r *ConfigRepository) Put(ctx context.Context, userID string, config json.RawMessage, updatedAt time.Time) (*domain.ConfigRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validID(userID) {
		return nil, fmt.Errorf("invalid user id %q", userID)
	}

	unlock := r.locks.lock(userID)
	defer unlock()

	doc := configDocument{Config: config, UpdatedAt: repository.Timestamp{Time: updatedAt}}
	if err := writeJSON(r.pathFor(userID), doc); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}
	return &domain.ConfigRecord{
		UserID:    userID,
		Config:    append(json.RawMessage(nil), config...),
		UpdatedAt: updatedAt,
	}, nil
}

func (r *ConfigRepository) pathFor(userID string) string {
	return filepath.Join(r.dir, userID+".json")
}
