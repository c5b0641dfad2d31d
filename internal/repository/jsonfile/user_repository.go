package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
)

const usersFile = "users.json"

type userRecord struct {
	ID           string               `json:"id"`
	Email        string               `json:"email"`
	PasswordHash string               `json:"password_hash"`
	CreatedAt    repository.Timestamp `json:"created_at"`
}

// UserRepository stores all users in a single users.json table keyed by id.
type UserRepository struct {
	path string
	// mu serializes the read-modify-write in Create.
	mu sync.Mutex
}

func NewUserRepository(dataDir string) repository.UserRepository {
	return &UserRepository{path: filepath.Join(dataDir, usersFile)}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := users[user.ID]; ok {
		return fmt.Errorf("user id %s: %w", user.ID, repository.ErrUserAlreadyExists)
	}
	if findByEmail(users, user.Email) != nil {
		return repository.ErrUserAlreadyExists
	}

	users[user.ID] = userRecord{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    repository.Timestamp{Time: user.CreatedAt},
	}
	if err := writeJSON(r.path, users); err != nil {
		return fmt.Errorf("save users: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	rec := findByEmail(users, email)
	if rec == nil {
		return nil, repository.ErrNotFound
	}
	return rec.toDomain(), nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	users, err := r.load()
	if err != nil {
		return nil, err
	}
	rec, ok := users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.toDomain(), nil
}

// load reads the whole table. A missing file, or valid JSON that is not an
// object, is an empty table. A table that does not decode is an error so that
// Create never writes over accounts it could not read.
func (r *UserRepository) load() (map[string]userRecord, error) {
	var raw json.RawMessage
	found, err := readJSON(r.path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	users := make(map[string]userRecord)
	if !found || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return users, nil
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("load users: decode %s: %w", usersFile, err)
	}
	return users, nil
}

func findByEmail(users map[string]userRecord, email string) *userRecord {
	for _, rec := range users {
		if rec.Email == email {
			rec := rec
			return &rec
		}
	}
	return nil
}

func (r userRecord) toDomain() *domain.User {
	return &domain.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.Time,
	}
}
