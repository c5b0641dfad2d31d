package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"easystudy-account/internal/domain"
	"easystudy-account/internal/repository"
	"easystudy-account/internal/security/password"
)

// TokenType is the scheme clients use to present issued tokens.
const TokenType = "bearer"

// TokenService issues and validates access tokens.
type TokenService interface {
	Issue(userID, email string) (string, error)
	Validate(raw string) (domain.Claims, error)
}

// RegisterInput carries a registration request. Config is optional.
type RegisterInput struct {
	Email    string
	Password string
	Config   json.RawMessage
}

// AuthResult is returned by Register and Login. Config is nil when the user
// has none.
type AuthResult struct {
	AccessToken string
	TokenType   string
	Config      json.RawMessage
	UserID      string
}

// AccountService implements registration, login and per-user config access.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Authenticate resolves a bearer token to its user.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	GetConfig(ctx context.Context, user *domain.User) (*domain.ConfigRecord, error)
	PutConfig(ctx context.Context, user *domain.User, config json.RawMessage) (*domain.ConfigRecord, error)
}

// Option customizes the account service.
type Option func(*accountService)

// WithClock replaces the time source for created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *accountService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used for account events.
func WithLogger(logger *logrus.Entry) Option {
	return func(s *accountService) {
		if logger != nil {
			s.log = logger
		}
	}
}

type accountService struct {
	users   repository.UserRepository
	configs repository.ConfigRepository
	hasher  password.Hasher
	tokens  TokenService
	now     func() time.Time
	log     *logrus.Entry

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(users repository.UserRepository, configs repository.ConfigRepository, hasher password.Hasher, tokens TokenService, opts ...Option) AccountService {
	s := &accountService{
		users:   users,
		configs: configs,
		hasher:  hasher,
		tokens:  tokens,
		now:     time.Now,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateNewPassword(in.Password); err != nil {
		return nil, err
	}
	if in.Config != nil {
		if err := validateConfig(in.Config); err != nil {
			return nil, err
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if in.Config != nil {
		if _, err := s.configs.Put(ctx, user.ID, in.Config, s.now().UTC()); err != nil {
			// the account stays registered; the client can log in and put the config again
			s.log.WithField("user_id", user.ID).WithError(err).Error("user registered without initial config")
			return nil, fmt.Errorf("store initial config: %w", err)
		}
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	s.log.WithField("user_id", user.ID).Info("user registered")
	return &AuthResult{
		AccessToken: token,
		TokenType:   TokenType,
		Config:      in.Config,
		UserID:      user.ID,
	}, nil
}

func (s *accountService) Login(ctx context.Context, email, pw string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if pw == "" {
		return nil, fmt.Errorf("%w: password is required", ErrMalformedInput)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// spend the same hashing time as a real check
			s.hasher.Verify(pw, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !s.hasher.Verify(pw, user.PasswordHash) {
		s.log.WithField("user_id", user.ID).Info("login rejected")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	result := &AuthResult{
		AccessToken: token,
		TokenType:   TokenType,
		UserID:      user.ID,
	}
	rec, err := s.configs.Get(ctx, user.ID)
	switch {
	case err == nil:
		result.Config = rec.Config
	case errors.Is(err, repository.ErrNotFound):
	default:
		return nil, fmt.Errorf("load config: %w", err)
	}

	s.log.WithField("user_id", user.ID).Info("user logged in")
	return result, nil
}

func (s *accountService) Authenticate(ctx context.Context, raw string) (*domain.User, error) {
	if raw == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.tokens.Validate(raw)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *accountService) GetConfig(ctx context.Context, user *domain.User) (*domain.ConfigRecord, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	rec, err := s.configs.Get(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return rec, nil
}

func (s *accountService) PutConfig(ctx context.Context, user *domain.User, config json.RawMessage) (*domain.ConfigRecord, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	rec, err := s.configs.Put(ctx, user.ID, config, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("store config: %w", err)
	}
	s.log.WithField("user_id", user.ID).Debug("config updated")
	return rec, nil
}

// dummy returns a hash of a random value for comparing against when the
// email is unknown.
func (s *accountService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
