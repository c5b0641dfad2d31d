// Package token issues and validates signed bearer tokens.
//
// Tokens are HS256 JWTs carrying the user id as subject, the email, and
// issued-at/expiry timestamps. Nothing is stored server side, so a token stays
// valid until it expires or the signing secret changes.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"easystudy-account/internal/domain"
)

// DefaultTTL is the token lifetime used when none is configured (30 days).
const DefaultTTL = 43200 * time.Minute

var (
	// ErrInvalidToken covers every validation failure: bad signature, wrong
	// algorithm, expiry, malformed input or missing claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptySecret is returned by New when no signing secret is provided.
	ErrEmptySecret = errors.New("token signing secret is empty")
)

var signingMethod = jwt.SigningMethodHS256

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a shared secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a token service. A non-positive ttl means DefaultTTL.
func New(secret []byte, ttl time.Duration, opts ...Option) (*Service, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Service{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	return s, nil
}

// TTL reports the lifetime given to new tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed token for the given user.
func (s *Service) Issue(userID, email string) (string, error) {
	now := s.now()
	tok := jwt.NewWithClaims(signingMethod, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature, algorithm and expiry of raw and returns its
// claims. Any failure yields ErrInvalidToken.
func (s *Service) Validate(raw string) (domain.Claims, error) {
	var c claims
	tok, err := s.parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return domain.Claims{}, ErrInvalidToken
	}
	if c.Subject == "" || c.ExpiresAt == nil {
		return domain.Claims{}, ErrInvalidToken
	}

	out := domain.Claims{
		UserID:    c.Subject,
		Email:     c.Email,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	return out, nil
}
