package service

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"easystudy-account/internal/security/password"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateEmail(email string) error {
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return fmt.Errorf("%w: email must be a valid address", ErrMalformedInput)
	}
	return nil
}

func validateNewPassword(pw string) error {
	if err := validate.Var(pw, fmt.Sprintf("min=%d", MinPasswordLength)); err != nil {
		return fmt.Errorf("%w: password must be at least %d characters", ErrMalformedInput, MinPasswordLength)
	}
	if len(pw) > password.MaxLength {
		return fmt.Errorf("%w: password must be at most %d bytes", ErrMalformedInput, password.MaxLength)
	}
	return nil
}

// validateConfig accepts any JSON object. Its contents are not inspected.
func validateConfig(config json.RawMessage) error {
	trimmed := bytes.TrimSpace(config)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return fmt.Errorf("%w: config must be a JSON object", ErrMalformedInput)
	}
	return nil
}
