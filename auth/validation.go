package auth

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/sahasik/internal/errors"
)

const minRefreshTokenLength = 10

// Validator checks auth payloads before they are sent or served
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// ValidateLoginRequest requires a password and at least one of username or email
func (v *Validator) ValidateLoginRequest(req LoginRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidRequest, err)
	}
	return nil
}

// ValidateRefreshToken checks presence and rough shape of an opaque refresh token
func (v *Validator) ValidateRefreshToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: refresh_token is required", errors.ErrNoRefreshToken)
	}
	if len(token) < minRefreshTokenLength {
		return fmt.Errorf("%w: invalid refresh_token format", errors.ErrInvalidRefreshToken)
	}
	return nil
}

// ValidateAccessToken checks presence and JWT shape of an access token
func (v *Validator) ValidateAccessToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: access token is required", errors.ErrNotAuthenticated)
	}
	if len(strings.Split(token, ".")) != 3 {
		return fmt.Errorf("%w: must be a valid JWT", errors.ErrInvalidToken)
	}
	return nil
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
