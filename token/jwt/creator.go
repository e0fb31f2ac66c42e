package jwt

import (
	"fmt"
	"strconv"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/token/keys"
	"github.com/jrsteele09/sahasik/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Creator issues the access tokens handed out at login and refresh
type Creator struct {
	issuer string
	expiry time.Duration
}

func NewCreator(cfg config.TokenConfig) *Creator {
	return &Creator{
		issuer: cfg.GetIssuer(),
		expiry: cfg.GetAccessTokenExpiry(),
	}
}

// Expiry is the lifetime of every token the creator issues
func (c *Creator) Expiry() time.Duration {
	return c.expiry
}

// CreateAccessToken signs a token carrying the user's id, name and role
func (c *Creator) CreateAccessToken(user *users.User, signer keys.Signer) (string, error) {
	now := NowTimeFunc()
	claims := jwtlib.MapClaims{
		"iss":        c.issuer,
		"sub":        strconv.Itoa(user.ID),
		"username":   user.Username,
		"email":      user.Email,
		"role":       string(user.Role), // admin, teacher or student
		"token_type": "access",
		"iat":        now.Unix(),
		"exp":        now.Add(c.expiry).Unix(),
		"jti":        uuid.New().String(),
	}

	signed, err := signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
