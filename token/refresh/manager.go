package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	expiry time.Duration
	length int
}

func NewManager(repo Repo, cfg config.TokenConfig) *Manager {
	return &Manager{
		repo:   repo,
		expiry: cfg.GetRefreshTokenExpiry(),
		length: cfg.GetRefreshTokenLength(),
	}
}

// Expiry is how long an issued refresh token stays usable
func (m *Manager) Expiry() time.Duration {
	return m.expiry
}

// Create issues a new refresh token for userID, replacing any previous one
func (m *Manager) Create(userID int) (string, error) {
	if existing, err := m.repo.GetByUserID(userID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", fmt.Errorf("failed to delete existing refresh token: %w", err)
		}
	}

	tokenBytes := make([]byte, m.length)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:  token,
		UserID: userID,
		Iat:    NowTimeFunc(),
	}); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return token, nil
}

// Rotate consumes token and issues its replacement. Unknown or expired
// tokens fail with errors.ErrInvalidRefreshToken or errors.ErrRefreshTokenExpired.
func (m *Manager) Rotate(token string) (userID int, next string, err error) {
	stored, err := m.repo.Get(token)
	if err != nil || stored == nil {
		return 0, "", fmt.Errorf("%w: unknown refresh token", errors.ErrInvalidRefreshToken)
	}
	if m.IsExpired(stored) {
		_ = m.repo.Delete(token)
		return 0, "", errors.ErrRefreshTokenExpired
	}
	next, err = m.Create(stored.UserID)
	if err != nil {
		return 0, "", err
	}
	return stored.UserID, next, nil
}

func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

func (m *Manager) Delete(token string) error {
	return m.repo.Delete(token)
}

func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.expiry
}
