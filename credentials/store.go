package credentials

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultRefreshCookieName is the storage key of the refresh token entry
const DefaultRefreshCookieName = "refresh_token"

// Store holds the credentials of a single client session. The access token
// lives only in process memory and is lost on restart; the refresh token is
// delegated to a RefreshRepo so it survives restarts until it expires.
type Store struct {
	mu          sync.RWMutex
	accessToken string
	generation  uint64

	// writeMu orders writes that touch both halves of the credentials
	writeMu sync.Mutex

	repo       RefreshRepo
	cookieName string
	secure     bool
	nowFunc    func() time.Time
}

type StoreOption func(*Store)

// WithCookieName overrides the name the refresh token is stored under
func WithCookieName(name string) StoreOption {
	return func(s *Store) {
		s.cookieName = name
	}
}

// WithSecure sets the secure attribute recorded with the refresh token
func WithSecure(secure bool) StoreOption {
	return func(s *Store) {
		s.secure = secure
	}
}

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func NewStore(repo RefreshRepo, options ...StoreOption) *Store {
	s := &Store{
		repo:       repo,
		cookieName: DefaultRefreshCookieName,
		secure:     true,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// SetAccessToken replaces the in-memory access token. An empty token clears it.
func (s *Store) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
	s.generation++
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// Snapshot returns the access token together with its generation. The
// generation changes whenever the access token is replaced or cleared, so two
// requests that carried the same generation were rejected for the same token.
func (s *Store) Snapshot() (string, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken, s.generation
}

// SetRefreshToken persists token for ttl, replacing any previous value
func (s *Store) SetRefreshToken(ctx context.Context, token string, ttl time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.putRefreshToken(ctx, token, ttl)
}

func (s *Store) putRefreshToken(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return fmt.Errorf("[Store.SetRefreshToken] %w: empty refresh token", errors.ErrMissingArgument)
	}
	if ttl <= 0 {
		return fmt.Errorf("[Store.SetRefreshToken] %w: ttl must be positive", errors.ErrInvalidRequest)
	}
	entry := Entry{
		Name:     s.cookieName,
		Value:    token,
		Expires:  s.nowFunc().Add(ttl),
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	}
	if err := s.repo.Put(ctx, entry); err != nil {
		return fmt.Errorf("[Store.SetRefreshToken] failed to persist refresh token: %w", err)
	}
	return nil
}

// RefreshToken returns the persisted refresh token or "" when it is absent or expired
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	entry, err := s.repo.Get(ctx, s.cookieName)
	if err != nil {
		return "", fmt.Errorf("[Store.RefreshToken] failed to read refresh token: %w", err)
	}
	if entry == nil || entry.Expired(s.nowFunc()) {
		return "", nil
	}
	return entry.Value, nil
}

// Load reads the access token, its generation and the refresh token as one
// consistent view with respect to Save, SaveIfCurrent and Reset.
func (s *Store) Load(ctx context.Context) (string, uint64, string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	accessToken, generation := s.Snapshot()
	refreshToken, err := s.RefreshToken(ctx)
	return accessToken, generation, refreshToken, err
}

// Save stores an access/refresh pair. A missing refresh token keeps the
// currently persisted one.
func (s *Store) Save(ctx context.Context, token *oauth2.Token, ttl time.Duration) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("[Store.Save] %w: empty access token", errors.ErrMissingArgument)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.SetAccessToken(token.AccessToken)
	if token.RefreshToken == "" {
		return nil
	}
	return s.putRefreshToken(ctx, token.RefreshToken, ttl)
}

// SaveIfCurrent is Save guarded by the generation observed before the token
// pair was requested. It stores nothing and reports false when the
// credentials were replaced or cleared in the meantime.
func (s *Store) SaveIfCurrent(ctx context.Context, token *oauth2.Token, ttl time.Duration, generation uint64) (bool, error) {
	if token == nil || token.AccessToken == "" {
		return false, fmt.Errorf("[Store.SaveIfCurrent] %w: empty access token", errors.ErrMissingArgument)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if s.generation != generation {
		s.mu.Unlock()
		return false, nil
	}
	s.accessToken = token.AccessToken
	s.generation++
	s.mu.Unlock()

	if token.RefreshToken == "" {
		return true, nil
	}
	return true, s.putRefreshToken(ctx, token.RefreshToken, ttl)
}

// ClearTokens forgets the access token and removes the persisted refresh
// token. Clearing already-empty credentials changes nothing.
func (s *Store) ClearTokens(ctx context.Context) error {
	_, err := s.Reset(ctx)
	return err
}

// Reset behaves like ClearTokens and also reports the generation of the
// cleared state. The generation moves whenever either token was present, so a
// SaveIfCurrent racing with the clear cannot bring the session back.
func (s *Store) Reset(ctx context.Context) (uint64, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	entry, getErr := s.repo.Get(ctx, s.cookieName)
	persisted := getErr != nil || (entry != nil && !entry.Expired(s.nowFunc()))

	s.mu.Lock()
	if s.accessToken != "" || persisted {
		s.accessToken = ""
		s.generation++
	}
	generation := s.generation
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, s.cookieName); err != nil {
		return generation, fmt.Errorf("[Store.ClearTokens] failed to delete refresh token: %w", err)
	}
	log.Debug().Str("entry", s.cookieName).Msg("credentials cleared")
	return generation, nil
}
