// Package sessions owns the user-facing session: who is signed in, whether a
// check is in progress, and what happens when the gateway gives up on the
// credentials.
package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/credentials"
	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

// Authenticator is the part of the auth service client the controller uses.
// Validate is expected to travel through the gateway.
type Authenticator interface {
	Login(ctx context.Context, username, email, password string) (*auth.LoginResponse, error)
	Validate(ctx context.Context) (*auth.ValidateResponse, error)
}

// State is a snapshot of the session. A session is authenticated exactly when
// it has a user.
type State struct {
	User            *users.User
	IsLoading       bool
	IsAuthenticated bool
}

type Controller struct {
	store      *credentials.Store
	auth       Authenticator
	refreshTTL time.Duration
	nowFunc    func() time.Time

	mu        sync.RWMutex
	user      *users.User
	loading   bool
	listeners map[int]func(State)
	nextID    int

	unsubscribe func()
}

type Option func(*Controller)

// WithRefreshTTL sets how long the refresh token from a login is persisted
func WithRefreshTTL(ttl time.Duration) Option {
	return func(c *Controller) {
		c.refreshTTL = ttl
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Controller) {
		c.nowFunc = now
	}
}

// NewController returns a controller that starts out loading, waiting for the
// first ValidateSession. When events is not nil the controller signs the user
// out whenever the gateway reports an expired session.
func NewController(store *credentials.Store, authenticator Authenticator, events *gateway.Events, options ...Option) *Controller {
	c := &Controller{
		store:      store,
		auth:       authenticator,
		refreshTTL: gateway.DefaultRefreshTTL,
		nowFunc:    time.Now,
		loading:    true,
		listeners:  make(map[int]func(State)),
	}
	for _, opt := range options {
		opt(c)
	}
	if events != nil {
		c.unsubscribe = events.Subscribe(c.onEvent)
	}
	return c
}

// Login signs in with a username or an email and stores the issued tokens
func (c *Controller) Login(ctx context.Context, username, email, password string) (*users.User, error) {
	c.setLoading(true)

	resp, err := c.auth.Login(ctx, username, email, password)
	if err != nil {
		c.setLoading(false)
		log.Warn().Err(err).Str("username", username).Msg("login failed")
		return nil, fmt.Errorf("[Controller.Login] %w", err)
	}
	if err := c.store.Save(ctx, resp.Token(c.nowFunc()), c.refreshTTL); err != nil {
		c.setLoading(false)
		return nil, fmt.Errorf("[Controller.Login] %w", err)
	}

	user := resp.User
	c.set(&user, false)
	log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msgf("welcome back, %s", user.FullName)
	return &user, nil
}

// Logout forgets the credentials and the user
func (c *Controller) Logout(ctx context.Context) error {
	err := c.store.ClearTokens(ctx)
	c.set(nil, false)
	if err != nil {
		return fmt.Errorf("[Controller.Logout] %w", err)
	}
	log.Info().Msg("signed out")
	return nil
}

// ValidateSession restores the session from the persisted refresh token.
// Without one it fails with errors.ErrValidationFailed and never reaches the
// network. Any failure leaves the session cleared.
func (c *Controller) ValidateSession(ctx context.Context) (*users.User, error) {
	c.setLoading(true)

	user, err := c.validate(ctx)
	if err != nil {
		if clearErr := c.store.ClearTokens(ctx); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear credentials after validation failure")
		}
		c.set(nil, false)
		log.Debug().Err(err).Msg("session validation failed")
		return nil, fmt.Errorf("[Controller.ValidateSession] %w: %w", errors.ErrValidationFailed, err)
	}

	c.set(user, false)
	return user, nil
}

// Refetch re-validates the session and reloads the user
func (c *Controller) Refetch(ctx context.Context) error {
	_, err := c.ValidateSession(ctx)
	return err
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state()
}

// User returns the signed in user or nil
func (c *Controller) User() *users.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// RequireRole returns the current user when it holds one of roles. No roles
// only requires a user.
func (c *Controller) RequireRole(roles ...users.RoleType) (*users.User, error) {
	c.mu.RLock()
	user := c.user
	c.mu.RUnlock()

	if user == nil {
		return nil, errors.ErrNotAuthenticated
	}
	if !user.HasRole(roles...) {
		return nil, fmt.Errorf("%w: role %s", errors.ErrForbidden, user.Role)
	}
	return user, nil
}

// OnChange calls fn with every new state until the returned function is called
func (c *Controller) OnChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Close stops listening for expired sessions
func (c *Controller) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Controller) validate(ctx context.Context) (*users.User, error) {
	refreshToken, err := c.store.RefreshToken(ctx)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, errors.ErrNoRefreshToken
	}

	// A rejected refresh token is a validation failure, not an expiry
	resp, err := c.auth.Validate(gateway.WithoutSessionEvents(ctx))
	if err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, errors.ErrInvalidToken
	}
	user := resp.User
	return &user, nil
}

func (c *Controller) onEvent(event gateway.Event) {
	if event.Type != gateway.EventSessionExpired {
		return
	}
	log.Info().Err(event.Err).Msg("session expired, signing out")
	c.set(nil, false)
}

func (c *Controller) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	state, listeners := c.state(), c.snapshotListeners()
	c.mu.Unlock()
	notify(listeners, state)
}

func (c *Controller) set(user *users.User, loading bool) {
	c.mu.Lock()
	c.user = user
	c.loading = loading
	state, listeners := c.state(), c.snapshotListeners()
	c.mu.Unlock()
	notify(listeners, state)
}

func (c *Controller) state() State {
	return State{User: c.user, IsLoading: c.loading, IsAuthenticated: c.user != nil}
}

func (c *Controller) snapshotListeners() []func(State) {
	listeners := make([]func(State), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	return listeners
}

func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}
