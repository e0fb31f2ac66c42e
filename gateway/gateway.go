// Package gateway is the single outbound path to the backend services. It
// attaches the bearer token, turns a 401 into one coordinated token refresh,
// replays the rejected request once, and announces unrecoverable sessions.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRefreshTTL = 7 * 24 * time.Hour

	maxErrorBody = 4096
)

// Refresher exchanges a refresh token for a new token pair. The exchange must
// not itself travel through a Gateway.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// RefresherFunc adapts a function to a Refresher
type RefresherFunc func(ctx context.Context, refreshToken string) (*oauth2.Token, error)

func (f RefresherFunc) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f(ctx, refreshToken)
}

type (
	retriedKey struct{}
	quietKey   struct{}
)

// failure records the terminal outcome of a refresh episode. Requests sent
// with a token of the same generation share it instead of starting over,
// as long as storage still holds the refresh token the episode left behind.
type failure struct {
	generation uint64
	remaining  string
	err        error
}

// WithoutSessionEvents marks ctx so that a session expiring while serving it
// is reported through the returned error only.
func WithoutSessionEvents(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

type Gateway struct {
	store      *credentials.Store
	refresher  Refresher
	events     *Events
	logger     zerolog.Logger
	base       Doer
	timeout    time.Duration
	refreshTTL time.Duration
	middleware []Middleware
	nowFunc    func() time.Time

	pipeline Doer
	flights  singleflight.Group

	// refreshMu serialises refresh episodes; failureMu guards lastFailure
	refreshMu   sync.Mutex
	failureMu   sync.Mutex
	lastFailure *failure
}

type Option func(*Gateway)

// WithBase replaces the default *http.Client that finally sends requests
func WithBase(base Doer) Option {
	return func(g *Gateway) {
		g.base = base
	}
}

// WithTimeout sets the per-request timeout of the default base client and of
// the refresh exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = timeout
	}
}

// WithRefreshTTL sets how long a rotated refresh token is persisted
func WithRefreshTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.refreshTTL = ttl
	}
}

func WithEvents(events *Events) Option {
	return func(g *Gateway) {
		g.events = events
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMiddleware adds stages that run after request stamping and logging,
// and before authorization.
func WithMiddleware(mw ...Middleware) Option {
	return func(g *Gateway) {
		g.middleware = append(g.middleware, mw...)
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(g *Gateway) {
		g.nowFunc = now
	}
}

func New(store *credentials.Store, refresher Refresher, options ...Option) *Gateway {
	g := &Gateway{
		store:      store,
		refresher:  refresher,
		logger:     log.Logger,
		timeout:    DefaultTimeout,
		refreshTTL: DefaultRefreshTTL,
		nowFunc:    time.Now,
	}
	for _, opt := range options {
		opt(g)
	}
	if g.events == nil {
		g.events = NewEvents()
	}
	if g.base == nil {
		g.base = &http.Client{Timeout: g.timeout}
	}

	stages := []Middleware{RequestID(), Logging(g.logger)}
	stages = append(stages, g.middleware...)
	stages = append(stages, g.authorize)
	g.pipeline = Chain(g.base, stages...)
	return g
}

// Events returns the bus session_expired is published on
func (g *Gateway) Events() *Events {
	return g.events
}

// Store returns the credential store the gateway reads tokens from
func (g *Gateway) Store() *credentials.Store {
	return g.store
}

// Do sends req through the pipeline. Transport failures come back as
// *errors.TransportError. A 401 that cannot be recovered comes back as an
// error matching errors.ErrSessionExpired and errors.ErrUnauthorized.
func (g *Gateway) Do(req *http.Request) (*http.Response, error) {
	if err := bufferBody(req); err != nil {
		return nil, fmt.Errorf("[Gateway.Do] failed to buffer request body: %w", err)
	}
	return g.pipeline.Do(req)
}

// RoundTrip lets the gateway back an *http.Client
func (g *Gateway) RoundTrip(req *http.Request) (*http.Response, error) {
	return g.Do(req.Clone(req.Context()))
}

// Client returns an *http.Client whose requests travel through the gateway
func (g *Gateway) Client() *http.Client {
	return &http.Client{Transport: g}
}

func (g *Gateway) authorize(next Doer) Doer {
	return DoerFunc(func(req *http.Request) (*http.Response, error) {
		token, generation := g.store.Snapshot()
		resp, err := next.Do(withBearer(req, token))
		if err != nil {
			return nil, transportError(req, err)
		}
		if resp.StatusCode != http.StatusUnauthorized || isRetried(req.Context()) {
			return resp, nil
		}

		rejected := statusError(resp)
		fresh, err := g.recover(req.Context(), generation)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, transportError(req, err)
			}
			return nil, fmt.Errorf("%w: %w", err, rejected)
		}

		retryTotal.Inc()
		retry := withBearer(req, fresh)
		retry = retry.WithContext(context.WithValue(retry.Context(), retriedKey{}, true))
		resp, err = next.Do(retry)
		if err != nil {
			return nil, transportError(req, err)
		}
		return resp, nil
	})
}

// outcome is shared by every caller that joined the same flight
type outcome struct {
	token   string
	expired *Event
	emitted atomic.Bool
}

// recover joins or starts the refresh episode for the token generation the
// failed request was sent with. A caller whose context ends stops waiting;
// the episode itself runs to completion.
func (g *Gateway) recover(ctx context.Context, generation uint64) (string, error) {
	quiet := isQuiet(ctx)
	ch := g.flights.DoChan(strconv.FormatUint(generation, 10), func() (any, error) {
		// The flight outlives any single caller
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		return g.refresh(flightCtx, generation)
	})

	select {
	case r := <-ch:
		if r.Shared {
			g.logger.Debug().Uint64("generation", generation).Msg("joined refresh in flight")
		}
		return g.land(r, quiet)
	case <-ctx.Done():
		go func() {
			_, _ = g.land(<-ch, quiet)
		}()
		return "", fmt.Errorf("[Gateway.recover] %w", ctx.Err())
	}
}

// land emits the expiry event at most once per episode. It runs after the
// flight so subscribers may use the gateway.
func (g *Gateway) land(r singleflight.Result, quiet bool) (string, error) {
	res := r.Val.(*outcome)
	if res.expired != nil && !quiet && res.emitted.CompareAndSwap(false, true) {
		sessionExpiredTotal.Inc()
		g.events.Emit(*res.expired)
	}
	if r.Err != nil {
		return "", r.Err
	}
	return res.token, nil
}

func (g *Gateway) refresh(ctx context.Context, sent uint64) (*outcome, error) {
	g.refreshMu.Lock()
	defer g.refreshMu.Unlock()

	res := &outcome{}
	token, current, refreshToken, readErr := g.store.Load(ctx)
	if readErr == nil {
		if err := g.failedAt(current, refreshToken); err != nil {
			refreshTotal.WithLabelValues(outcomeReused).Inc()
			return res, err
		}
	}
	if current != sent {
		refreshTotal.WithLabelValues(outcomeReused).Inc()
		if token != "" {
			res.token = token
			return res, nil
		}
		// Cleared by an explicit logout after the request was sent
		return res, fmt.Errorf("[Gateway.refresh] %w: %w", errors.ErrSessionExpired, errors.ErrNotAuthenticated)
	}

	if readErr != nil {
		return g.expire(ctx, res, "", fmt.Errorf("%w: %w", errors.ErrRefreshFailed, readErr))
	}
	if refreshToken == "" {
		return g.expire(ctx, res, "", errors.ErrNoRefreshToken)
	}

	pair, err := g.refresher.RefreshToken(ctx, refreshToken)
	if err == nil && (pair == nil || pair.AccessToken == "") {
		err = fmt.Errorf("%w: empty access token", errors.ErrInvalidToken)
	}
	if err != nil {
		return g.expire(ctx, res, refreshToken, fmt.Errorf("%w: %w", errors.ErrRefreshFailed, err))
	}

	saved, err := g.store.SaveIfCurrent(ctx, pair, g.refreshTTL, current)
	if err != nil {
		// The new access token is already in memory; only persistence failed
		g.logger.Error().Err(err).Msg("failed to persist rotated refresh token")
	}
	if !saved {
		// Credentials were replaced or cleared while the exchange was in flight
		refreshTotal.WithLabelValues(outcomeDiscarded).Inc()
		g.logger.Info().Uint64("generation", sent).Msg("discarded refreshed token pair")
		if latest := g.store.AccessToken(); latest != "" {
			res.token = latest
			return res, nil
		}
		return res, fmt.Errorf("[Gateway.refresh] %w: %w", errors.ErrSessionExpired, errors.ErrNotAuthenticated)
	}

	refreshTotal.WithLabelValues(outcomeSuccess).Inc()
	g.logger.Debug().Uint64("generation", sent).Msg("access token refreshed")
	res.token = pair.AccessToken
	return res, nil
}

// expire ends the episode: tokens are cleared and the failure is remembered
// for late arrivals. The event is attached to the outcome for land to emit.
func (g *Gateway) expire(ctx context.Context, res *outcome, used string, cause error) (*outcome, error) {
	err := fmt.Errorf("[Gateway.refresh] %w: %w", errors.ErrSessionExpired, cause)

	generation, clearErr := g.store.Reset(ctx)
	remaining := ""
	if clearErr != nil {
		remaining = used
		g.logger.Error().Err(clearErr).Msg("failed to clear credentials")
	}

	g.failureMu.Lock()
	g.lastFailure = &failure{generation: generation, remaining: remaining, err: err}
	g.failureMu.Unlock()

	refreshTotal.WithLabelValues(outcomeFailure).Inc()
	g.logger.Warn().Err(cause).Msg("session expired")
	res.expired = &Event{Type: EventSessionExpired, Err: err, At: g.nowFunc()}
	return res, err
}

// failedAt returns the remembered failure while neither the access token nor
// the stored refresh token has changed since it was recorded
func (g *Gateway) failedAt(generation uint64, refreshToken string) error {
	g.failureMu.Lock()
	defer g.failureMu.Unlock()
	if g.lastFailure != nil && g.lastFailure.generation == generation && g.lastFailure.remaining == refreshToken {
		return g.lastFailure.err
	}
	return nil
}

func isQuiet(ctx context.Context) bool {
	quiet, _ := ctx.Value(quietKey{}).(bool)
	return quiet
}

func isRetried(ctx context.Context) bool {
	retried, _ := ctx.Value(retriedKey{}).(bool)
	return retried
}

// bufferBody makes the body replayable so a rejected request can be resent
func bufferBody(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return err
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	req.Body, _ = req.GetBody()
	req.ContentLength = int64(len(data))
	return nil
}

// withBearer returns a copy of req with a fresh body and, when token is set,
// the Authorization header replaced.
func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			out.Body = body
		}
	}
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}

func transportError(req *http.Request, err error) error {
	if errors.Is(err, errors.ErrTransport) {
		return err
	}
	return &errors.TransportError{Op: req.Method, URL: req.URL.Redacted(), Err: err}
}

// statusError drains and closes resp, keeping a short message from its body
func statusError(resp *http.Response) *errors.StatusError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return errors.NewStatusError(resp.StatusCode, string(bytes.TrimSpace(body)))
}
