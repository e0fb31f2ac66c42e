// Package lms assembles the client core: one credential store, one gateway
// in front of the three services, and the session controller on top.
package lms

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/sahasik/auth"
	"github.com/jrsteele09/sahasik/courses"
	"github.com/jrsteele09/sahasik/credentials"
	"github.com/jrsteele09/sahasik/credentials/filerepo"
	"github.com/jrsteele09/sahasik/credentials/redisrepo"
	credentialsrepofake "github.com/jrsteele09/sahasik/credentials/repofake"
	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/config"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/sessions"
	"github.com/jrsteele09/sahasik/token"
	"github.com/jrsteele09/sahasik/users"
	"github.com/rs/zerolog/log"
)

// Credential store backends
const (
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Client struct {
	Store   *credentials.Store
	Gateway *gateway.Gateway
	Auth    *auth.Client
	Users   *users.Client
	Courses *courses.Client
	Session *sessions.Controller

	closers []func() error
}

type options struct {
	repo   credentials.RefreshRepo
	base   gateway.Doer
	verify bool
	mw     []gateway.Middleware
}

type Option func(*options)

// WithRefreshRepo overrides the backend chosen by the configuration
func WithRefreshRepo(repo credentials.RefreshRepo) Option {
	return func(o *options) {
		o.repo = repo
	}
}

// WithBase replaces the *http.Client every request finally goes out on
func WithBase(base gateway.Doer) Option {
	return func(o *options) {
		o.base = base
	}
}

// WithTokenVerification checks every issued access token against the auth
// service's JWKS before it is stored.
func WithTokenVerification() Option {
	return func(o *options) {
		o.verify = true
	}
}

func WithMiddleware(mw ...gateway.Middleware) Option {
	return func(o *options) {
		o.mw = append(o.mw, mw...)
	}
}

// New builds a client from cfg. Call Close when done.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{}
	repo := o.repo
	if repo == nil {
		var (
			closer func() error
			err    error
		)
		repo, closer, err = NewRefreshRepo(cfg)
		if err != nil {
			return nil, fmt.Errorf("[lms.New] %w", err)
		}
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
	base := o.base
	if base == nil {
		base = &http.Client{Timeout: cfg.GetRequestTimeout()}
	}

	c.Store = credentials.NewStore(repo,
		credentials.WithCookieName(cfg.GetRefreshCookieName()),
		credentials.WithSecure(cfg.GetSecureCookies()),
	)

	var authOpts []auth.ClientOption
	if o.verify {
		jwksURL := ServiceRoot(cfg.GetAuthURL()) + token.JWKSPath
		authOpts = append(authOpts, auth.WithVerifier(token.NewVerifier(ctx, cfg.GetIssuer(), jwksURL, nil)))
	}
	authClient := auth.NewClient(cfg.GetAuthURL(), base, authOpts...)

	c.Gateway = gateway.New(c.Store, authClient,
		gateway.WithBase(base),
		gateway.WithTimeout(cfg.GetRequestTimeout()),
		gateway.WithRefreshTTL(cfg.GetRefreshTokenTTL()),
		gateway.WithMiddleware(o.mw...),
	)
	c.Auth = authClient.Authenticated(c.Gateway)
	c.Users = users.NewClient(cfg.GetUserURL(), c.Gateway)
	c.Courses = courses.NewClient(cfg.GetCourseURL(), c.Gateway)
	c.Session = sessions.NewController(c.Store, c.Auth, c.Gateway.Events(),
		sessions.WithRefreshTTL(cfg.GetRefreshTokenTTL()),
	)
	return c, nil
}

// Close detaches the session controller and releases the credential backend
func (c *Client) Close() error {
	c.Session.Close()
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}

// NewRefreshRepo opens the refresh token backend named by the configuration.
// The returned closer may be nil.
func NewRefreshRepo(cfg config.CredentialConfig) (credentials.RefreshRepo, func() error, error) {
	switch cfg.GetCredentialStore() {
	case StoreFile, "":
		path := cfg.GetCredentialFile()
		log.Debug().Str("path", path).Msg("using file credential store")
		return filerepo.New(path), nil, nil
	case StoreMemory:
		return credentialsrepofake.NewFakeRefreshRepo(), nil, nil
	case StoreRedis:
		client := redisrepo.NewClient(cfg.GetRedisAddr())
		log.Debug().Str("addr", cfg.GetRedisAddr()).Msg("using redis credential store")
		return redisrepo.New(client, ""), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown credential store %q", cfg.GetCredentialStore())
}

// ServiceRoot strips the API prefix from a service base URL
func ServiceRoot(baseURL string) string {
	return strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api/v1")
}
