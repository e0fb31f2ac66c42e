package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/api"
	"github.com/jrsteele09/sahasik/internal/errors"
	"github.com/jrsteele09/sahasik/token"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Client talks to the auth service. Login and refresh travel on the
// unauthenticated base doer so a refresh never re-enters the gateway.
type Client struct {
	public    *api.Client
	private   *api.Client
	verifier  *token.Verifier
	validator *Validator
	nowFunc   func() time.Time
}

var _ gateway.Refresher = (*Client)(nil)

type ClientOption func(*Client)

// WithVerifier checks every issued access token against the service JWKS
func WithVerifier(verifier *token.Verifier) ClientOption {
	return func(c *Client) {
		c.verifier = verifier
	}
}

func WithClientNowFunc(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowFunc = now
	}
}

// NewClient returns a client for the auth service rooted at baseURL. base
// must not be a gateway.
func NewClient(baseURL string, base gateway.Doer, options ...ClientOption) *Client {
	public := api.New(baseURL, base)
	c := &Client{
		public:    public,
		private:   public,
		validator: NewValidator(),
		nowFunc:   time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Authenticated returns a copy of the client whose Validate call travels
// through doer, normally the gateway.
func (c *Client) Authenticated(doer gateway.Doer) *Client {
	cp := *c
	cp.private = api.New(c.public.BaseURL(), doer)
	return &cp
}

// Login exchanges credentials for a token pair. The role hint is always
// DefaultLoginRole.
func (c *Client) Login(ctx context.Context, username, email, password string) (*LoginResponse, error) {
	req := LoginRequest{Username: username, Email: email, Password: password, Role: DefaultLoginRole}
	if err := c.validator.ValidateLoginRequest(req); err != nil {
		return nil, fmt.Errorf("[auth.Login] %w", err)
	}

	var resp LoginResponse
	if err := c.public.Post(ctx, "/auth/login", req, &resp); err != nil {
		if errors.Is(err, errors.ErrUnauthorized) {
			return nil, fmt.Errorf("[auth.Login] %w: %w", errors.ErrInvalidCredentials, err)
		}
		return nil, fmt.Errorf("[auth.Login] %w", err)
	}
	if err := c.check(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("[auth.Login] %w", err)
	}
	return &resp, nil
}

// Refresh exchanges refreshToken for a new pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*LoginResponse, error) {
	if err := c.validator.ValidateRefreshToken(refreshToken); err != nil {
		return nil, fmt.Errorf("[auth.Refresh] %w", err)
	}

	var resp LoginResponse
	if err := c.public.Post(ctx, "/auth/refresh", RefreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
		return nil, fmt.Errorf("[auth.Refresh] %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("[auth.Refresh] %w: response carried no access token", errors.ErrInvalidToken)
	}
	if err := c.check(ctx, resp.AccessToken); err != nil {
		return nil, fmt.Errorf("[auth.Refresh] %w", err)
	}
	return &resp, nil
}

// RefreshToken implements gateway.Refresher
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	resp, err := c.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return resp.Token(c.nowFunc()), nil
}

// Validate asks the service whether the current access token is still good
func (c *Client) Validate(ctx context.Context) (*ValidateResponse, error) {
	var resp ValidateResponse
	if err := c.private.Post(ctx, "/auth/validate", nil, &resp); err != nil {
		return nil, fmt.Errorf("[auth.Validate] %w", err)
	}
	if !resp.Valid {
		return nil, fmt.Errorf("[auth.Validate] %w", errors.ErrInvalidToken)
	}
	return &resp, nil
}

func (c *Client) check(ctx context.Context, accessToken string) error {
	if c.verifier == nil {
		return nil
	}
	claims, err := c.verifier.Verify(ctx, accessToken)
	if err != nil {
		return err
	}
	log.Debug().Str("subject", claims.Subject).Str("role", claims.Role).Msg("verified access token")
	return nil
}
