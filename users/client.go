package users

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/api"
)

// Client talks to the user service. Every call is authenticated.
type Client struct {
	api *api.Client
}

// NewClient returns a client for the user service rooted at baseURL, e.g.
// http://localhost:8081/api/v1
func NewClient(baseURL string, doer gateway.Doer) *Client {
	return &Client{api: api.New(baseURL, doer)}
}

// GetMe returns the profile of the authenticated user
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.api.Get(ctx, "/users/me", nil, &user); err != nil {
		return nil, fmt.Errorf("[users.GetMe] %w", err)
	}
	return &user, nil
}

// List returns every account. A positive limit caps the result.
func (c *Client) List(ctx context.Context, limit int) ([]User, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var list []User
	if err := c.api.Get(ctx, "/users", query, &list); err != nil {
		return nil, fmt.Errorf("[users.List] %w", err)
	}
	return list, nil
}

func (c *Client) Teachers(ctx context.Context) ([]User, error) {
	var list []User
	if err := c.api.Get(ctx, "/teachers", nil, &list); err != nil {
		return nil, fmt.Errorf("[users.Teachers] %w", err)
	}
	return list, nil
}

func (c *Client) Students(ctx context.Context) ([]User, error) {
	var list []User
	if err := c.api.Get(ctx, "/students", nil, &list); err != nil {
		return nil, fmt.Errorf("[users.Students] %w", err)
	}
	return list, nil
}

func (c *Client) UpdateMe(ctx context.Context, update ProfileUpdate) (*User, error) {
	if err := update.Validate(); err != nil {
		return nil, fmt.Errorf("[users.UpdateMe] %w", err)
	}
	var user User
	if err := c.api.Put(ctx, "/users/me", update, &user); err != nil {
		return nil, fmt.Errorf("[users.UpdateMe] %w", err)
	}
	return &user, nil
}

// Create registers a new account. Only admins may call it.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[users.Create] %w", err)
	}
	var user User
	if err := c.api.Post(ctx, "/users", req, &user); err != nil {
		return nil, fmt.Errorf("[users.Create] %w", err)
	}
	return &user, nil
}
