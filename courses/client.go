package courses

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/api"
	"github.com/jrsteele09/sahasik/internal/errors"
)

// Client talks to the course service. Every call is authenticated.
type Client struct {
	api *api.Client
}

func NewClient(baseURL string, doer gateway.Doer) *Client {
	return &Client{api: api.New(baseURL, doer)}
}

func (c *Client) List(ctx context.Context) ([]Course, error) {
	var list []Course
	if err := c.api.Get(ctx, "/courses", nil, &list); err != nil {
		return nil, fmt.Errorf("[courses.List] %w", err)
	}
	return list, nil
}

// Page returns one page of courses narrowed by filters
func (c *Client) Page(ctx context.Context, filters Filters) (*ListResponse, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	query := url.Values{"page": {strconv.Itoa(page)}}
	if filters.Limit > 0 {
		query.Set("limit", strconv.Itoa(filters.Limit))
	}
	if filters.Query != "" {
		query.Set("q", filters.Query)
	}
	if filters.Level != "" {
		query.Set("level", string(filters.Level))
	}
	var resp ListResponse
	if err := c.api.Get(ctx, "/courses", query, &resp); err != nil {
		return nil, fmt.Errorf("[courses.Page] %w", err)
	}
	return &resp, nil
}

func (c *Client) Search(ctx context.Context, q string) ([]Course, error) {
	var list []Course
	if err := c.api.Get(ctx, "/courses/search", url.Values{"q": {q}}, &list); err != nil {
		return nil, fmt.Errorf("[courses.Search] %w", err)
	}
	return list, nil
}

func (c *Client) Get(ctx context.Context, id int) (*Course, error) {
	var course Course
	if err := c.api.Get(ctx, coursePath(id), nil, &course); err != nil {
		return nil, fmt.Errorf("[courses.Get] %w", err)
	}
	return &course, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*Course, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[courses.Create] %w", err)
	}
	var course Course
	if err := c.api.Post(ctx, "/courses", req, &course); err != nil {
		return nil, fmt.Errorf("[courses.Create] %w", err)
	}
	return &course, nil
}

func (c *Client) Update(ctx context.Context, id int, req UpdateRequest) (*Course, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("[courses.Update] %w", err)
	}
	var course Course
	if err := c.api.Put(ctx, coursePath(id), req, &course); err != nil {
		return nil, fmt.Errorf("[courses.Update] %w", err)
	}
	return &course, nil
}

func (c *Client) Delete(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("[courses.Delete] %w: course id %d", errors.ErrInvalidRequest, id)
	}
	if err := c.api.Delete(ctx, coursePath(id)); err != nil {
		return fmt.Errorf("[courses.Delete] %w", err)
	}
	return nil
}

func coursePath(id int) string {
	return "/courses/" + strconv.Itoa(id)
}
