// Package api is the JSON plumbing shared by the service clients.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/sahasik/gateway"
	"github.com/jrsteele09/sahasik/internal/errors"
)

const maxBody = 1 << 20

// ErrorResponse is the error envelope every service answers with
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Client struct {
	baseURL string
	doer    gateway.Doer
}

// New returns a client for the service rooted at baseURL. Requests travel
// through doer, which is a *gateway.Gateway for authenticated services.
func New(baseURL string, doer gateway.Doer) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), doer: doer}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends in as JSON and decodes the response into out. Either may be nil.
// Non-2xx answers are returned as *errors.StatusError.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("[api.Do] failed to encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("[api.Do] failed to build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return &errors.TransportError{Op: method, URL: req.URL.Redacted(), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("[api.Do] failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func statusError(statusCode int, data []byte) *errors.StatusError {
	var envelope ErrorResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != "" {
		msg := envelope.Error
		if envelope.Message != "" {
			msg += ": " + envelope.Message
		}
		return errors.NewStatusError(statusCode, msg)
	}
	return errors.NewStatusError(statusCode, strings.TrimSpace(string(data)))
}
