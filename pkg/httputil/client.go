package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/stackscan/pkg/errors"
	"github.com/matzehuels/stackscan/pkg/observability"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// Client sends JSON requests with default headers.
type Client struct {
	http    *http.Client
	headers map[string]string
	hooks   observability.HTTPHooks
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers[key] = value }
}

// WithHooks reports requests to h.
func WithHooks(h observability.HTTPHooks) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.hooks = h
		}
	}
}

// NewClient creates a Client with a 30 second timeout.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		http:    &http.Client{Timeout: defaultTimeout},
		headers: map[string]string{"Accept": "application/json"},
		hooks:   observability.NoopHTTPHooks{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches rawURL and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v any) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, v)
}

// PostJSON encodes body, posts it to rawURL and decodes the response into
// v. A nil v discards the response body.
func (c *Client) PostJSON(ctx context.Context, rawURL string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "encode request")
	}
	return c.do(ctx, http.MethodPost, rawURL, data, v)
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte, v any) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid url %q", rawURL)
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), r)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.hooks.OnRequest(ctx, method, u.Host, u.Path)
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.hooks.OnError(ctx, method, u.Host, u.Path, err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, u.Path)}
	}
	defer resp.Body.Close()
	c.hooks.OnResponse(ctx, method, u.Host, u.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		return err
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "decode %s response", u.Path)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	if code >= 200 && code < 300 {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := fmt.Sprintf("status %d: %s", code, bytes.TrimSpace(excerpt))
	switch {
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "%s", msg)
	case code == http.StatusTooManyRequests, code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "%s", msg)}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "%s", msg)
	}
}
