// Package apiclient is the console's HTTP client for the CIMEX panel backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 64 * 1024
)

// Observer is notified once per completed request.
type Observer func(method, route string, outcome Outcome, elapsed time.Duration)

// Client sends requests under a fixed base URL carrying the active credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cred       *Credential
	observer   Observer

	mu             sync.RWMutex
	onUnauthorized UnauthorizedFunc
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport.(*authTransport).base = rt
	}
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New creates a client for baseURL (e.g. "http://127.0.0.1:8000/api").
// The credential is read on every request; callers mutate it through Set/Clear.
func New(baseURL string, cred *Credential, opts ...Option) *Client {
	if cred == nil {
		cred = &Credential{}
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cred:    cred,
	}
	c.httpClient = &http.Client{
		Timeout:   defaultTimeout,
		Transport: &authTransport{base: http.DefaultTransport, client: c},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Credential returns the credential the client attaches.
func (c *Client) Credential() *Credential {
	return c.cred
}

// SetUnauthorizedHandler installs the hook run for every 401 response.
func (c *Client) SetUnauthorizedHandler(fn UnauthorizedFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) unauthorizedHandler() UnauthorizedFunc {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.onUnauthorized
}

// Do sends a JSON request. body is encoded when non-nil; out is decoded from a
// 2xx response when non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	payload, err := c.send(ctx, method, path, reader, "application/json")
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// GetRaw fetches path and returns the raw response body.
func (c *Client) GetRaw(ctx context.Context, path, accept string) ([]byte, error) {
	return c.send(ctx, http.MethodGet, path, nil, accept)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, accept string) ([]byte, error) {
	start := time.Now()
	route := routeLabel(path)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("%s %s: %w", method, path, err)
		c.observe(method, route, err, start)
		slog.Debug("Backend request failed", "method", method, "path", path, "error", err)
		return nil, err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Debug("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		statusErr := newStatusError(resp.StatusCode, data)
		c.observe(method, route, statusErr, start)
		return nil, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("read %s %s response: %w", method, path, err)
		c.observe(method, route, err, start)
		return nil, err
	}
	c.observe(method, route, nil, start)
	return data, nil
}

func (c *Client) observe(method, route string, err error, start time.Time) {
	if c.observer != nil {
		c.observer(method, route, Classify(err), time.Since(start))
	}
}

// nestedRoutes are the top-level segments whose second segment is static.
var nestedRoutes = map[string]bool{
	"auth":        true,
	"status":      true,
	"core-health": true,
	"panel":       true,
}

// routeLabel reduces a request path to a low-cardinality metric label,
// dropping ids and query strings.
func routeLabel(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	keep := 1
	if len(parts) > 1 && nestedRoutes[parts[0]] {
		keep = 2
	}
	if len(parts) > keep {
		parts = parts[:keep]
	}
	return "/" + strings.Join(parts, "/")
}
