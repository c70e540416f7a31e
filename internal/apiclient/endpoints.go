package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cimex/cimex-console/internal/domain"
)

// Login exchanges credentials for an access token. It does not touch the
// session; callers hand the result to the session store.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.LoginResponse, error) {
	var resp domain.LoginResponse
	req := domain.LoginRequest{Username: username, Password: password}
	if err := c.Do(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("login response carried no access token")
	}
	return &resp, nil
}

// Me validates the active credential and returns the backend identity.
func (c *Client) Me(ctx context.Context) (*domain.Me, error) {
	var me domain.Me
	if err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// Status returns the panel status snapshot.
func (c *Client) Status(ctx context.Context) (*domain.Status, error) {
	var status domain.Status
	if err := c.Do(ctx, http.MethodGet, "/status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Version returns the panel version without a leading "v".
func (c *Client) Version(ctx context.Context) (string, error) {
	var v domain.Version
	if err := c.Do(ctx, http.MethodGet, "/status/version", nil, &v); err != nil {
		return "", err
	}
	return strings.TrimPrefix(v.Version, "v"), nil
}

// Logs returns the newest limit entries of the core log buffer.
func (c *Client) Logs(ctx context.Context, limit int) ([]domain.LogEntry, error) {
	var page domain.LogPage
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/logs?limit=%d", limit), nil, &page); err != nil {
		return nil, err
	}
	if page.Logs == nil {
		return []domain.LogEntry{}, nil
	}
	return page.Logs, nil
}

// Nodes lists every registered node and server.
func (c *Client) Nodes(ctx context.Context) ([]domain.Node, error) {
	var nodes []domain.Node
	if err := c.Do(ctx, http.MethodGet, "/nodes", nil, &nodes); err != nil {
		return nil, err
	}
	return nodes, nil
}

// CreateNode registers a node or server.
func (c *Client) CreateNode(ctx context.Context, node domain.NodeCreate) (*domain.Node, error) {
	var created domain.Node
	if err := c.Do(ctx, http.MethodPost, "/nodes", node, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteNode removes a node or server.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/nodes/"+url.PathEscape(id), nil, nil)
}

// Settings returns the panel settings.
func (c *Client) Settings(ctx context.Context) (*domain.Settings, error) {
	var settings domain.Settings
	if err := c.Do(ctx, http.MethodGet, "/settings", nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings replaces the panel settings.
func (c *Client) UpdateSettings(ctx context.Context, settings domain.Settings) error {
	return c.Do(ctx, http.MethodPut, "/settings", settings, nil)
}

// CoreHealth returns the connectivity report of every core.
func (c *Client) CoreHealth(ctx context.Context) ([]domain.CoreHealth, error) {
	var health []domain.CoreHealth
	if err := c.Do(ctx, http.MethodGet, "/core-health/health", nil, &health); err != nil {
		return nil, err
	}
	return health, nil
}

// ResetConfigs returns the reset schedule of every core.
func (c *Client) ResetConfigs(ctx context.Context) ([]domain.ResetConfig, error) {
	var configs []domain.ResetConfig
	if err := c.Do(ctx, http.MethodGet, "/core-health/reset-config", nil, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// ResetCore re-initializes a core.
func (c *Client) ResetCore(ctx context.Context, core string) error {
	return c.Do(ctx, http.MethodPost, "/core-health/reset/"+url.PathEscape(core), nil, nil)
}

// UpdateResetConfig changes the reset schedule of a core.
func (c *Client) UpdateResetConfig(ctx context.Context, core string, update domain.ResetConfigUpdate) error {
	return c.Do(ctx, http.MethodPut, "/core-health/reset-config/"+url.PathEscape(core), update, nil)
}

// CAKind selects which CA certificate to fetch.
type CAKind string

const (
	CAPanel  CAKind = "panel"
	CAServer CAKind = "server"
)

// CA fetches a CA certificate. download requests the attachment variant.
func (c *Client) CA(ctx context.Context, kind CAKind, download bool) ([]byte, error) {
	path := "/panel/ca"
	if kind == CAServer {
		path = "/panel/ca/server"
	}
	if download {
		path += "?download=true"
	}
	return c.GetRaw(ctx, path, "text/plain")
}
