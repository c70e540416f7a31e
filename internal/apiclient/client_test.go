package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimex/cimex-console/internal/domain"
)

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/status", r.URL.Path)
		_, _ = w.Write([]byte(`{"system":{"cpu_percent":12.5},"tunnels":{"total":3,"active":2},"nodes":{"total":1,"active":1}}`))
	}))
	defer srv.Close()

	cred := &Credential{}
	cred.Set("abc")
	c := New(srv.URL+"/api/", cred)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, 12.5, status.System.CPUPercent)
	assert.Equal(t, 2, status.Tunnels.Active)

	cred.Clear()
	_, err = c.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClientUnauthorizedInvokesHandlerWithSentToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
	}))
	defer srv.Close()

	cred := &Credential{}
	cred.Set("abc")
	c := New(srv.URL, cred)

	var mu sync.Mutex
	var calls []string
	c.SetUnauthorizedHandler(func(sent string) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, sent)
	})

	_, err := c.Nodes(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, OutcomeUnauthorized, Classify(err))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "Could not validate credentials", statusErr.Detail)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"abc"}, calls)
}

func TestClientPropagatesStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"detail":"Node already exists"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	handlerCalled := false
	c.SetUnauthorizedHandler(func(string) { handlerCalled = true })

	_, err := c.CreateNode(context.Background(), domain.NodeCreate{Name: "n1"})
	require.Error(t, err)
	assert.False(t, handlerCalled)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, OutcomeFailure, Classify(err))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.Code)
	assert.Equal(t, "Node already exists", statusErr.Detail)
}

func TestClientDoesNotRetry(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Settings(context.Background())
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}

func TestClientTransportFailureIsFailureOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	var outcomes []Outcome
	c := New(url, nil, WithTimeout(time.Second), WithObserver(func(_, _ string, o Outcome, _ time.Duration) {
		outcomes = append(outcomes, o)
	}))
	_, err := c.Me(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailure, Classify(err))
	assert.Equal(t, []Outcome{OutcomeFailure}, outcomes)
}

func TestClientEndpointsShapeRequests(t *testing.T) {
	type call struct{ method, uri, accept string }
	var mu sync.Mutex
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, call{r.Method, r.URL.RequestURI(), r.Header.Get("Accept")})
		mu.Unlock()
		switch r.URL.Path {
		case "/logs":
			_, _ = w.Write([]byte(`{"logs":null}`))
		case "/status/version":
			_, _ = w.Write([]byte(`{"version":"v2.1.0"}`))
		case "/panel/ca/server":
			_, _ = w.Write([]byte("-----BEGIN CERTIFICATE-----"))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL, nil)

	logs, err := c.Logs(ctx, 300)
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)

	version, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", version)

	require.NoError(t, c.DeleteNode(ctx, "a/b"))
	require.NoError(t, c.ResetCore(ctx, "xray"))
	enabled := true
	require.NoError(t, c.UpdateResetConfig(ctx, "xray", domain.ResetConfigUpdate{Enabled: &enabled}))

	cert, err := c.CA(ctx, CAServer, true)
	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", string(cert))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []call{
		{http.MethodGet, "/logs?limit=300", "application/json"},
		{http.MethodGet, "/status/version", "application/json"},
		{http.MethodDelete, "/nodes/a%2Fb", "application/json"},
		{http.MethodPost, "/core-health/reset/xray", "application/json"},
		{http.MethodPut, "/core-health/reset-config/xray", "application/json"},
		{http.MethodGet, "/panel/ca/server?download=true", "text/plain"},
	}, calls)
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/nodes", routeLabel("/nodes/123"))
	assert.Equal(t, "/logs", routeLabel("/logs?limit=300"))
	assert.Equal(t, "/core-health/reset", routeLabel("/core-health/reset/xray"))
	assert.Equal(t, "/panel/ca", routeLabel("/panel/ca/server?download=true"))
	assert.Equal(t, "/auth/me", routeLabel("/auth/me"))
}
