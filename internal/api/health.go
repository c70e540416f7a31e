package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cimex/cimex-console/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// VersionSource reports the backend version. It doubles as a reachability probe.
type VersionSource interface {
	Version(ctx context.Context) (string, error)
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo    store.Repository
	backend VersionSource
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, backend VersionSource) *HealthHandler {
	return &HealthHandler{repo: repo, backend: backend}
}

// Health returns the health of the console and its dependencies. Storage is
// required; an unreachable backend only degrades the report.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := "healthy"
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "check", "storage", "error", err)
		checks["storage"] = "unreachable"
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if v, err := h.backend.Version(ctx); err != nil {
		slog.Warn("Health check failed", "check", "backend", "error", err)
		checks["backend"] = "unreachable"
		if status == "healthy" {
			status = "degraded"
		}
	} else {
		checks["backend"] = "ok"
		checks["backend_version"] = v
	}

	JSON(w, statusCode, map[string]any{
		"status": status,
		"checks": checks,
	})
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
