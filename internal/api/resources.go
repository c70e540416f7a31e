package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
	"github.com/cimex/cimex-console/internal/views"
)

// ResourceHandler proxies panel resources for the SPA and refreshes mounted
// views after each mutation.
type ResourceHandler struct {
	*Handler
	now func() time.Time
}

// NewResourceHandler creates a resource handler.
func NewResourceHandler(base *Handler) *ResourceHandler {
	return &ResourceHandler{Handler: base, now: time.Now}
}

// peerRoutes serves one role's list under /nodes or /servers.
func (h *ResourceHandler) peerRoutes(view, role string) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			nodes, err := h.client.Nodes(r.Context())
			if err != nil {
				backendError(w, "list "+view, err)
				return
			}
			JSON(w, http.StatusOK, views.FilterByRole(nodes, role))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var in views.NewPeerInput
			if err := decodeJSON(w, r, &in); err != nil {
				Error(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.IPAddress) == "" {
				Error(w, http.StatusBadRequest, "name and ip_address are required")
				return
			}
			node, err := views.CreatePeer(r.Context(), h.client, role, in)
			if err != nil {
				backendError(w, "create "+view, err)
				return
			}
			h.views.Refresh(view)
			JSON(w, http.StatusCreated, node)
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "id")
			if err := h.client.DeleteNode(r.Context(), id); err != nil {
				backendError(w, "delete "+view, err)
				return
			}
			h.views.Refresh(view)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

// GetSettings returns the panel settings.
func (h *ResourceHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.client.Settings(r.Context())
	if err != nil {
		backendError(w, "get settings", err)
		return
	}
	JSON(w, http.StatusOK, settings)
}

// PutSettings saves the panel settings.
func (h *ResourceHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings domain.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.client.UpdateSettings(r.Context(), settings); err != nil {
		backendError(w, "save settings", err)
		return
	}
	h.views.Refresh(views.SettingsName)
	JSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// ResetCore re-initializes a core.
func (h *ResourceHandler) ResetCore(w http.ResponseWriter, r *http.Request) {
	core := chi.URLParam(r, "core")
	if err := h.client.ResetCore(r.Context(), core); err != nil {
		backendError(w, "reset core", err)
		return
	}
	h.views.Refresh(views.CoreHealthName)
	JSON(w, http.StatusOK, map[string]string{"status": "reset", "core": core})
}

// UpdateResetConfig changes a core's reset schedule.
func (h *ResourceHandler) UpdateResetConfig(w http.ResponseWriter, r *http.Request) {
	core := chi.URLParam(r, "core")
	var update domain.ResetConfigUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if update.IntervalMinutes != nil && *update.IntervalMinutes <= 0 {
		Error(w, http.StatusBadRequest, "interval_minutes must be > 0")
		return
	}
	if err := h.client.UpdateResetConfig(r.Context(), core, update); err != nil {
		backendError(w, "update reset config", err)
		return
	}
	h.views.Refresh(views.CoreHealthName)
	JSON(w, http.StatusOK, map[string]string{"status": "updated", "core": core})
}

// CA serves a CA certificate as text, or as an attachment with ?download=true.
func (h *ResourceHandler) CA(kind apiclient.CAKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("download") == "true" {
			name, body, err := views.DownloadCA(r.Context(), h.client, kind)
			if err != nil {
				backendError(w, "download CA", err)
				return
			}
			Attachment(w, name, "application/x-x509-ca-cert", body)
			return
		}

		text, err := views.FetchCA(r.Context(), h.client, kind)
		if errors.Is(err, views.ErrEmptyCA) {
			Error(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			backendError(w, "fetch CA", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if _, err := w.Write([]byte(text)); err != nil {
			slog.Debug("Failed to write CA", "error", err)
		}
	}
}

// ExportLogs serves the current log tail as a text file.
func (h *ResourceHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.client.Logs(r.Context(), h.logLimit)
	if err != nil {
		backendError(w, "export logs", err)
		return
	}
	name, body := views.ExportLogs(entries, h.now())
	Attachment(w, name, "text/plain; charset=utf-8", body)
}
