// Package api provides the console's HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/session"
	"github.com/cimex/cimex-console/internal/views"
)

// ViewRefresher refetches mounted views after a mutation.
type ViewRefresher interface {
	Refresh(name string) int
}

// Handler provides common handler utilities.
type Handler struct {
	client   *apiclient.Client
	sessions *session.Store
	views    ViewRefresher
	logLimit int
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(client *apiclient.Client, sessions *session.Store, refresher ViewRefresher, logLimit int) *Handler {
	if logLimit <= 0 {
		logLimit = views.DefaultLogLimit
	}
	return &Handler{
		client:   client,
		sessions: sessions,
		views:    refresher,
		logLimit: logLimit,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Unauthorized writes the 401 body the SPA follows to the login view.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, map[string]string{
		"error":    "unauthorized",
		"redirect": navigation.LoginPath,
	})
}

// Attachment writes body as a downloadable file.
func Attachment(w http.ResponseWriter, filename, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Debug("Failed to write attachment", "filename", filename, "error", err)
	}
}

// backendError maps a backend call failure to a console response. The 401
// case has already ended the session by the time it gets here.
func backendError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		slog.Info("Backend rejected credential", "op", op)
		Unauthorized(w)
		return
	}

	var se *apiclient.StatusError
	if errors.As(err, &se) {
		slog.Warn("Backend returned error", "op", op, "status", se.Code, "detail", se.Detail)
		msg := se.Detail
		if msg == "" {
			msg = http.StatusText(se.Code)
		}
		Error(w, se.Code, msg)
		return
	}

	slog.Error("Backend request failed", "op", op, "error", err)
	Error(w, http.StatusBadGateway, "backend unavailable")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}
