package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cimex/cimex-console/internal/apiclient"
	"github.com/cimex/cimex-console/internal/domain"
)

// SessionHandler handles login, logout and session checks.
type SessionHandler struct {
	*Handler
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(base *Handler) *SessionHandler {
	return &SessionHandler{Handler: base}
}

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	State         string `json:"state"`
}

func toSessionResponse(s domain.Session) sessionResponse {
	return sessionResponse{
		Authenticated: s.IsAuthenticated(),
		Username:      s.Username,
		State:         s.State.String(),
	}
}

// Get returns the current session.
func (h *SessionHandler) Get(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Login exchanges credentials with the backend and stores the session.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "username and password are required")
		return
	}

	resp, err := h.client.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		var se *apiclient.StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			slog.Info("Login rejected", "username", req.Username)
			Error(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		backendError(w, "login", err)
		return
	}

	username := resp.Username
	if username == "" {
		username = req.Username
	}
	if err := h.sessions.Login(r.Context(), resp.AccessToken, username); err != nil {
		slog.Error("Failed to store session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to store session")
		return
	}
	JSON(w, http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Logout ends the session. It makes no backend call.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		slog.Warn("Logout left persisted credentials behind", "error", err)
	}
	JSON(w, http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Check revalidates the persisted credential with the backend.
func (h *SessionHandler) Check(w http.ResponseWriter, r *http.Request) {
	h.sessions.CheckAuth(r.Context())
	JSON(w, http.StatusOK, toSessionResponse(h.sessions.Session()))
}

// Version returns the panel version. It needs no session.
func (h *SessionHandler) Version(w http.ResponseWriter, r *http.Request) {
	v, err := h.client.Version(r.Context())
	if err != nil {
		backendError(w, "version", err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"version": v})
}
