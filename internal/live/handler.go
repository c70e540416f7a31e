package live

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/views"
)

// Session reports whether the console holds an authenticated session.
type Session interface {
	Authenticated() bool
}

// MountObserver is told when a view is mounted and unmounted.
type MountObserver func(view string, mounted bool)

// Handler serves GET /ws/views/{view}.
type Handler struct {
	catalog       *views.Catalog
	registry      *Registry
	session       Session
	nav           *navigation.Navigator
	allowedOrigin string
	isDev         bool
	observer      MountObserver
}

// NewHandler creates a live view handler.
func NewHandler(catalog *views.Catalog, registry *Registry, session Session, nav *navigation.Navigator, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		catalog:       catalog,
		registry:      registry,
		session:       session,
		nav:           nav,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// SetMountObserver registers a mount observer.
func (h *Handler) SetMountObserver(o MountObserver) {
	h.observer = o
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "view")
	slog.Info("Live view request", "view", name, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "view", name)
		return
	}
	conn := &wsConn{ws: ws}
	defer func() {
		if closeErr := conn.Close("view closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "view", name)
		}
	}()

	if !h.session.Authenticated() {
		if err := conn.Send(Message{Type: TypeNavigate, Path: navigation.LoginPath}); err != nil {
			slog.Debug("Failed to send navigate", "error", err)
		}
		return
	}

	id := uuid.NewString()
	view, err := h.catalog.New(name, func(f views.Frame) {
		if err := conn.Send(Message{Type: TypeSnapshot, ID: id, Frame: &f}); err != nil {
			slog.Debug("Failed to send snapshot", "conn_id", id, "error", err)
		}
	})
	if err != nil {
		slog.Warn("Unknown view requested", "view", name)
		if err := conn.Send(Message{Type: TypeError, Error: err.Error()}); err != nil {
			slog.Debug("Failed to send unknown view error", "error", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := h.nav.Subscribe()
	defer unsubscribe()
	go h.forwardNavigation(ctx, conn, events)

	h.registry.Register(id, view, conn)
	defer h.registry.Unregister(id, conn)

	initial := view.Render()
	if err := conn.Send(Message{Type: TypeSnapshot, ID: id, Frame: &initial}); err != nil {
		slog.Debug("Failed to send initial snapshot", "conn_id", id, "error", err)
		return
	}

	view.Mount(ctx)
	h.mounted(name, true)
	defer func() {
		view.Unmount()
		h.mounted(name, false)
		slog.Info("Live view unmounted", "conn_id", id, "view", name)
	}()

	h.readLoop(ctx, ws, conn, view, id)
}

func (h *Handler) mounted(view string, mounted bool) {
	if h.observer != nil {
		h.observer(view, mounted)
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) forwardNavigation(ctx context.Context, conn Conn, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			if err := conn.Send(Message{Type: TypeNavigate, Path: path}); err != nil {
				slog.Debug("Failed to forward navigation", "path", path, "error", err)
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, conn Conn, view views.View, id string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "conn_id", id)
			} else {
				slog.Warn("WebSocket read error", "error", err, "conn_id", id)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Malformed live message", "conn_id", id, "error", err)
			continue
		}

		switch msg.Type {
		case TypePause:
			view.Pause()
			h.sendFrame(conn, view, id)
		case TypeResume:
			view.Resume()
			h.sendFrame(conn, view, id)
		case TypeRefresh:
			view.Refresh()
		case TypePing:
			if err := conn.Send(Message{Type: TypePong}); err != nil {
				slog.Debug("Failed to send pong", "error", err)
			}
		case TypeLocation:
			if msg.Path != "" {
				h.nav.SetLocation(msg.Path)
			}
		default:
			slog.Debug("Ignoring live message", "conn_id", id, "type", msg.Type)
		}
	}
}

func (h *Handler) sendFrame(conn Conn, view views.View, id string) {
	f := view.Render()
	if err := conn.Send(Message{Type: TypeSnapshot, ID: id, Frame: &f}); err != nil {
		slog.Debug("Failed to send snapshot", "conn_id", id, "error", err)
	}
}
