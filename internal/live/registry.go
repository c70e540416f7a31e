// Package live streams mounted views to browsers over WebSocket.
package live

import (
	"log/slog"
	"sync"

	"github.com/cimex/cimex-console/internal/navigation"
	"github.com/cimex/cimex-console/internal/views"
)

// Conn is the registry's handle on one live connection.
type Conn interface {
	Send(msg Message) error
	Close(reason string) error
}

type entry struct {
	view views.View
	conn Conn
}

// Registry tracks open live connections by connection id.
type Registry struct {
	mu     sync.RWMutex
	active map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{active: make(map[string]entry)}
}

// Register adds a connection serving v. An existing registration under the
// same id is closed and replaced.
func (r *Registry) Register(id string, v views.View, conn Conn) {
	r.mu.Lock()
	existing, ok := r.active[id]
	r.active[id] = entry{view: v, conn: conn}
	r.mu.Unlock()

	if ok && existing.conn != conn {
		_ = existing.conn.Close("connection replaced")
	}
	slog.Info("Live view registered", "conn_id", id, "view", v.Name())
}

// Unregister removes a connection if it is still the one registered under id.
func (r *Registry) Unregister(id string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.active[id]; ok && current.conn == conn {
		delete(r.active, id)
		slog.Info("Live view unregistered", "conn_id", id, "view", current.view.Name())
	}
}

// Count returns the number of open connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.active)
}

// Refresh refetches every mounted view with the given name and reports how
// many were refreshed.
func (r *Registry) Refresh(name string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.active {
		if e.view.Name() == name {
			e.view.Refresh()
			n++
		}
	}
	return n
}

// EndSession tells every connection to navigate to the login view and
// closes it. Handlers unmount their views as their read loops fail.
func (r *Registry) EndSession() int {
	return r.closeAll("session ended", &Message{Type: TypeNavigate, Path: navigation.LoginPath})
}

// CloseAll closes every connection without a final message.
func (r *Registry) CloseAll(reason string) int {
	return r.closeAll(reason, nil)
}

func (r *Registry) closeAll(reason string, last *Message) int {
	// Detach under the lock; sends and closes run without it so a slow peer
	// cannot stall Register, Unregister or Count.
	r.mu.Lock()
	closing := r.active
	r.active = make(map[string]entry)
	r.mu.Unlock()

	for id, e := range closing {
		if last != nil {
			if err := e.conn.Send(*last); err != nil {
				slog.Debug("Failed to send final message", "conn_id", id, "error", err)
			}
		}
		_ = e.conn.Close(reason)
		slog.Info("Live view closed", "conn_id", id, "view", e.view.Name(), "reason", reason)
	}
	return len(closing)
}
