// Package navigation tracks the view location of the console's browser
// clients and pushes redirects to them.
package navigation

import (
	"log/slog"
	"sync"
)

// LoginPath is the location of the login view.
const LoginPath = "/login"

// Navigator holds the current location and fans navigation events out to
// subscribers.
type Navigator struct {
	mu          sync.RWMutex
	location    string
	subscribers map[int]chan string
	nextID      int
}

// New creates a navigator positioned at location.
func New(location string) *Navigator {
	return &Navigator{
		location:    location,
		subscribers: make(map[int]chan string),
	}
}

// Location returns the current location.
func (n *Navigator) Location() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.location
}

// SetLocation records a location reported by a client without notifying
// subscribers.
func (n *Navigator) SetLocation(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
}

// Navigate moves to path and notifies every subscriber. Slow subscribers
// miss the event rather than block the caller.
func (n *Navigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.location = path
	for id, ch := range n.subscribers {
		select {
		case ch <- path:
		default:
			slog.Warn("Navigation event dropped for slow subscriber", "subscriber", id, "path", path)
		}
	}
}

// RedirectToLogin navigates to the login view unless already there.
// It reports whether a navigation happened.
func (n *Navigator) RedirectToLogin() bool {
	if n.Location() == LoginPath {
		return false
	}
	n.Navigate(LoginPath)
	return true
}

// Subscribe returns a channel of navigation targets and a cancel func that
// must be called to release it.
func (n *Navigator) Subscribe() (<-chan string, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	ch := make(chan string, 4)
	n.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subscribers, id)
			close(ch)
		})
	}
}
