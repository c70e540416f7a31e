package apiclient

import "sync"

// Credential is the bearer token attached to outgoing requests.
// The zero value carries no token.
type Credential struct {
	mu    sync.RWMutex
	token string
}

// Set replaces the active token.
func (c *Credential) Set(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Clear removes the active token.
func (c *Credential) Clear() {
	c.Set("")
}

// Token returns the active token, or "" when none is set.
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Present reports whether a token is set.
func (c *Credential) Present() bool {
	return c.Token() != ""
}
