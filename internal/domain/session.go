// Package domain contains core domain types for the CIMEX console.
package domain

// AuthState is the lifecycle state of the console's session.
type AuthState int

const (
	StateUnauthenticated AuthState = iota
	StateRestoring
	StateAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateRestoring:
		return "restoring"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Persisted storage keys for the session credential.
const (
	StorageKeyToken    = "token"
	StorageKeyUsername = "username"
)

// Session holds the operator's authentication state.
type Session struct {
	Token    string    `json:"-"`
	Username string    `json:"username,omitempty"`
	State    AuthState `json:"-"`
}

// IsAuthenticated reports whether the session holds a confirmed credential.
func (s Session) IsAuthenticated() bool {
	return s.State == StateAuthenticated && s.Token != "" && s.Username != ""
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
}

// Me is the identity returned by GET /auth/me.
type Me struct {
	Username  string  `json:"username"`
	ID        int64   `json:"id,omitempty"`
	CreatedAt *string `json:"created_at,omitempty"`
}
