package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// SessionChecker reports whether the console holds an authenticated session.
type SessionChecker interface {
	Authenticated() bool
}

// RequireSession rejects requests with 401 and a login redirect hint when
// no session is held.
func RequireSession(s SessionChecker, loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.Authenticated() {
				slog.Debug("Rejected request without session", "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":    "unauthorized",
					"redirect": loginPath,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
