// Package api implements the mynotes JSON API using chi.
package api

import (
	"net/http"
	"strings"
)

// SessionChecker reports whether a request carries a signed-in web session.
type SessionChecker interface {
	Authenticated(r *http.Request) bool
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>"
// header or, when sessions is non-nil, a signed-in web session cookie.
func AuthMiddleware(enabled bool, token string, sessions SessionChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == token {
				next.ServeHTTP(w, r)
				return
			}
			if sessions != nil && sessions.Authenticated(r) {
				next.ServeHTTP(w, r)
				return
			}
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		})
	}
}
