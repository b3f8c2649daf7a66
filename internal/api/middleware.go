// Package api implements the memodesk REST API using chi.
package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

const authChallenge = `Bearer realm="memodesk"`

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through.
// If enabled is true, requests must carry "Authorization: Bearer <token>";
// anything else gets 401 with a Bearer challenge for the memodesk realm.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", authChallenge)
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized: send the configured API token as a Bearer credential"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
