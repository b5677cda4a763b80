package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// NewTokenAuthMiddleware enforces `Authorization: Token <t>` on every
// endpoint except the health check. An empty configured token disables the
// check entirely (local/dev deployments).
func NewTokenAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			authz := r.Header.Get("Authorization")
			const prefix = "Token "
			if !strings.HasPrefix(authz, prefix) {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing or malformed Authorization header", nil)
				return
			}
			got := strings.TrimSpace(strings.TrimPrefix(authz, prefix))
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
