package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gtixt/console/internal/httputil"
)

// AdminAuth gates admin routes behind a shared token. Session issuance
// and role management live outside this service; the token check is the
// whole authorization surface here.
func AdminAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Admin-Token")
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				httputil.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
