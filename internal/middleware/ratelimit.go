package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gtixt/console/internal/httputil"
	"github.com/gtixt/console/internal/metrics"
	"github.com/gtixt/console/internal/ratelimit"
)

// RateLimit rejects requests over the per-IP fixed-window quota with a
// 429 and machine-readable retry headers.
func RateLimit(limiter *ratelimit.Limiter, maxRequests int64, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "api:" + ClientIP(r)
			decision := limiter.CheckRateLimit(r.Context(), key, maxRequests, window)

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", maxRequests))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

			if !decision.Allowed {
				retryAfter := int(time.Until(decision.ResetAt).Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
				metrics.RecordRateLimitRejection(r.URL.Path)
				httputil.WriteJSONError(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
