package middleware

import (
	"net/http"
	"strconv"

	"github.com/gtixt/console/internal/httputil"
	"github.com/gtixt/console/internal/metrics"
	"github.com/gtixt/console/internal/ratelimit"
)

// DailyQuota meters response bytes per client per UTC day against a
// fixed budget. The budget is soft: the request that crosses it is
// served in full and only later requests are rejected, until the day
// rolls over.
func DailyQuota(limiter *ratelimit.Limiter, maxBytesPerDay int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "volume:" + ClientIP(r)

			used := limiter.GetTokenUsage(r.Context(), key)
			remaining := maxBytesPerDay - used
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-Quota-Limit", strconv.FormatInt(maxBytesPerDay, 10))
			w.Header().Set("X-Quota-Remaining", strconv.FormatInt(remaining, 10))

			if used > maxBytesPerDay {
				metrics.RecordRateLimitRejection(r.URL.Path)
				httputil.WriteJSONError(w, "daily volume quota exceeded", http.StatusTooManyRequests)
				return
			}

			counter := &countingWriter{ResponseWriter: w}
			next.ServeHTTP(counter, r)

			limiter.TrackTokenUsage(r.Context(), key, counter.bytes, maxBytesPerDay)
		})
	}
}

type countingWriter struct {
	http.ResponseWriter
	bytes int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}
