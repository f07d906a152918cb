// Package middleware provides HTTP middleware for logging, metrics,
// rate limiting and admin authorization.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gtixt/console/internal/metrics"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytesSent  int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesSent += n
	return n, err
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		endpoint := normalizeEndpoint(r.URL.Path)
		status := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(r.Method, endpoint, status, duration)
	})
}

func normalizeEndpoint(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/admin/jobs/") && strings.HasSuffix(path, "/run"):
		return "/api/admin/jobs/:name/run"
	case strings.HasPrefix(path, "/api/admin/runs/"):
		return "/api/admin/runs/:id"
	default:
		return path
	}
}
