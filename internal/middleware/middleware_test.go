package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/gtixt/console/internal/ratelimit"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimit_AllowsUnderQuota(t *testing.T) {
	limiter := ratelimit.New(nil, testLogger())
	handler := RateLimit(limiter, 3, time.Minute)(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/snapshot/latest", nil)
	req.RemoteAddr = "198.51.100.1:1234"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestRateLimit_RejectsOverQuota(t *testing.T) {
	limiter := ratelimit.New(nil, testLogger())
	handler := RateLimit(limiter, 1, time.Minute)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot/latest", nil)
	req.RemoteAddr = "198.51.100.1:1234"

	handler.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimit_IndependentClients(t *testing.T) {
	limiter := ratelimit.New(nil, testLogger())
	handler := RateLimit(limiter, 1, time.Minute)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	first.RemoteAddr = "198.51.100.1:1234"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	rec := httptest.NewRecorder()
	second := httptest.NewRequest(http.MethodGet, "/", nil)
	second.RemoteAddr = "198.51.100.2:1234"
	handler.ServeHTTP(rec, second)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func payloadHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func TestDailyQuota_ServesUnderBudget(t *testing.T) {
	limiter := ratelimit.New(nil, testLogger())
	handler := DailyQuota(limiter, 1000)(payloadHandler("0123456789"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/snapshot/latest", nil)
	req.RemoteAddr = "198.51.100.1:1234"
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1000", rec.Header().Get("X-Quota-Limit"))
	assert.Equal(t, "1000", rec.Header().Get("X-Quota-Remaining"))
}

func TestDailyQuota_SoftBudget(t *testing.T) {
	limiter := ratelimit.New(nil, testLogger())
	handler := DailyQuota(limiter, 15)(payloadHandler("0123456789"))

	req := httptest.NewRequest(http.MethodGet, "/api/snapshot/latest", nil)
	req.RemoteAddr = "198.51.100.1:1234"

	// First request serves 10 of 15 bytes.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second request crosses the budget but is still served in full.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0123456789", rec.Body.String())
	assert.Equal(t, "5", rec.Header().Get("X-Quota-Remaining"))

	// Third request is over budget and rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-Quota-Remaining"))
}

func TestAdminAuth(t *testing.T) {
	handler := AdminAuth("secret")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Admin-Token", "secret")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:5555"
	assert.Equal(t, "192.0.2.10", ClientIP(req))

	req.Header.Set("X-Real-IP", "203.0.113.1")
	assert.Equal(t, "203.0.113.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", ClientIP(req))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/admin/jobs/:name/run", normalizeEndpoint("/api/admin/jobs/crawl_firms/run"))
	assert.Equal(t, "/api/admin/runs/:id", normalizeEndpoint("/api/admin/runs/abc-123"))
	assert.Equal(t, "/api/snapshot/latest", normalizeEndpoint("/api/snapshot/latest"))
}
