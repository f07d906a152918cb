package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gtixt/console/internal/httputil"
	"github.com/gtixt/console/internal/metrics"
	"github.com/gtixt/console/internal/snapshot"
)

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleSnapshotLatest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	payload, meta, err := a.snapshot.Get(r.Context())
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotUnavailable) {
			metrics.RecordSnapshotUnavailable()
			httputil.WriteJSONError(w, "snapshot unavailable", http.StatusServiceUnavailable)
			return
		}
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	metrics.RecordSnapshotRequest(meta.Status)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", meta.Status)
	w.Header().Set("X-Cache-Age", fmt.Sprintf("%d", meta.AgeSeconds))
	w.Header().Set("X-Response-Time", fmt.Sprintf("%dms", time.Since(start).Milliseconds()))

	if _, err := w.Write(payload); err != nil {
		a.logger.WithError(err).Warn("Failed to write snapshot response")
	}
}

func (a *API) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.snapshot.Stats(r.Context())
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (a *API) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := a.snapshot.Invalidate(r.Context()); err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	a.logger.WithField("client_ip", r.RemoteAddr).Info("Snapshot cache invalidated")
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"invalidated": true})
}
