// Package api wires the HTTP surface of the GTIXT serving core: the
// public snapshot endpoint and the admin console routes for jobs, runs
// and cache control.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/gtixt/console/internal/dashboard"
	"github.com/gtixt/console/internal/jobs"
	"github.com/gtixt/console/internal/middleware"
	"github.com/gtixt/console/internal/ratelimit"
	"github.com/gtixt/console/internal/repository"
	"github.com/gtixt/console/internal/snapshot"
)

// FailureNotifier receives terminal failed results. The production
// implementation emails operators; tests stub it.
type FailureNotifier interface {
	JobFailed(result jobs.Result)
}

type Config struct {
	AdminToken      string
	RateLimit       int64
	RateLimitWindow time.Duration
	MaxBytesPerDay  int64
}

type API struct {
	cfg      Config
	snapshot *snapshot.Cache
	registry *jobs.Registry
	runner   *jobs.Runner
	repo     repository.RunRepository
	notifier FailureNotifier
	logger   *logrus.Logger
	router   *mux.Router
}

func New(
	cfg Config,
	snap *snapshot.Cache,
	registry *jobs.Registry,
	runner *jobs.Runner,
	repo repository.RunRepository,
	limiter *ratelimit.Limiter,
	notifier FailureNotifier,
	logger *logrus.Logger,
) *API {
	a := &API{
		cfg:      cfg,
		snapshot: snap,
		registry: registry,
		runner:   runner,
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}

	a.setupRoutes(limiter)
	return a
}

func (a *API) setupRoutes(limiter *ratelimit.Limiter) {
	r := mux.NewRouter()
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)

	public := r.PathPrefix("/api/snapshot").Subrouter()
	public.Use(middleware.RateLimit(limiter, a.cfg.RateLimit, a.cfg.RateLimitWindow))
	if a.cfg.MaxBytesPerDay > 0 {
		public.Use(middleware.DailyQuota(limiter, a.cfg.MaxBytesPerDay))
	}
	public.HandleFunc("/latest", a.handleSnapshotLatest).Methods(http.MethodGet)

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(middleware.AdminAuth(a.cfg.AdminToken))
	admin.HandleFunc("/cache/stats", a.handleCacheStats).Methods(http.MethodGet)
	admin.HandleFunc("/cache/invalidate", a.handleCacheInvalidate).Methods(http.MethodPost)
	admin.HandleFunc("/jobs", a.handleListJobs).Methods(http.MethodGet)
	admin.HandleFunc("/jobs/{name}/run", a.handleRunJob).Methods(http.MethodPost)
	admin.HandleFunc("/runs", a.handleListRuns).Methods(http.MethodGet)
	admin.HandleFunc("/runs/{id}", a.handleGetRun).Methods(http.MethodGet)

	dash := dashboard.NewDashboard(a.repo)
	admin.HandleFunc("/stats", dash.GetStats).Methods(http.MethodGet)

	a.router = r
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}
