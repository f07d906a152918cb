// Package dashboard implements the admin console's aggregated view of
// pipeline job activity.
package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gtixt/console/internal/httputil"
	"github.com/gtixt/console/internal/repository"
)

type Dashboard struct {
	repo repository.RunRepository
}

type Stats struct {
	WindowHours int                      `json:"window_hours"`
	TotalRuns   int                      `json:"total_runs"`
	RunningRuns int                      `json:"running_runs"`
	SuccessRuns int                      `json:"success_runs"`
	FailedRuns  int                      `json:"failed_runs"`
	RunsByJob   map[string]int           `json:"runs_by_job"`
	PerJob      []repository.JobRunStats `json:"per_job"`
	LastUpdated time.Time                `json:"last_updated"`
}

func NewDashboard(repo repository.RunRepository) *Dashboard {
	return &Dashboard{repo: repo}
}

func (d *Dashboard) GetStats(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	perJob, err := d.repo.GetRunStats(r.Context(), hours)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := Stats{
		WindowHours: hours,
		RunsByJob:   make(map[string]int),
		PerJob:      perJob,
		LastUpdated: time.Now(),
	}

	for _, s := range perJob {
		stats.TotalRuns += s.Count
		stats.RunsByJob[s.JobName] += s.Count

		switch s.Status {
		case repository.RunStatusRunning:
			stats.RunningRuns += s.Count
		case repository.RunStatusSuccess:
			stats.SuccessRuns += s.Count
		case repository.RunStatusFailed:
			stats.FailedRuns += s.Count
		}
	}

	httputil.WriteJSON(w, http.StatusOK, stats)
}
