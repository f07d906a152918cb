package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/gtixt/console/internal/httputil"
	"github.com/gtixt/console/internal/jobs"
	"github.com/gtixt/console/internal/metrics"
	"github.com/gtixt/console/internal/repository"
)

const defaultRunsLimit = 50
const maxRunsLimit = 200

func (a *API) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, a.registry.List())
}

// handleRunJob triggers a job and returns 202 immediately; the run row
// is completed from the run handle once the process reaches a terminal
// state. One running run per job name is enforced here against
// persisted state, since the runner itself does no de-duplication.
func (a *API) handleRunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, err := a.registry.Lookup(name); err != nil {
		switch {
		case errors.Is(err, jobs.ErrJobNotFound):
			httputil.WriteJSONError(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, jobs.ErrJobDisabled):
			httputil.WriteJSONError(w, err.Error(), http.StatusForbidden)
		default:
			httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	running, err := a.repo.CountRunning(r.Context(), name)
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if running > 0 {
		httputil.WriteJSONError(w, "job is already running", http.StatusConflict)
		return
	}

	triggeredBy := r.Header.Get("X-Admin-User")
	if triggeredBy == "" {
		triggeredBy = "admin"
	}

	run, err := a.runner.Start(name)
	if err != nil {
		var spawnErr *jobs.SpawnError
		if errors.As(err, &spawnErr) {
			a.persistSpawnFailure(r.Context(), spawnErr.Result, triggeredBy)
			httputil.WriteJSONError(w, spawnErr.Error(), http.StatusInternalServerError)
			return
		}
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	record := &repository.RunRecord{
		RunID:       run.ID,
		JobName:     name,
		Status:      repository.RunStatusRunning,
		StartedAt:   run.StartTime,
		TriggeredBy: triggeredBy,
	}
	if err := a.repo.SaveRun(r.Context(), record); err != nil {
		a.logger.WithError(err).WithField("run_id", run.ID).Error("Failed to persist run record")
	}

	go a.completeRun(run)

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"job":    name,
		"status": repository.RunStatusRunning,
	})
}

// completeRun waits on the handle and writes the terminal state. Uses a
// fresh context: the triggering request is long gone by the time most
// jobs finish.
func (a *API) completeRun(run *jobs.Run) {
	result := run.Wait()

	status := repository.RunStatusFailed
	if result.Success {
		status = repository.RunStatusSuccess
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.repo.CompleteRun(ctx, result.RunID, status, result.ExitCode, result.DurationSeconds, result.Output); err != nil {
		a.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to complete run record")
	}

	metrics.RecordJobRun(result.Name, status, result.EndTime.Sub(result.StartTime))

	if !result.Success && a.notifier != nil {
		a.notifier.JobFailed(result)
	}
}

func (a *API) persistSpawnFailure(ctx context.Context, result jobs.Result, triggeredBy string) {
	record := &repository.RunRecord{
		RunID:       result.RunID,
		JobName:     result.Name,
		Status:      repository.RunStatusRunning,
		StartedAt:   result.StartTime,
		TriggeredBy: triggeredBy,
	}
	if err := a.repo.SaveRun(ctx, record); err != nil {
		a.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to persist spawn failure")
		return
	}
	if err := a.repo.CompleteRun(ctx, result.RunID, repository.RunStatusFailed, result.ExitCode, result.DurationSeconds, result.Output); err != nil {
		a.logger.WithError(err).WithField("run_id", result.RunID).Error("Failed to complete spawn failure record")
	}

	metrics.RecordJobRun(result.Name, repository.RunStatusFailed, result.EndTime.Sub(result.StartTime))

	if a.notifier != nil {
		a.notifier.JobFailed(result)
	}
}

func (a *API) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	var (
		runs []repository.RunRecord
		err  error
	)
	if job := r.URL.Query().Get("job"); job != "" {
		runs, err = a.repo.ListRunsByJob(r.Context(), job, limit)
	} else {
		runs, err = a.repo.ListRecentRuns(r.Context(), limit)
	}
	if err != nil {
		httputil.WriteJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if runs == nil {
		runs = []repository.RunRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (a *API) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	run, err := a.repo.GetRun(r.Context(), runID)
	if err != nil {
		httputil.WriteJSONError(w, "run not found", http.StatusNotFound)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, run)
}
