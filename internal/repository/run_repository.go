// Package repository provides PostgreSQL persistence for job run history.
package repository

import (
	"context"
	"time"
)

const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// RunRecord is one row of job run history. A record is inserted with
// status "running" when a run starts and completed exactly once when the
// runner reports a terminal result.
type RunRecord struct {
	RunID           string     `json:"run_id"`
	JobName         string     `json:"job_name"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ExitCode        *int       `json:"exit_code,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Output          string     `json:"output,omitempty"`
	TriggeredBy     string     `json:"triggered_by,omitempty"`
}

// JobRunStats is an aggregate over run history, grouped by job and status.
type JobRunStats struct {
	JobName            string  `json:"job_name"`
	Status             string  `json:"status"`
	Count              int     `json:"count"`
	AvgDurationSeconds float64 `json:"avg_duration_seconds"`
	MaxDurationSeconds int     `json:"max_duration_seconds"`
}

type RunRepository interface {
	SaveRun(ctx context.Context, run *RunRecord) error
	CompleteRun(ctx context.Context, runID, status string, exitCode, durationSeconds int, output string) error
	GetRun(ctx context.Context, runID string) (*RunRecord, error)
	ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	ListRunsByJob(ctx context.Context, jobName string, limit int) ([]RunRecord, error)
	CountRunning(ctx context.Context, jobName string) (int, error)
	GetRunStats(ctx context.Context, hours int) ([]JobRunStats, error)
	Close() error
}
