package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

type PostgresRunRepository struct {
	db *sql.DB
}

func NewPostgresRunRepository(connectionString string) (*PostgresRunRepository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresRunRepository{db: db}, nil
}

func (r *PostgresRunRepository) SaveRun(ctx context.Context, run *RunRecord) error {
	query := `
		INSERT INTO job_runs (
			run_id, job_name, status, started_at, triggered_by
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		run.RunID,
		run.JobName,
		run.Status,
		run.StartedAt,
		run.TriggeredBy,
	)

	return err
}

func (r *PostgresRunRepository) CompleteRun(ctx context.Context, runID, status string, exitCode, durationSeconds int, output string) error {
	query := `
		UPDATE job_runs
		SET status = $1,
		    completed_at = NOW(),
		    exit_code = $2,
		    duration_seconds = $3,
		    output = $4
		WHERE run_id = $5
	`
	_, err := r.db.ExecContext(ctx, query, status, exitCode, durationSeconds, output, runID)

	return err
}

func (r *PostgresRunRepository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	query := `
		SELECT
			run_id, job_name, status, started_at, completed_at,
			exit_code, duration_seconds, COALESCE(output, ''), COALESCE(triggered_by, '')
		FROM job_runs
		WHERE run_id = $1
	`

	var run RunRecord
	var completedAt sql.NullTime
	var exitCode, durationSeconds sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, runID).Scan(
		&run.RunID,
		&run.JobName,
		&run.Status,
		&run.StartedAt,
		&completedAt,
		&exitCode,
		&durationSeconds,
		&run.Output,
		&run.TriggeredBy,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if exitCode.Valid {
		code := int(exitCode.Int64)
		run.ExitCode = &code
	}
	if durationSeconds.Valid {
		duration := int(durationSeconds.Int64)
		run.DurationSeconds = &duration
	}

	return &run, nil
}

func (r *PostgresRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT
			run_id, job_name, status, started_at, completed_at,
			exit_code, duration_seconds, COALESCE(triggered_by, '')
		FROM job_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	return scanRuns(rows)
}

func (r *PostgresRunRepository) ListRunsByJob(ctx context.Context, jobName string, limit int) ([]RunRecord, error) {
	query := `
		SELECT
			run_id, job_name, status, started_at, completed_at,
			exit_code, duration_seconds, COALESCE(triggered_by, '')
		FROM job_runs
		WHERE job_name = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, jobName, limit)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	return scanRuns(rows)
}

func (r *PostgresRunRepository) CountRunning(ctx context.Context, jobName string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM job_runs
		WHERE job_name = $1 AND status = 'running'
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, jobName).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *PostgresRunRepository) GetRunStats(ctx context.Context, hours int) ([]JobRunStats, error) {
	query := `
		SELECT
			job_name, status, COUNT(*) as count,
			COALESCE(AVG(duration_seconds), 0) as avg_duration_seconds,
			COALESCE(MAX(duration_seconds), 0) as max_duration_seconds
		FROM job_runs
		WHERE started_at > NOW() - INTERVAL '1 hour' * $1
		GROUP BY job_name, status
		ORDER BY job_name, status
	`
	rows, err := r.db.QueryContext(ctx, query, hours)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	var stats []JobRunStats
	for rows.Next() {
		var s JobRunStats
		if err := rows.Scan(
			&s.JobName,
			&s.Status,
			&s.Count,
			&s.AvgDurationSeconds,
			&s.MaxDurationSeconds,
		); err != nil {
			return nil, err
		}

		stats = append(stats, s)
	}

	return stats, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]RunRecord, error) {
	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var completedAt sql.NullTime
		var exitCode, durationSeconds sql.NullInt64

		if err := rows.Scan(
			&run.RunID,
			&run.JobName,
			&run.Status,
			&run.StartedAt,
			&completedAt,
			&exitCode,
			&durationSeconds,
			&run.TriggeredBy,
		); err != nil {
			return nil, err
		}

		if completedAt.Valid {
			run.CompletedAt = &completedAt.Time
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			run.ExitCode = &code
		}
		if durationSeconds.Valid {
			duration := int(durationSeconds.Int64)
			run.DurationSeconds = &duration
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (r *PostgresRunRepository) DB() *sql.DB {
	return r.db
}

func (r *PostgresRunRepository) Close() error {
	return r.db.Close()
}
