package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresRunRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := &PostgresRunRepository{db: db}
	return db, mock, repo
}

func TestNewPostgresRunRepository(t *testing.T) {
	t.Run("successful connection", func(t *testing.T) {
		t.Skip("Integration test - requires real database")
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewPostgresRunRepository("invalid connection string")
		assert.Error(t, err)
	})
}

func TestSaveRun(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	run := &RunRecord{
		RunID:       "run-123",
		JobName:     "crawl_firms",
		Status:      RunStatusRunning,
		StartedAt:   time.Now(),
		TriggeredBy: "admin@gtixt.org",
	}

	mock.ExpectExec("INSERT INTO job_runs").
		WithArgs(run.RunID, run.JobName, run.Status, run.StartedAt, run.TriggeredBy).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SaveRun(context.Background(), run)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteRun(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	mock.ExpectExec("UPDATE job_runs").
		WithArgs(RunStatusFailed, 124, 600, "partial output", "run-123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CompleteRun(context.Background(), "run-123", RunStatusFailed, 124, 600, "partial output")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	now := time.Now()
	completedAt := now.Add(2 * time.Minute)

	t.Run("completed run", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"run_id", "job_name", "status", "started_at", "completed_at",
			"exit_code", "duration_seconds", "output", "triggered_by",
		}).AddRow(
			"run-123", "crawl_firms", "success", now, completedAt,
			0, 120, "done", "admin@gtixt.org",
		)

		mock.ExpectQuery("SELECT.*FROM job_runs.*WHERE run_id").
			WithArgs("run-123").
			WillReturnRows(rows)

		run, err := repo.GetRun(context.Background(), "run-123")
		require.NoError(t, err)
		assert.Equal(t, "crawl_firms", run.JobName)
		assert.Equal(t, RunStatusSuccess, run.Status)
		require.NotNil(t, run.ExitCode)
		assert.Equal(t, 0, *run.ExitCode)
		require.NotNil(t, run.DurationSeconds)
		assert.Equal(t, 120, *run.DurationSeconds)
		assert.NotNil(t, run.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("still running", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{
			"run_id", "job_name", "status", "started_at", "completed_at",
			"exit_code", "duration_seconds", "output", "triggered_by",
		}).AddRow(
			"run-456", "crawl_firms", "running", now, nil,
			nil, nil, "", "",
		)

		mock.ExpectQuery("SELECT.*FROM job_runs.*WHERE run_id").
			WithArgs("run-456").
			WillReturnRows(rows)

		run, err := repo.GetRun(context.Background(), "run-456")
		require.NoError(t, err)
		assert.Equal(t, RunStatusRunning, run.Status)
		assert.Nil(t, run.CompletedAt)
		assert.Nil(t, run.ExitCode)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT.*FROM job_runs.*WHERE run_id").
			WithArgs("nonexistent").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetRun(context.Background(), "nonexistent")
		assert.Error(t, err)
	})
}

func TestListRecentRuns(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"run_id", "job_name", "status", "started_at", "completed_at",
		"exit_code", "duration_seconds", "triggered_by",
	}).
		AddRow("run-2", "enrich_firms", "success", now, now, 0, 30, "").
		AddRow("run-1", "crawl_firms", "failed", now.Add(-time.Hour), now.Add(-time.Hour), 3, 12, "admin@gtixt.org")

	mock.ExpectQuery("SELECT.*FROM job_runs.*ORDER BY started_at DESC").
		WithArgs(10).
		WillReturnRows(rows)

	runs, err := repo.ListRecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "enrich_firms", runs[0].JobName)
	assert.Equal(t, RunStatusFailed, runs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountRunning(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT COUNT.*FROM job_runs").
		WithArgs("crawl_firms").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	count, err := repo.CountRunning(context.Background(), "crawl_firms")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetRunStats(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer func() { _ = db.Close() }()

	rows := sqlmock.NewRows([]string{
		"job_name", "status", "count", "avg_duration_seconds", "max_duration_seconds",
	}).
		AddRow("crawl_firms", "success", 12, 310.5, 600).
		AddRow("crawl_firms", "failed", 2, 45.0, 80)

	mock.ExpectQuery("SELECT.*FROM job_runs.*GROUP BY job_name, status").
		WithArgs(24).
		WillReturnRows(rows)

	stats, err := repo.GetRunStats(context.Background(), 24)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 12, stats[0].Count)
	assert.InDelta(t, 310.5, stats[0].AvgDurationSeconds, 0.01)
	assert.NoError(t, mock.ExpectationsWereMet())
}
