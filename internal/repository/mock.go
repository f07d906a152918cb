package repository

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockRunRepository is an in-memory RunRepository used by handler and
// dashboard tests.
type MockRunRepository struct {
	mu               sync.Mutex
	SaveRunCalls     []string
	CompleteRunCalls []CompleteRunCall
	Runs             map[string]*RunRecord
	Stats            []JobRunStats
	SaveRunError     error
	CompleteRunError error
	ListRunsError    error
	CountRunningErr  error
	GetRunStatsError error
}

type CompleteRunCall struct {
	RunID           string
	Status          string
	ExitCode        int
	DurationSeconds int
	Output          string
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{
		Runs: make(map[string]*RunRecord),
	}
}

func (m *MockRunRepository) SaveRun(ctx context.Context, run *RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveRunCalls = append(m.SaveRunCalls, run.RunID)

	if m.SaveRunError != nil {
		return m.SaveRunError
	}

	runCopy := *run
	m.Runs[run.RunID] = &runCopy
	return nil
}

func (m *MockRunRepository) CompleteRun(ctx context.Context, runID, status string, exitCode, durationSeconds int, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CompleteRunCalls = append(m.CompleteRunCalls, CompleteRunCall{
		RunID:           runID,
		Status:          status,
		ExitCode:        exitCode,
		DurationSeconds: durationSeconds,
		Output:          output,
	})

	if m.CompleteRunError != nil {
		return m.CompleteRunError
	}

	if run, exists := m.Runs[runID]; exists {
		now := time.Now()
		run.Status = status
		run.CompletedAt = &now
		run.ExitCode = &exitCode
		run.DurationSeconds = &durationSeconds
		run.Output = output
	}

	return nil
}

func (m *MockRunRepository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.Runs[runID]
	if !exists {
		return nil, fmt.Errorf("run not found: %s", runID)
	}

	runCopy := *run
	return &runCopy, nil
}

func (m *MockRunRepository) ListRecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListRunsError != nil {
		return nil, m.ListRunsError
	}

	var runs []RunRecord
	for _, run := range m.Runs {
		runs = append(runs, *run)
		if len(runs) >= limit {
			break
		}
	}

	return runs, nil
}

func (m *MockRunRepository) ListRunsByJob(ctx context.Context, jobName string, limit int) ([]RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ListRunsError != nil {
		return nil, m.ListRunsError
	}

	var runs []RunRecord
	for _, run := range m.Runs {
		if run.JobName == jobName {
			runs = append(runs, *run)
			if len(runs) >= limit {
				break
			}
		}
	}

	return runs, nil
}

func (m *MockRunRepository) CountRunning(ctx context.Context, jobName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CountRunningErr != nil {
		return 0, m.CountRunningErr
	}

	count := 0
	for _, run := range m.Runs {
		if run.JobName == jobName && run.Status == RunStatusRunning {
			count++
		}
	}

	return count, nil
}

func (m *MockRunRepository) GetRunStats(ctx context.Context, hours int) ([]JobRunStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetRunStatsError != nil {
		return nil, m.GetRunStatsError
	}

	return m.Stats, nil
}

func (m *MockRunRepository) Close() error {
	return nil
}

func (m *MockRunRepository) GetSaveRunCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.SaveRunCalls)
}

func (m *MockRunRepository) GetCompleteRunCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.CompleteRunCalls)
}

func (m *MockRunRepository) GetCompleteRunCalls() []CompleteRunCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]CompleteRunCall, len(m.CompleteRunCalls))
	copy(calls, m.CompleteRunCalls)
	return calls
}

func (m *MockRunRepository) GetRunStatus(runID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run, exists := m.Runs[runID]; exists {
		return run.Status, true
	}

	return "", false
}

// WaitForCompletion polls until the run reaches a terminal status or the
// deadline passes, for tests that trigger fire-and-forget runs.
func (m *MockRunRepository) WaitForCompletion(runID string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if status, ok := m.GetRunStatus(runID); ok && status != RunStatusRunning {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}
