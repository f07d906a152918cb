package jobs

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxOutputChars bounds the captured output of a single run. Truncation
// is silent; it exists to cap memory and storage cost for pathological
// jobs, not to signal an error.
const MaxOutputChars = 50000

// TimeoutExitCode follows the coreutils timeout(1) convention.
const TimeoutExitCode = 124

// Result is the terminal record of one invocation. Timeouts and non-zero
// exits are completed results with Success=false, not errors.
type Result struct {
	RunID           string    `json:"run_id"`
	Name            string    `json:"name"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ExitCode        int       `json:"exit_code"`
	Success         bool      `json:"success"`
	TimedOut        bool      `json:"timed_out"`
	Output          string    `json:"output"`
	DurationSeconds int       `json:"duration_seconds"`
}

// SpawnError reports a process that never came into being (missing
// executable, permission denied). It carries a partial result so callers
// can persist the failed run the same way as a completed one.
type SpawnError struct {
	Result Result
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn job %s: %v", e.Result.Name, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Run is the handle for one in-flight invocation. Callers either Wait
// for the result synchronously or select on Done and read the result
// afterwards; production handlers run Wait in a goroutine and persist
// the result when it arrives.
type Run struct {
	ID        string
	Name      string
	StartTime time.Time

	done   chan struct{}
	result Result
}

// Wait blocks until the invocation reaches a terminal state.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Done is closed once the result is available via Wait.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) finish(res Result) {
	r.result = res
	close(r.done)
}

// Runner supervises registered job scripts. One Start is exactly one
// attempt: no retries, and no per-name exclusivity. Callers needing
// at-most-one-running-per-job enforce it against persisted run state
// before calling Start.
type Runner struct {
	registry  *Registry
	workDir   string
	moduleDir string
	logger    *logrus.Logger

	// startCmd is swapped out in tests to observe spawn attempts.
	startCmd func(cmd *exec.Cmd) error
}

func NewRunner(registry *Registry, workDir, moduleDir string, logger *logrus.Logger) *Runner {
	return &Runner{
		registry:  registry,
		workDir:   workDir,
		moduleDir: moduleDir,
		logger:    logger,
		startCmd:  func(cmd *exec.Cmd) error { return cmd.Start() },
	}
}

// Start spawns the named job and returns its handle. Registry
// preconditions (ErrJobNotFound, ErrJobDisabled) and spawn failures
// (*SpawnError) are returned as errors; every other outcome, including
// timeout and non-zero exit, arrives through the handle's result.
func (r *Runner) Start(name string) (*Run, error) {
	spec, err := r.registry.Lookup(name)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		done:      make(chan struct{}),
	}

	logEntry := r.logger.WithFields(logrus.Fields{
		"component": "job_runner",
		"job":       name,
		"run_id":    run.ID,
	})

	cmd := exec.Command(spec.ScriptPath, spec.Args...)
	cmd.Dir = r.workDir
	cmd.Env = os.Environ()
	if r.moduleDir != "" {
		cmd.Env = append(cmd.Env, "PYTHONPATH="+r.moduleDir)
	}

	var output limitedBuffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := r.startCmd(cmd); err != nil {
		endTime := time.Now()
		result := Result{
			RunID:     run.ID,
			Name:      name,
			StartTime: run.StartTime,
			EndTime:   endTime,
			ExitCode:  1,
			Success:   false,
			Output:    truncate(output.String() + "spawn failed: " + err.Error()),
		}
		run.finish(result)
		logEntry.WithError(err).Error("Failed to spawn job process")
		return nil, &SpawnError{Result: result, Err: err}
	}

	logEntry.Info("Job started")

	timeout := time.Duration(spec.TimeoutMs) * time.Millisecond
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		if err := cmd.Process.Kill(); err != nil {
			logEntry.WithError(err).Warn("Failed to kill timed-out job")
		}
	})

	go func() {
		waitErr := cmd.Wait()
		timer.Stop()
		endTime := time.Now()

		result := Result{
			RunID:     run.ID,
			Name:      name,
			StartTime: run.StartTime,
			EndTime:   endTime,
		}

		switch {
		case timedOut.Load():
			result.TimedOut = true
			result.ExitCode = TimeoutExitCode
			result.Output = truncate(fmt.Sprintf("%s\n[job killed after %dms timeout]", output.String(), spec.TimeoutMs))
		case waitErr != nil:
			result.ExitCode = cmd.ProcessState.ExitCode()
			result.Output = truncate(output.String())
		default:
			result.ExitCode = 0
			result.Success = true
			result.Output = truncate(output.String())
		}

		result.DurationSeconds = int(math.Round(endTime.Sub(run.StartTime).Seconds()))

		logEntry.WithFields(logrus.Fields{
			"exit_code": result.ExitCode,
			"success":   result.Success,
			"duration":  result.DurationSeconds,
		}).Info("Job finished")

		run.finish(result)
	}()

	return run, nil
}

// limitedBuffer captures interleaved stdout+stderr up to MaxOutputChars;
// writes past the cap are dropped.
type limitedBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if room := MaxOutputChars - len(b.buf); room > 0 {
		if len(p) > room {
			b.buf = append(b.buf, p[:room]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func truncate(s string) string {
	if len(s) > MaxOutputChars {
		return s[:MaxOutputChars]
	}
	return s
}
