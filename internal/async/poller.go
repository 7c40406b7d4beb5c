package async

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kelsos/fadr-stems/internal/client"
	"github.com/kelsos/fadr-stems/internal/logger"
	"github.com/kelsos/fadr-stems/internal/models"
)

// MidiWarmupAttempts is how many polls must pass before MIDI-only presence
// counts as completion. MIDI generation trails stem generation.
const MidiWarmupAttempts = 12

var ErrTaskNotFound = errors.New("task not found")

// TimeoutReason distinguishes an unreachable service from a slow one
type TimeoutReason string

const (
	ReasonAPITimeout        TimeoutReason = "api-timeout"
	ReasonAttemptsExhausted TimeoutReason = "attempts-exhausted"
)

// TaskFailedError is a terminal server-reported failure
type TaskFailedError struct {
	TaskID models.TaskID
	Status models.TaskStatus
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("task failed with status: %s", e.Status)
}

// PollTimeoutError ends a poll that never reached readiness
type PollTimeoutError struct {
	Attempts int
	Interval time.Duration
	Reason   TimeoutReason
	Err      error
}

func (e *PollTimeoutError) Error() string {
	if e.Reason == ReasonAPITimeout {
		return "API request timed out while checking task status"
	}
	minutes := (time.Duration(e.Attempts) * e.Interval).Minutes()
	return fmt.Sprintf("task processing timed out after %d attempts (%.1f minutes)", e.Attempts, minutes)
}

func (e *PollTimeoutError) Unwrap() error { return e.Err }

// TaskQuerier fetches the current state of a task
type TaskQuerier interface {
	QueryTask(ctx context.Context, taskID models.TaskID) (*models.Task, error)
}

// ProgressFunc receives (attempt, maxAttempts) after every non-terminal poll
type ProgressFunc func(attempt, maxAttempts int)

// SleepFunc waits between polls; tests replace it to skip real delays
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poller re-queries a task at a fixed interval until it is ready, failed,
// or out of attempts. It holds no per-task state.
type Poller struct {
	querier      TaskQuerier
	pollInterval time.Duration
	sleep        SleepFunc
}

func NewPoller(querier TaskQuerier, pollInterval time.Duration) *Poller {
	return &Poller{
		querier:      querier,
		pollInterval: pollInterval,
		sleep:        contextSleep,
	}
}

// WithSleep replaces the delay between attempts
func (p *Poller) WithSleep(sleep SleepFunc) *Poller {
	p.sleep = sleep
	return p
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isReady reports stems on the task asset, or MIDI once the warm-up has passed
func isReady(task *models.Task, attempt int) bool {
	if len(task.Asset.Stems) > 0 {
		return true
	}
	return len(task.Asset.Midi) > 0 && attempt > MidiWarmupAttempts
}

// Poll blocks until the task is ready and returns its final state
func (p *Poller) Poll(ctx context.Context, taskID models.TaskID, maxAttempts int, onProgress ProgressFunc) (*models.Task, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		task, err := p.querier.QueryTask(ctx, taskID)
		if err != nil {
			if client.IsTimeout(err) {
				return nil, &PollTimeoutError{Attempts: attempt, Interval: p.pollInterval, Reason: ReasonAPITimeout, Err: err}
			}
			return nil, err
		}

		if task.Status.IsFailure() {
			logger.Error("Task %s failed with status %s on attempt %d", taskID, task.Status, attempt)
			return nil, &TaskFailedError{TaskID: taskID, Status: task.Status}
		}

		if isReady(task, attempt) {
			logger.Debug("Task %s ready after %d attempts (stems=%d midi=%d)", taskID, attempt, len(task.Asset.Stems), len(task.Asset.Midi))
			return task, nil
		}

		logger.Debug("Task %s not ready (attempt %d/%d, status %q)", taskID, attempt, maxAttempts, task.Status)
		if onProgress != nil {
			onProgress(attempt, maxAttempts)
		}

		if attempt == maxAttempts {
			break
		}
		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return nil, err
		}
	}

	return nil, &PollTimeoutError{Attempts: maxAttempts, Interval: p.pollInterval, Reason: ReasonAttemptsExhausted}
}
