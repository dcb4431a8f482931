package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// TaskError represents an error that occurred while executing one task.
type TaskError struct {
	TaskID    string    // ID of the task that failed
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewTaskError creates a TaskError with the current timestamp.
func NewTaskError(taskID, msg string, err error) *TaskError {
	return &TaskError{
		TaskID:    taskID,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("task %s: %s", e.TaskID, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// BlockedError reports that a mission can make no further progress because
// pending tasks depend, directly or transitively, on permanently failed
// tasks. This is surfaced instead of an infinite wait.
type BlockedError struct {
	BlockedTasks []string // IDs of the permanently blocked tasks
	FailedTasks  []string // IDs of the failed tasks blocking them
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	return fmt.Sprintf("mission permanently blocked: task(s) %s depend on failed task(s) %s",
		strings.Join(e.BlockedTasks, ", "), strings.Join(e.FailedTasks, ", "))
}

// TimeoutError reports that the mission deadline expired with work still
// pending.
type TimeoutError struct {
	Elapsed time.Duration // Mission wall-clock time at expiry
	Pending int           // Tasks still pending when the deadline hit
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("mission timed out after %s with %d task(s) pending", e.Elapsed.Round(time.Millisecond), e.Pending)
}

// Unwrap lets errors.Is match context.DeadlineExceeded.
func (e *TimeoutError) Unwrap() error {
	return context.DeadlineExceeded
}

// HaltedError reports that the quality gate halted the mission.
type HaltedError struct {
	Verdict string // The gate verdict that halted the mission
	Score   int    // The overall score at the halt
}

// Error implements the error interface.
func (e *HaltedError) Error() string {
	return fmt.Sprintf("mission halted by quality gate: verdict %s (score %d)", e.Verdict, e.Score)
}

// ErrNotInitialized is returned when the engine is used before Init.
var ErrNotInitialized = errors.New("engine not initialized")

// ErrOffline is returned when the engine has degraded to offline and will
// not admit new work.
var ErrOffline = errors.New("engine is offline due to sustained failures")

// IsBlocked checks if the error is or wraps a BlockedError.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}

// IsHalted checks if the error is or wraps a HaltedError.
func IsHalted(err error) bool {
	var he *HaltedError
	return errors.As(err, &he)
}
