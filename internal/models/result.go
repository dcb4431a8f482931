package models

import "time"

// TaskResult captures the outcome of a single task execution attempt.
type TaskResult struct {
	Task     Task          // The task that was executed
	Success  bool          // Whether the attempt succeeded
	Output   string        // Runner output (may be partial on failure)
	Error    error         // Execution error, if any
	Duration time.Duration // Wall-clock time of the attempt
}

// MissionResult aggregates task results for a full mission run.
type MissionResult struct {
	TotalTasks  int           // Total number of tasks in the plan
	Completed   int           // Tasks that reached completed status
	Failed      int           // Tasks that exhausted retries
	Duration    time.Duration // Total mission wall-clock time
	FailedTasks []TaskResult  // Results for the failed tasks
}

// AllCompleted returns true if every task in the mission completed.
func (r *MissionResult) AllCompleted() bool {
	return r.TotalTasks > 0 && r.Completed == r.TotalTasks
}
