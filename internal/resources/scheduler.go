// Package resources implements admission control for the execution engine:
// how many tasks may run concurrently and how much provider quota remains.
package resources

import (
	"fmt"
	"sync"
)

// State is a read-only snapshot of resource counters.
type State struct {
	ActiveTasks        int
	MaxConcurrentTasks int
	APIQuotaRemaining  int
	APIQuotaLimit      int
}

// Decision is the result of an admission check.
type Decision struct {
	Allowed bool
	Reason  string // Set when Allowed is false
}

// Recommendation is a soft backpressure signal, distinct from hard denial.
type Recommendation struct {
	ShouldPause bool
	Reason      string
}

// DefaultMaxConcurrentTasks bounds concurrent task executions when no limit
// is configured.
const DefaultMaxConcurrentTasks = 12

// DefaultAPIQuotaLimit bounds provider calls per mission when no limit is
// configured.
const DefaultAPIQuotaLimit = 1000

// pressureThreshold is the concurrency utilization above which the
// scheduler reports pressure.
const pressureThreshold = 0.8

// DefaultLowWaterFraction of the quota limit below which the scheduler
// recommends pausing new work.
const DefaultLowWaterFraction = 0.1

// Scheduler gates task admission against concurrency and quota limits.
// All methods are safe for concurrent use; counters are only mutated through
// TaskStarted/TaskFinished and the explicit setters.
type Scheduler struct {
	mu            sync.Mutex
	activeTasks   int
	maxConcurrent int
	quotaRemain   int
	quotaLimit    int
	lowWater      float64
}

// NewScheduler creates a Scheduler with the given limits. Non-positive
// values fall back to the defaults.
func NewScheduler(maxConcurrent, quotaLimit int) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTasks
	}
	if quotaLimit <= 0 {
		quotaLimit = DefaultAPIQuotaLimit
	}
	return &Scheduler{
		maxConcurrent: maxConcurrent,
		quotaRemain:   quotaLimit,
		quotaLimit:    quotaLimit,
		lowWater:      DefaultLowWaterFraction,
	}
}

// SetQuotaLowWater adjusts the fraction of the quota limit at which the
// scheduler starts recommending a pause. Values outside (0, 1) are ignored.
func (s *Scheduler) SetQuotaLowWater(fraction float64) {
	if fraction <= 0 || fraction >= 1 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lowWater = fraction
}

// CanExecute decides whether a new task may be admitted. Admission is
// denied when the concurrency ceiling is reached or quota is exhausted;
// these are recovered locally by deferring work, never surfaced as task
// errors.
func (s *Scheduler) CanExecute() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTasks >= s.maxConcurrent {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("concurrency limit reached (%d/%d active)", s.activeTasks, s.maxConcurrent),
		}
	}
	if s.quotaRemain <= 0 {
		return Decision{
			Allowed: false,
			Reason:  fmt.Sprintf("api quota exhausted (limit %d)", s.quotaLimit),
		}
	}
	return Decision{Allowed: true}
}

// Recommendation signals the orchestrator to stop pulling new work when
// remaining quota falls below the low-water mark. This fires before hard
// exhaustion so in-flight missions can wind down cleanly.
func (s *Scheduler) Recommendation() Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowWater := int(float64(s.quotaLimit) * s.lowWater)
	if s.quotaRemain <= lowWater {
		return Recommendation{
			ShouldPause: true,
			Reason:      fmt.Sprintf("api quota low (%d/%d remaining)", s.quotaRemain, s.quotaLimit),
		}
	}
	return Recommendation{}
}

// TaskStarted records a task dispatch: increments the active count and
// consumes one quota unit. Returns an error if admission would be violated;
// callers are expected to check CanExecute first, but the counters never go
// out of range either way.
func (s *Scheduler) TaskStarted() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTasks >= s.maxConcurrent {
		return fmt.Errorf("concurrency limit reached (%d/%d active)", s.activeTasks, s.maxConcurrent)
	}
	if s.quotaRemain <= 0 {
		return fmt.Errorf("api quota exhausted (limit %d)", s.quotaLimit)
	}

	s.activeTasks++
	s.quotaRemain--
	return nil
}

// TaskFinished records a task reaching a terminal state. Safe to call from
// concurrent completion callbacks.
func (s *Scheduler) TaskFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeTasks > 0 {
		s.activeTasks--
	}
}

// IsUnderPressure reports whether concurrency utilization exceeds the
// pressure threshold. Used by health checks.
func (s *Scheduler) IsUnderPressure() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxConcurrent == 0 {
		return false
	}
	return float64(s.activeTasks)/float64(s.maxConcurrent) > pressureThreshold
}

// State returns a snapshot of the resource counters.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		ActiveTasks:        s.activeTasks,
		MaxConcurrentTasks: s.maxConcurrent,
		APIQuotaRemaining:  s.quotaRemain,
		APIQuotaLimit:      s.quotaLimit,
	}
}

// ResetQuota restores the remaining quota to the configured limit.
func (s *Scheduler) ResetQuota() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.quotaRemain = s.quotaLimit
}

// ClearQueue zeroes the active task count. Intended for engine reset after
// all in-flight work has been abandoned.
func (s *Scheduler) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.activeTasks = 0
}

// SetMaxConcurrentTasks adjusts the concurrency ceiling. Values below 1 are
// clamped to 1. Already-running tasks are unaffected.
func (s *Scheduler) SetMaxConcurrentTasks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 {
		n = 1
	}
	s.maxConcurrent = n
}

// SetAPIQuotaLimit adjusts the quota limit, clamping remaining quota into
// the new range.
func (s *Scheduler) SetAPIQuotaLimit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 0 {
		n = 0
	}
	s.quotaLimit = n
	if s.quotaRemain > n {
		s.quotaRemain = n
	}
}
