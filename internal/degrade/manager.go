// Package degrade implements the graceful degradation state machine that
// narrows engine capability under sustained failure and recovers it after
// sustained success.
package degrade

import "sync"

// Level is a discrete capability tier. Levels are ordered from full
// capability down to offline.
type Level int

const (
	LevelFull Level = iota
	LevelReduced
	LevelMinimal
	LevelOffline
)

// String returns the string representation of a Level.
func (l Level) String() string {
	switch l {
	case LevelFull:
		return "full"
	case LevelReduced:
		return "reduced"
	case LevelMinimal:
		return "minimal"
	case LevelOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Status is a read-only snapshot of the manager's state.
type Status struct {
	Level            Level
	FailureCount     int
	RecoveryAttempts int
}

// Thresholds tunes the transition rules. The directional semantics are
// fixed (failures step the level down, sustained success steps it up);
// the counts are configuration.
type Thresholds struct {
	// FailuresPerStep is how many failures at the current level trigger a
	// one-notch step down.
	FailuresPerStep int
	// SuccessesPerRecovery is how many consecutive successes trigger a
	// one-notch step up.
	SuccessesPerRecovery int
}

// DefaultThresholds returns the stock transition thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		FailuresPerStep:      3,
		SuccessesPerRecovery: 5,
	}
}

// Manager tracks failure/success reports and maps them onto capability
// levels. Transitions move at most one level per evaluation to avoid
// oscillation. All methods are safe for concurrent use.
type Manager struct {
	mu         sync.Mutex
	level      Level
	failures   int // failures since the last level change
	successes  int // consecutive successes since the last failure
	recoveries int // total step-up evaluations performed
	thresholds Thresholds
}

// NewManager creates a Manager at full capability.
func NewManager(t Thresholds) *Manager {
	if t.FailuresPerStep <= 0 {
		t.FailuresPerStep = DefaultThresholds().FailuresPerStep
	}
	if t.SuccessesPerRecovery <= 0 {
		t.SuccessesPerRecovery = DefaultThresholds().SuccessesPerRecovery
	}
	return &Manager{thresholds: t}
}

// ReportFailure records a task failure. Crossing the failure threshold
// steps the level down one notch and restarts the count for the next step.
func (m *Manager) ReportFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successes = 0
	m.failures++

	if m.failures >= m.thresholds.FailuresPerStep && m.level < LevelOffline {
		m.level++
		m.failures = 0
	}
}

// ReportSuccess records a task success. After the configured number of
// consecutive successes the level steps back up one notch; never more than
// one level per evaluation.
func (m *Manager) ReportSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.successes++

	if m.successes >= m.thresholds.SuccessesPerRecovery && m.level > LevelFull {
		m.level--
		m.recoveries++
		m.successes = 0
		m.failures = 0
	}
}

// IsDegraded reports whether the engine is below full capability.
func (m *Manager) IsDegraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.level > LevelFull
}

// IsOffline reports whether the engine has reached the terminal level.
func (m *Manager) IsOffline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.level == LevelOffline
}

// Status returns a snapshot of the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Level:            m.level,
		FailureCount:     m.failures,
		RecoveryAttempts: m.recoveries,
	}
}

// Reset returns the manager to full capability and zeroes all counters.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.level = LevelFull
	m.failures = 0
	m.successes = 0
	m.recoveries = 0
}
