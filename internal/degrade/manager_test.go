package degrade

import "testing"

func fail(m *Manager, n int) {
	for i := 0; i < n; i++ {
		m.ReportFailure()
	}
}

func succeed(m *Manager, n int) {
	for i := 0; i < n; i++ {
		m.ReportSuccess()
	}
}

func TestManager_StartsAtFull(t *testing.T) {
	m := NewManager(DefaultThresholds())

	if m.IsDegraded() {
		t.Error("new manager should not be degraded")
	}
	if m.IsOffline() {
		t.Error("new manager should not be offline")
	}
	if got := m.Status().Level; got != LevelFull {
		t.Errorf("Level = %s, want full", got)
	}
}

func TestManager_StepsDownOnFailures(t *testing.T) {
	m := NewManager(Thresholds{FailuresPerStep: 3, SuccessesPerRecovery: 5})

	fail(m, 2)
	if m.IsDegraded() {
		t.Fatal("below threshold should not degrade")
	}

	m.ReportFailure()
	if got := m.Status().Level; got != LevelReduced {
		t.Fatalf("after 3 failures Level = %s, want reduced", got)
	}

	fail(m, 3)
	if got := m.Status().Level; got != LevelMinimal {
		t.Fatalf("after 6 failures Level = %s, want minimal", got)
	}

	fail(m, 3)
	if got := m.Status().Level; got != LevelOffline {
		t.Fatalf("after 9 failures Level = %s, want offline", got)
	}
	if !m.IsOffline() {
		t.Error("IsOffline should be true at terminal level")
	}

	// Offline is terminal: further failures do not move the level.
	fail(m, 10)
	if got := m.Status().Level; got != LevelOffline {
		t.Errorf("Level after extra failures = %s, want offline", got)
	}
}

func TestManager_RecoversOneNotchPerEvaluation(t *testing.T) {
	m := NewManager(Thresholds{FailuresPerStep: 1, SuccessesPerRecovery: 3})

	fail(m, 2) // full -> reduced -> minimal
	if got := m.Status().Level; got != LevelMinimal {
		t.Fatalf("Level = %s, want minimal", got)
	}

	succeed(m, 3)
	if got := m.Status().Level; got != LevelReduced {
		t.Fatalf("after 3 successes Level = %s, want reduced (one notch only)", got)
	}

	succeed(m, 3)
	if got := m.Status().Level; got != LevelFull {
		t.Fatalf("after 6 successes Level = %s, want full", got)
	}
	if m.IsDegraded() {
		t.Error("recovered manager should not be degraded")
	}
}

func TestManager_FailureResetsSuccessStreak(t *testing.T) {
	m := NewManager(Thresholds{FailuresPerStep: 1, SuccessesPerRecovery: 3})

	m.ReportFailure() // -> reduced
	succeed(m, 2)
	m.ReportFailure() // streak broken, -> minimal
	succeed(m, 2)

	if got := m.Status().Level; got != LevelMinimal {
		t.Errorf("Level = %s, want minimal (streak must restart after failure)", got)
	}
}

func TestManager_Reset(t *testing.T) {
	m := NewManager(DefaultThresholds())
	fail(m, 9)

	m.Reset()

	status := m.Status()
	if status.Level != LevelFull {
		t.Errorf("Level after Reset = %s, want full", status.Level)
	}
	if status.FailureCount != 0 || status.RecoveryAttempts != 0 {
		t.Errorf("counters after Reset = %+v, want zeroes", status)
	}
}

func TestManager_ZeroThresholdsFallBackToDefaults(t *testing.T) {
	m := NewManager(Thresholds{})

	fail(m, DefaultThresholds().FailuresPerStep)
	if got := m.Status().Level; got != LevelReduced {
		t.Errorf("Level = %s, want reduced with default thresholds", got)
	}
}

func TestLevelString(t *testing.T) {
	want := map[Level]string{
		LevelFull:    "full",
		LevelReduced: "reduced",
		LevelMinimal: "minimal",
		LevelOffline: "offline",
	}
	for level, s := range want {
		if level.String() != s {
			t.Errorf("Level(%d).String() = %s, want %s", level, level.String(), s)
		}
	}
}
