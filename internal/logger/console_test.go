package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harrison/dispatch/internal/models"
)

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "warn")

	l.Debugf("hidden debug")
	l.Infof("hidden info")
	l.Warnf("visible warn")
	l.Errorf("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below warn leaked: %q", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("warn/error messages missing: %q", out)
	}
}

func TestConsoleLogger_TimestampPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "info")

	l.Infof("hello")

	line := buf.String()
	if len(line) < 11 || line[0] != '[' || line[9] != ']' {
		t.Errorf("expected [HH:MM:SS] prefix, got %q", line)
	}
}

func TestConsoleLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "verbose")

	l.Debugf("hidden")
	l.Infof("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug should be filtered at default level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("info should pass at default level: %q", out)
	}
}

func TestConsoleLogger_NilWriterDiscards(t *testing.T) {
	l := NewConsoleLogger(nil, "info")
	// Must not panic.
	l.Infof("into the void")
	l.LogTaskStart(models.Task{ID: "1"})
}

func TestConsoleLogger_NilReceiverDiscards(t *testing.T) {
	var l *ConsoleLogger
	l.Infof("into the void")
}

func TestConsoleLogger_EventMethods(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleLogger(&buf, "info")

	task := models.Task{ID: "7", Priority: models.PriorityHigh}
	l.LogTaskStart(task)
	l.LogTaskComplete(models.TaskResult{Task: task, Success: true, Duration: 1200 * time.Millisecond})
	task.RetryCount = 2
	l.LogTaskFail(models.TaskResult{Task: task, Error: errors.New("boom")})
	l.LogWaveStart("Wave 1", 3)
	l.LogWaveComplete("Wave 1", 5*time.Second)
	l.LogSummary(models.MissionResult{TotalTasks: 3, Completed: 2, Failed: 1, Duration: 6 * time.Second})

	out := buf.String()
	for _, want := range []string{"Task 7", "started", "completed", "failed (retry 2)", "Wave 1: 3 task(s)", "Mission: 2/3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
