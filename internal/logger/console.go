// Package logger provides logging implementations for dispatch execution.
//
// The logger offers structured logging of mission progress at the task,
// wave and summary levels. Implementations are thread-safe.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/dispatch/internal/models"
)

// Log level constants for filtering.
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs execution progress to a writer with timestamps and
// thread safety. All output is prefixed with [HH:MM:SS] timestamps. Color
// output is enabled automatically when the writer is a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided
// io.Writer. If writer is nil, messages are silently discarded. logLevel
// determines the minimum level output; valid levels are trace, debug,
// info, warn, error (case-insensitive); empty or invalid defaults to info.
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// Tracef logs at trace level.
func (l *ConsoleLogger) Tracef(format string, args ...interface{}) {
	l.logf(levelTrace, nil, format, args...)
}

// Debugf logs at debug level.
func (l *ConsoleLogger) Debugf(format string, args ...interface{}) {
	l.logf(levelDebug, nil, format, args...)
}

// Infof logs at info level.
func (l *ConsoleLogger) Infof(format string, args ...interface{}) {
	l.logf(levelInfo, nil, format, args...)
}

// Warnf logs at warn level.
func (l *ConsoleLogger) Warnf(format string, args ...interface{}) {
	l.logf(levelWarn, color.New(color.FgYellow), format, args...)
}

// Errorf logs at error level.
func (l *ConsoleLogger) Errorf(format string, args ...interface{}) {
	l.logf(levelError, color.New(color.FgRed), format, args...)
}

// LogTaskStart logs the beginning of a task execution.
func (l *ConsoleLogger) LogTaskStart(task models.Task) {
	l.logf(levelInfo, nil, "Task %s [%s]: started", task.ID, task.Priority)
}

// LogTaskComplete logs a successful task result.
func (l *ConsoleLogger) LogTaskComplete(result models.TaskResult) {
	l.logf(levelInfo, color.New(color.FgGreen), "Task %s: completed in %v",
		result.Task.ID, result.Duration.Round(time.Millisecond))
}

// LogTaskFail logs a failed task result with its retry count.
func (l *ConsoleLogger) LogTaskFail(result models.TaskResult) {
	l.logf(levelWarn, color.New(color.FgRed), "Task %s: failed (retry %d): %v",
		result.Task.ID, result.Task.RetryCount, result.Error)
}

// LogWaveStart logs the beginning of a wave.
func (l *ConsoleLogger) LogWaveStart(name string, taskCount int) {
	l.logf(levelInfo, color.New(color.Bold), "%s: %d task(s)", name, taskCount)
}

// LogWaveComplete logs the end of a wave.
func (l *ConsoleLogger) LogWaveComplete(name string, duration time.Duration) {
	l.logf(levelInfo, nil, "%s: completed in %v", name, duration.Round(time.Millisecond))
}

// LogSummary logs the mission result.
func (l *ConsoleLogger) LogSummary(result models.MissionResult) {
	c := color.New(color.FgGreen)
	if result.Failed > 0 {
		c = color.New(color.FgYellow)
	}
	l.logf(levelInfo, c, "Mission: %d/%d completed, %d failed, took %v",
		result.Completed, result.TotalTasks, result.Failed, result.Duration.Round(time.Millisecond))
}

func (l *ConsoleLogger) logf(level int, c *color.Color, format string, args ...interface{}) {
	if l == nil || l.writer == nil {
		return
	}
	if level < parseLogLevel(l.logLevel) {
		return
	}

	message := fmt.Sprintf(format, args...)
	if l.colorOutput && c != nil {
		message = c.Sprint(message)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	fmt.Fprintf(l.writer, "[%s] %s\n", time.Now().Format("15:04:05"), message)
}

func normalizeLogLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(level))
	default:
		return "info"
	}
}

func parseLogLevel(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

// isTerminal reports whether the writer is a TTY that supports color.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
