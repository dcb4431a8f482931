package waves

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/harrison/dispatch/internal/models"
)

func task(id string, deps ...string) models.Task {
	return models.Task{ID: id, Description: "task " + id, Priority: models.PriorityMedium, Dependencies: deps}
}

func waveIDs(w Wave) []string {
	ids := make([]string, len(w.Tasks))
	for i, t := range w.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func TestDetectGroups_Diamond(t *testing.T) {
	groups, err := DetectGroups([]models.Task{
		task("A"),
		task("B", "A"),
		task("C", "A"),
		task("D", "B", "C"),
	})
	if err != nil {
		t.Fatalf("DetectGroups returned error: %v", err)
	}

	if len(groups) != 3 {
		t.Fatalf("got %d waves, want 3", len(groups))
	}
	if got := waveIDs(groups[0]); len(got) != 1 || got[0] != "A" {
		t.Errorf("wave 1 = %v, want [A]", got)
	}
	if got := waveIDs(groups[1]); len(got) != 2 || got[0] != "B" || got[1] != "C" {
		t.Errorf("wave 2 = %v, want [B C]", got)
	}
	if got := waveIDs(groups[2]); len(got) != 1 || got[0] != "D" {
		t.Errorf("wave 3 = %v, want [D]", got)
	}
}

func TestDetectGroups_IndependentTasksShareOneWave(t *testing.T) {
	groups, err := DetectGroups([]models.Task{task("a"), task("b"), task("c")})
	if err != nil {
		t.Fatalf("DetectGroups returned error: %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("got %d waves, want 1", len(groups))
	}
	if len(groups[0].Tasks) != 3 {
		t.Errorf("wave 1 has %d tasks, want 3", len(groups[0].Tasks))
	}
}

func TestDetectGroups_PriorityOrderWithinWave(t *testing.T) {
	a := task("zz")
	a.Priority = models.PriorityCritical
	b := task("aa") // medium

	groups, err := DetectGroups([]models.Task{b, a})
	if err != nil {
		t.Fatalf("DetectGroups returned error: %v", err)
	}
	got := waveIDs(groups[0])
	if got[0] != "zz" || got[1] != "aa" {
		t.Errorf("in-wave order = %v, want priority before ID", got)
	}
}

func TestDetectGroups_Errors(t *testing.T) {
	if _, err := DetectGroups([]models.Task{task("a", "ghost")}); err == nil {
		t.Error("expected error for unknown dependency")
	}
	if _, err := DetectGroups([]models.Task{task("a", "b"), task("b", "a")}); err == nil {
		t.Error("expected error for cycle")
	}
	if _, err := DetectGroups([]models.Task{task("a"), task("a")}); err == nil {
		t.Error("expected error for duplicate id")
	}

	groups, err := DetectGroups(nil)
	if err != nil {
		t.Fatalf("empty input returned error: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("empty input produced %d waves, want 0", len(groups))
	}
}

func TestEstimateDuration(t *testing.T) {
	groups := []Wave{
		{Tasks: []models.Task{task("a"), task("b")}},
		{Tasks: []models.Task{task("c")}},
	}
	perTask := map[string]time.Duration{
		"a": 3 * time.Second,
		"b": 5 * time.Second,
		"c": 2 * time.Second,
	}

	// Concurrent wave contributes its max (5s), not the sum (8s).
	got := EstimateDuration(groups, perTask, time.Second)
	if want := 7 * time.Second; got != want {
		t.Errorf("EstimateDuration = %v, want %v", got, want)
	}

	// Unknown tasks fall back to the default duration.
	got = EstimateDuration(groups, nil, 10*time.Second)
	if want := 20 * time.Second; got != want {
		t.Errorf("EstimateDuration with defaults = %v, want %v", got, want)
	}
}

type recordingRunner struct {
	mu      sync.Mutex
	order   []string
	failIDs map[string]bool
}

func (r *recordingRunner) Run(_ context.Context, task models.Task) (models.TaskResult, error) {
	r.mu.Lock()
	r.order = append(r.order, task.ID)
	r.mu.Unlock()

	if r.failIDs[task.ID] {
		return models.TaskResult{Task: task}, fmt.Errorf("task %s boom", task.ID)
	}
	return models.TaskResult{Task: task, Success: true, Output: "done"}, nil
}

func TestExecuteGroups_WaveBoundaryIsJoinPoint(t *testing.T) {
	wave1Done := make(chan struct{})
	var wave1Seen int
	var mu sync.Mutex

	runner := RunnerFunc(func(_ context.Context, task models.Task) (models.TaskResult, error) {
		if task.ID == "a" || task.ID == "b" {
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			wave1Seen++
			if wave1Seen == 2 {
				close(wave1Done)
			}
			mu.Unlock()
		} else {
			select {
			case <-wave1Done:
			default:
				return models.TaskResult{Task: task}, fmt.Errorf("task %s started before wave 1 finished", task.ID)
			}
		}
		return models.TaskResult{Task: task, Success: true}, nil
	})

	groups := []Wave{
		{Name: "Wave 1", Tasks: []models.Task{task("a"), task("b")}},
		{Name: "Wave 2", Tasks: []models.Task{task("c", "a", "b")}},
	}

	results, err := ExecuteGroups(context.Background(), groups, runner, 4)
	if err != nil {
		t.Fatalf("ExecuteGroups returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for _, result := range results {
		if !result.Success {
			t.Errorf("task %s failed: %v", result.Task.ID, result.Error)
		}
	}
}

func TestExecuteGroups_FailureDoesNotCancelSiblings(t *testing.T) {
	runner := &recordingRunner{failIDs: map[string]bool{"b": true}}
	groups := []Wave{
		{Tasks: []models.Task{task("a"), task("b"), task("c")}},
		{Tasks: []models.Task{task("d")}},
	}

	results, err := ExecuteGroups(context.Background(), groups, runner, 1)
	if err != nil {
		t.Fatalf("ExecuteGroups returned error: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("got %d results, want 4 (later waves still run)", len(results))
	}

	byID := make(map[string]models.TaskResult)
	for _, result := range results {
		byID[result.Task.ID] = result
	}
	if byID["b"].Success {
		t.Error("task b should have failed")
	}
	if byID["b"].Error == nil {
		t.Error("failed result must carry its error")
	}
	if !byID["a"].Success || !byID["c"].Success || !byID["d"].Success {
		t.Error("sibling and subsequent tasks must still succeed")
	}
}

func TestExecuteGroups_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &recordingRunner{}
	groups := []Wave{{Tasks: []models.Task{task("a")}}}

	_, err := ExecuteGroups(ctx, groups, runner, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(runner.order) != 0 {
		t.Errorf("no tasks should run after cancellation, got %v", runner.order)
	}
}

func TestExecuteGroups_NilRunner(t *testing.T) {
	if _, err := ExecuteGroups(context.Background(), nil, nil, 0); err == nil {
		t.Error("expected error for nil runner")
	}
}
