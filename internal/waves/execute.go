package waves

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/harrison/dispatch/internal/models"
)

// Runner executes a single ready task. Results are produced by an external
// collaborator (typically an LLM call); the engine only sees the outcome.
type Runner interface {
	Run(ctx context.Context, task models.Task) (models.TaskResult, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, task models.Task) (models.TaskResult, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, task models.Task) (models.TaskResult, error) {
	return f(ctx, task)
}

// ExecuteGroups runs each wave's tasks concurrently, bounded by
// maxConcurrency (0 means one goroutine per task). The wave boundary is a
// join point: the next wave starts only after every task in the current
// wave has reached a terminal state. Per-task failures are recorded in
// their results and do not cancel sibling tasks; only context cancellation
// stops execution early, returning the results collected so far.
func ExecuteGroups(ctx context.Context, groups []Wave, runner Runner, maxConcurrency int) ([]models.TaskResult, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}

	var all []models.TaskResult
	for _, wave := range groups {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		results := executeWave(ctx, wave, runner, maxConcurrency)
		all = append(all, results...)
	}

	return all, ctx.Err()
}

func executeWave(ctx context.Context, wave Wave, runner Runner, maxConcurrency int) []models.TaskResult {
	var mu sync.Mutex
	results := make(map[string]models.TaskResult, len(wave.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}

	for _, task := range wave.Tasks {
		task := task
		g.Go(func() error {
			start := time.Now()
			result, err := runner.Run(gctx, task)

			if result.Task.ID == "" {
				result.Task = task
			}
			if result.Duration == 0 {
				result.Duration = time.Since(start)
			}
			if err != nil {
				result.Success = false
				if result.Error == nil {
					result.Error = err
				}
			}

			mu.Lock()
			results[task.ID] = result
			mu.Unlock()

			// Task failures are recorded per task, not propagated, so one
			// failing task does not cancel the rest of the wave.
			return nil
		})
	}
	g.Wait()

	// Return results in wave order.
	ordered := make([]models.TaskResult, 0, len(wave.Tasks))
	for _, task := range wave.Tasks {
		if result, ok := results[task.ID]; ok {
			ordered = append(ordered, result)
		}
	}
	return ordered
}
