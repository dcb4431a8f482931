package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harrison/dispatch/internal/checkpoint"
	"github.com/harrison/dispatch/internal/degrade"
	"github.com/harrison/dispatch/internal/models"
	"github.com/harrison/dispatch/internal/profiler"
	"github.com/harrison/dispatch/internal/retry"
	"github.com/harrison/dispatch/internal/waves"
)

// RunMission executes a plan to completion. Tasks are pulled from the
// queue in dependency-respecting priority order and dispatched through the
// runner, in concurrent batches when parallelism is enabled. Failed tasks
// are classified and requeued with backoff until their class's retry budget
// is exhausted.
//
// RunMission returns the mission result together with an error when the
// mission could not finish: context cancellation, the engine going offline,
// a quality-gate halt, or pending tasks permanently blocked behind failed
// dependencies. Admission throttling is not an error; throttled tasks stay
// pending and are visible in the returned result.
func (e *Engine) RunMission(ctx context.Context, plan *models.Plan, runner waves.Runner) (*models.MissionResult, error) {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return nil, ErrNotInitialized
	}
	e.missionID = newMissionID()
	e.gate.Reset()
	missionID := e.missionID
	e.mu.Unlock()

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}

	start := time.Now()
	e.log.Infof("Mission %s: %d task(s)", missionID, len(plan.Tasks))

	e.queue.Clear()
	result := &models.MissionResult{TotalTasks: len(plan.Tasks)}
	for _, task := range plan.Tasks {
		if e.resumeCompleted(task.ID) {
			e.queue.Complete(task.ID)
			result.Completed++
			e.log.Infof("Task %s: already complete, skipping", task.ID)
			continue
		}
		e.queue.Add(task)
	}

	failed := make(map[string]bool)
	waveNum := 0

	for !e.queue.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return e.finish(result, start), e.deadlineErr(err, start)
		}
		if e.cfg.Features.Degradation && e.degradation.IsOffline() {
			return e.finish(result, start), ErrOffline
		}

		if decision := e.scheduler.CanExecute(); !decision.Allowed {
			// Hard throttle. With no in-flight work this cannot clear on its
			// own, so stop pulling; remaining tasks stay pending.
			e.log.Warnf("Mission %s paused: %s", missionID, decision.Reason)
			return e.finish(result, start), nil
		}
		if rec := e.scheduler.Recommendation(); rec.ShouldPause {
			e.log.Warnf("Mission %s: %s", missionID, rec.Reason)
		}

		batch := e.nextBatch()
		if len(batch) == 0 {
			blocked, failedDeps := blockedBehindFailures(e.queue.Pending(), failed, e.queue.CompletedSet())
			if len(blocked) > 0 {
				return e.finish(result, start), &BlockedError{BlockedTasks: blocked, FailedTasks: failedDeps}
			}
			// Pending but neither ready nor blocked cannot happen with a
			// validated plan; stop rather than spin.
			return e.finish(result, start), fmt.Errorf("no ready task among %d pending", e.queue.Size())
		}

		waveNum++
		waveName := fmt.Sprintf("Wave %d", waveNum)
		e.log.LogWaveStart(waveName, len(batch))
		waveStart := time.Now()

		results, err := waves.ExecuteGroups(ctx, []waves.Wave{{Name: waveName, Tasks: batch}}, e.dispatchRunner(runner), 0)
		retryDelay := e.settleResults(results, result, failed)
		e.log.LogWaveComplete(waveName, time.Since(waveStart))

		if err != nil {
			return e.finish(result, start), e.deadlineErr(err, start)
		}

		if halt := e.scorePhase(results); halt != nil {
			return e.finish(result, start), halt
		}

		if retryDelay > 0 && !e.queue.IsEmpty() {
			e.log.Debugf("backing off %v before retrying", retryDelay)
			if err := sleepCtx(ctx, retryDelay); err != nil {
				return e.finish(result, start), e.deadlineErr(err, start)
			}
		}
	}

	// Checkpoints are only discarded once the whole mission has finished;
	// until then they are what resume is built from.
	if result.Failed == 0 {
		for _, task := range plan.Tasks {
			e.pruneCheckpoints(task.ID)
		}
	}
	return e.finish(result, start), nil
}

// nextBatch pulls up to the current concurrency allowance of ready tasks
// from the queue. The allowance shrinks with degradation level and is
// bounded by remaining quota so the per-task admission bookkeeping cannot
// fail mid-wave.
func (e *Engine) nextBatch() []models.Task {
	allowance := e.concurrencyAllowance()
	if remaining := e.scheduler.State().APIQuotaRemaining; remaining < allowance {
		allowance = remaining
	}

	var batch []models.Task
	for len(batch) < allowance {
		task, ok := e.queue.Next()
		if !ok {
			break
		}
		batch = append(batch, task)
	}
	return batch
}

// concurrencyAllowance maps capability level onto batch width: full uses
// the configured ceiling, reduced halves it, minimal serializes. Parallelism
// disabled also serializes.
func (e *Engine) concurrencyAllowance() int {
	ceiling := e.cfg.MaxConcurrentTasks
	if !e.cfg.Features.Parallelism {
		return 1
	}
	if !e.cfg.Features.Degradation {
		return ceiling
	}

	switch e.degradation.Status().Level {
	case degrade.LevelFull:
		return ceiling
	case degrade.LevelReduced:
		if ceiling/2 < 1 {
			return 1
		}
		return ceiling / 2
	case degrade.LevelMinimal:
		return 1
	default:
		return 0
	}
}

// errDeferred marks a task that was bounced at dispatch-time admission. It
// goes back to the queue without counting as a failure.
var errDeferred = errors.New("deferred: admission denied")

// dispatchRunner wraps the caller's runner with admission accounting and
// template expansion. An admission failure at dispatch time defers the task
// back to the queue instead of failing it.
func (e *Engine) dispatchRunner(runner waves.Runner) waves.Runner {
	return waves.RunnerFunc(func(ctx context.Context, task models.Task) (models.TaskResult, error) {
		if err := e.scheduler.TaskStarted(); err != nil {
			e.log.Warnf("Task %s deferred: %v", task.ID, err)
			return models.TaskResult{Task: task}, errDeferred
		}
		defer e.scheduler.TaskFinished()

		task.Description = e.expandTemplate(task.Description, task.ID, task.Agent, task.Model)
		e.log.LogTaskStart(task)
		return runner.Run(ctx, task)
	})
}

// settleResults applies one wave's outcomes to all subsystems and returns
// the longest backoff delay owed to requeued tasks.
func (e *Engine) settleResults(results []models.TaskResult, mission *models.MissionResult, failed map[string]bool) time.Duration {
	var delay time.Duration

	for _, res := range results {
		task := res.Task
		if res.Success {
			e.queue.Complete(task.ID)
			mission.Completed++
			e.recordSample(task, true, res.Duration)
			if e.cfg.Features.Degradation {
				e.degradation.ReportSuccess()
			}
			e.saveCompletionCheckpoint(task.ID, res.Output)
			e.log.LogTaskComplete(res)
			continue
		}
		if errors.Is(res.Error, errDeferred) {
			e.queue.Add(task)
			continue
		}

		class := retry.Classify(res.Error)
		requeue := e.cfg.Features.Retry && retry.ShouldRetry(class, task.RetryCount+1)
		e.queue.Fail(&task, requeue)
		res.Task = task

		e.recordSample(task, false, res.Duration)
		if e.cfg.Features.Degradation {
			e.degradation.ReportFailure()
		}
		e.saveFailureCheckpoint(task.ID, res.Output)
		e.log.LogTaskFail(res)

		if requeue {
			if d := retry.Delay(retry.ConfigFor(class), task.RetryCount-1); d > delay {
				delay = d
			}
		} else {
			failed[task.ID] = true
			res.Error = NewTaskError(task.ID,
				fmt.Sprintf("giving up after %d attempt(s), %s error", task.RetryCount, class), res.Error)
			mission.Failed++
			mission.FailedTasks = append(mission.FailedTasks, res)
			e.log.Errorf("Task %s: %v", task.ID, res.Error)
		}
	}

	return delay
}

// scorePhase feeds the wave's results through the configured phase scorer
// and the quality gate. Returns a HaltedError when the gate stops the
// mission.
func (e *Engine) scorePhase(results []models.TaskResult) error {
	if e.opts.PhaseScorer == nil || len(results) == 0 {
		return nil
	}
	pv := e.opts.PhaseScorer(results)
	if pv == nil {
		return nil
	}

	e.gate.RecordPhase(*pv)
	verdict := e.gate.GenerateVerdict()
	if !e.gate.ShouldContinue(verdict.OverallVerdict) {
		e.log.Errorf("Quality gate halted mission: %s (score %d)", verdict.OverallVerdict, verdict.OverallScore)
		return &HaltedError{Verdict: string(verdict.OverallVerdict), Score: verdict.OverallScore}
	}
	return nil
}

// recordSample feeds the profiler when profiling is enabled.
func (e *Engine) recordSample(task models.Task, success bool, duration time.Duration) {
	if !e.cfg.Features.Profiling {
		return
	}
	e.profile.Record(profiler.Sample{
		TaskID:   task.ID,
		Agent:    task.Agent,
		Model:    task.Model,
		Success:  success,
		Duration: duration,
	})
}

// resumeCompleted reports whether a task's latest checkpoint says it already
// finished in a previous run.
func (e *Engine) resumeCompleted(taskID string) bool {
	if e.checkpoints == nil {
		return false
	}
	var partial checkpoint.PartialResult
	ok, err := e.checkpoints.LoadLatestInto(taskID, &partial)
	if err != nil {
		e.log.Debugf("load checkpoint for %s: %v", taskID, err)
		return false
	}
	return ok && partial.Done()
}

// saveCompletionCheckpoint records that a task finished, so a mission
// interrupted before its cleanup pass resumes without re-running the task.
// Best effort.
func (e *Engine) saveCompletionCheckpoint(taskID, output string) {
	if e.checkpoints == nil {
		return
	}
	partial := checkpoint.PartialResult{TaskID: taskID, LastStep: 0, StepCount: 1, Output: output}
	if _, err := e.checkpoints.Save(taskID, partial); err != nil {
		e.log.Debugf("save checkpoint for %s: %v", taskID, err)
	}
}

// saveFailureCheckpoint persists partial output from a failed attempt so a
// retry can pick up from it. LastStep -1 marks unknown progress. Best effort.
func (e *Engine) saveFailureCheckpoint(taskID, output string) {
	if e.checkpoints == nil || output == "" {
		return
	}
	partial := checkpoint.PartialResult{TaskID: taskID, LastStep: -1, Output: output}
	if _, err := e.checkpoints.Save(taskID, partial); err != nil {
		e.log.Debugf("save checkpoint for %s: %v", taskID, err)
	}
}

// deadlineErr turns a deadline expiry into a TimeoutError carrying the
// pending-work count; other context errors pass through unchanged.
func (e *Engine) deadlineErr(err error, start time.Time) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Elapsed: time.Since(start), Pending: e.queue.Size()}
	}
	return err
}

// finish stamps the mission duration and logs the summary.
func (e *Engine) finish(result *models.MissionResult, start time.Time) *models.MissionResult {
	result.Duration = time.Since(start)
	e.log.LogSummary(*result)
	return result
}

// blockedBehindFailures returns the pending tasks that can never become
// ready because a dependency, directly or transitively, failed permanently.
// Dependencies that are neither pending, completed nor failed count as
// unsatisfiable too.
func blockedBehindFailures(pending []models.Task, failed, completed map[string]bool) (blocked, failedDeps []string) {
	pendingSet := make(map[string]bool, len(pending))
	for _, task := range pending {
		pendingSet[task.ID] = true
	}

	doomed := make(map[string]bool)
	blame := make(map[string]bool)

	// Fixpoint over the pending set: doom propagates along dependency edges.
	for changed := true; changed; {
		changed = false
		for _, task := range pending {
			if doomed[task.ID] {
				continue
			}
			for _, dep := range task.Dependencies {
				unsatisfiable := failed[dep] || doomed[dep] ||
					(!completed[dep] && !pendingSet[dep])
				if unsatisfiable {
					doomed[task.ID] = true
					if failed[dep] {
						blame[dep] = true
					}
					changed = true
					break
				}
			}
		}
	}

	for _, task := range pending {
		if doomed[task.ID] {
			blocked = append(blocked, task.ID)
		}
	}
	for id := range failed {
		if blame[id] {
			failedDeps = append(failedDeps, id)
		}
	}
	return blocked, failedDeps
}

// sleepCtx waits for the duration or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
