// Package queue implements the dependency-aware priority queue that orders
// ready work for the execution engine.
//
// A task is "ready" when every ID in its dependency set is present in the
// queue's completed-set. The queue never returns a task with unmet
// dependencies, regardless of its priority. Among ready tasks ordering is by
// priority tier (critical > high > medium > low) with strict FIFO by
// insertion sequence as the tie-break within a tier.
package queue

import (
	"sync"

	"github.com/harrison/dispatch/internal/models"
)

// Stats is a read-only snapshot of queue state.
type Stats struct {
	Pending    int                     // Tasks waiting to be dispatched
	Completed  int                     // Size of the completed-set
	Ready      int                     // Pending tasks whose dependencies are satisfied
	Blocked    int                     // Pending tasks with unmet dependencies
	ByPriority map[models.Priority]int // Pending counts per tier
}

type item struct {
	task models.Task
	seq  uint64 // insertion sequence, FIFO tie-break within a tier
}

// Queue is a dependency-aware priority queue. All methods are safe for
// concurrent use; the completed-set is owned by the queue and only mutated
// through Complete and Clear.
type Queue struct {
	mu        sync.Mutex
	items     []item
	completed map[string]bool
	nextSeq   uint64
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		completed: make(map[string]bool),
	}
}

// Add inserts a task into the pending set. Tasks without an assigned
// priority keep their zero value (low); callers normally normalize through
// models.NormalizeTask first, which classifies unset priorities.
func (q *Queue) Add(task models.Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	task.Status = models.StatusPending
	q.items = append(q.items, item{task: task, seq: q.nextSeq})
	q.nextSeq++
}

// Peek returns the highest-priority ready task without removing it.
// The second return value is false when no pending task is ready.
func (q *Queue) Peek() (models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	idx := q.bestReady(q.completed)
	if idx < 0 {
		return models.Task{}, false
	}
	return q.items[idx].task, true
}

// Next removes and returns the highest-priority ready task. The second
// return value is false when the queue is empty or every pending task has
// unmet dependencies; callers distinguish the two via Size/IsEmpty.
func (q *Queue) Next() (models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.popReady(q.completed)
}

// NextWithCompleted behaves like Next but evaluates readiness against the
// provided completed-set instead of the queue's own. Used when resuming a
// mission from checkpointed completion state that has not yet been replayed
// into the queue.
func (q *Queue) NextWithCompleted(completed map[string]bool) (models.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.popReady(completed)
}

// Complete records a task ID in the completed-set, unblocking dependents.
func (q *Queue) Complete(taskID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.completed[taskID] = true
}

// IsCompleted reports whether a task ID is in the completed-set.
func (q *Queue) IsCompleted(taskID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.completed[taskID]
}

// Fail records a failed attempt on the task. The retry count is incremented
// and retry-count thresholds demote the task's priority so a perpetually
// failing task cannot starve other ready work: at 2 retries the task drops
// to medium (if currently higher), at 3 it drops to low. When requeue is
// true the task re-enters the pending set at the back of its (possibly
// demoted) tier; otherwise it is marked failed.
func (q *Queue) Fail(task *models.Task, requeue bool) {
	task.RetryCount++

	switch {
	case task.RetryCount >= 3:
		task.Priority = models.PriorityLow
	case task.RetryCount >= 2:
		if task.Priority > models.PriorityMedium {
			task.Priority = models.PriorityMedium
		}
	}

	if requeue {
		q.Add(*task)
		task.Status = models.StatusPending
		return
	}
	task.Status = models.StatusFailed
}

// AllExecutable returns up to maxCount ready tasks ordered by descending
// priority (FIFO within a tier) without mutating queue state.
func (q *Queue) AllExecutable(maxCount int) []models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if maxCount <= 0 {
		return nil
	}

	var ready []item
	for _, it := range q.items {
		if q.depsSatisfied(it.task, q.completed) {
			ready = append(ready, it)
		}
	}

	// Selection by repeated best-pick keeps the comparison logic in one place.
	var out []models.Task
	picked := make(map[uint64]bool)
	for len(out) < maxCount && len(out) < len(ready) {
		best := -1
		for i, it := range ready {
			if picked[it.seq] {
				continue
			}
			if best < 0 || less(ready[best], it) {
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked[ready[best].seq] = true
		out = append(out, ready[best].task)
	}

	return out
}

// Pending returns a snapshot of all pending tasks in insertion order.
func (q *Queue) Pending() []models.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]models.Task, len(q.items))
	for i, it := range q.items {
		out[i] = it.task
	}
	return out
}

// CompletedSet returns a copy of the completed-set.
func (q *Queue) CompletedSet() map[string]bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make(map[string]bool, len(q.completed))
	for id := range q.completed {
		out[id] = true
	}
	return out
}

// Stats returns a snapshot of queue statistics. Successive calls without
// intervening mutation return identical results.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := Stats{
		Pending:    len(q.items),
		Completed:  len(q.completed),
		ByPriority: make(map[models.Priority]int),
	}
	for _, it := range q.items {
		stats.ByPriority[it.task.Priority]++
		if q.depsSatisfied(it.task, q.completed) {
			stats.Ready++
		} else {
			stats.Blocked++
		}
	}
	return stats
}

// Size returns the number of pending tasks.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// IsEmpty reports whether the pending set is empty.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Clear removes all pending tasks and resets the completed-set.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
	q.completed = make(map[string]bool)
}

// less reports whether b should be scheduled before a.
func less(a, b item) bool {
	if a.task.Priority != b.task.Priority {
		return a.task.Priority < b.task.Priority
	}
	return a.seq > b.seq
}

func (q *Queue) depsSatisfied(task models.Task, completed map[string]bool) bool {
	for _, dep := range task.Dependencies {
		if !completed[dep] {
			return false
		}
	}
	return true
}

// bestReady returns the index of the highest-priority ready item, or -1.
// Callers must hold q.mu.
func (q *Queue) bestReady(completed map[string]bool) int {
	best := -1
	for i, it := range q.items {
		if !q.depsSatisfied(it.task, completed) {
			continue
		}
		if best < 0 || less(q.items[best], it) {
			best = i
		}
	}
	return best
}

// popReady removes and returns the highest-priority ready task.
// Callers must hold q.mu.
func (q *Queue) popReady(completed map[string]bool) (models.Task, bool) {
	idx := q.bestReady(completed)
	if idx < 0 {
		return models.Task{}, false
	}

	task := q.items[idx].task
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	return task, true
}
