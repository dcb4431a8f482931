// Package waves partitions a task graph into dependency-independent waves
// and executes each wave concurrently.
//
// Within a wave no task depends on another task in the same wave, and every
// task's dependencies lie in strictly earlier waves (topological layering).
package waves

import (
	"fmt"
	"sort"
	"time"

	"github.com/harrison/dispatch/internal/models"
)

// Wave is a maximal set of ready, mutually-independent tasks intended for
// concurrent execution.
type Wave struct {
	Name  string
	Tasks []models.Task
}

// DetectGroups computes execution waves from a task list using Kahn's
// algorithm. Tasks with no dependencies form wave 1, tasks depending only
// on wave 1 form wave 2, and so on. Returns an error on duplicate IDs,
// unknown dependencies or cycles. In-wave ordering is deterministic:
// priority descending, then task ID.
func DetectGroups(tasks []models.Task) ([]Wave, error) {
	if len(tasks) == 0 {
		return []Wave{}, nil
	}

	taskMap := make(map[string]models.Task, len(tasks))
	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string)

	for _, task := range tasks {
		if task.ID == "" {
			return nil, fmt.Errorf("task has empty id")
		}
		if _, exists := taskMap[task.ID]; exists {
			return nil, fmt.Errorf("task %s: duplicate task id", task.ID)
		}
		taskMap[task.ID] = task
		inDegree[task.ID] = 0
	}

	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if _, exists := taskMap[dep]; !exists {
				return nil, fmt.Errorf("task %s: depends on non-existent task %s", task.ID, dep)
			}
			dependents[dep] = append(dependents[dep], task.ID)
			inDegree[task.ID]++
		}
	}

	var waves []Wave
	for len(inDegree) > 0 {
		var current []string
		for id, degree := range inDegree {
			if degree == 0 {
				current = append(current, id)
			}
		}
		if len(current) == 0 {
			return nil, fmt.Errorf("circular dependency detected")
		}

		sort.Slice(current, func(i, j int) bool {
			a, b := taskMap[current[i]], taskMap[current[j]]
			if a.Priority != b.Priority {
				return a.Priority > b.Priority
			}
			return a.ID < b.ID
		})

		wave := Wave{Name: fmt.Sprintf("Wave %d", len(waves)+1)}
		for _, id := range current {
			wave.Tasks = append(wave.Tasks, taskMap[id])
		}
		waves = append(waves, wave)

		for _, id := range current {
			delete(inDegree, id)
			for _, dependent := range dependents[id] {
				if _, exists := inDegree[dependent]; exists {
					inDegree[dependent]--
				}
			}
		}
	}

	return waves, nil
}

// EstimateDuration estimates total mission time for the given waves.
// Tasks within a wave run concurrently, so each wave contributes its
// longest task, not the sum; the estimate is the sum of per-wave maxima.
// Tasks absent from perTask fall back to defaultDuration.
func EstimateDuration(waves []Wave, perTask map[string]time.Duration, defaultDuration time.Duration) time.Duration {
	var total time.Duration
	for _, wave := range waves {
		var longest time.Duration
		for _, task := range wave.Tasks {
			d, ok := perTask[task.ID]
			if !ok {
				d = defaultDuration
			}
			if d > longest {
				longest = d
			}
		}
		total += longest
	}
	return total
}
