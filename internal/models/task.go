package models

import (
	"errors"
	"fmt"
	"time"
)

// Priority represents the scheduling tier of a task.
// Higher tiers are always dispatched before lower tiers.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the string representation of a Priority.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority converts a string into a Priority.
// Unknown or empty strings map to PriorityMedium.
func ParsePriority(s string) Priority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Task represents a single unit of work produced by the planner.
type Task struct {
	ID           string     // Stable identifier, assigned by the planner
	Description  string     // Free-text description of the work
	Agent        string     // Agent to execute with (optional)
	Model        string     // Model the agent should use (optional)
	Priority     Priority   // Scheduling tier
	Dependencies []string   // Task IDs that must complete before this task is ready
	Status       Status     // Lifecycle state
	RetryCount   int        // Number of failed attempts so far
	StartedAt    *time.Time // When execution started (nil if not started)
	CompletedAt  *time.Time // When execution finished (nil if not finished)
}

// Validate checks that the task has the required fields.
func (t *Task) Validate() error {
	if t.ID == "" {
		return errors.New("task id is required")
	}
	if t.Description == "" {
		return fmt.Errorf("task %s: description is required", t.ID)
	}
	return nil
}

// IsCompleted returns true if the task finished successfully.
func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsTerminal returns true if the task can no longer be scheduled.
func (t *Task) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// HasCyclicDependencies detects circular dependencies in a list of tasks
// using DFS with color marking (white=unvisited, gray=visiting, black=visited).
func HasCyclicDependencies(tasks []Task) bool {
	graph := make(map[string][]string)
	taskMap := make(map[string]bool)

	for _, task := range tasks {
		taskMap[task.ID] = true
		graph[task.ID] = []string{}
	}

	// Build edges: if task A depends on B, then B -> A
	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			if dep == task.ID {
				return true // self-reference is a cycle
			}
			if taskMap[dep] {
				graph[dep] = append(graph[dep], task.ID)
			}
		}
	}

	const (
		white = 0 // not visited
		gray  = 1 // currently visiting
		black = 2 // visited
	)

	colors := make(map[string]int)
	for id := range taskMap {
		colors[id] = white
	}

	var dfs func(string) bool
	dfs = func(node string) bool {
		colors[node] = gray

		for _, neighbor := range graph[node] {
			if colors[neighbor] == gray {
				return true // back edge = cycle
			}
			if colors[neighbor] == white && dfs(neighbor) {
				return true
			}
		}

		colors[node] = black
		return false
	}

	for id := range taskMap {
		if colors[id] == white {
			if dfs(id) {
				return true
			}
		}
	}

	return false
}
