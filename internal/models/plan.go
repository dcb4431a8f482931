package models

import "fmt"

// Plan represents a mission: one objective decomposed into tasks with
// declared dependencies, produced by an upstream planner.
type Plan struct {
	Objective string // High-level goal the tasks implement
	Tasks     []Task // Sub-tasks in planner order
}

// Validate checks that the plan's tasks are internally consistent:
// every task validates, IDs are unique, dependencies reference known
// tasks and the dependency graph is acyclic.
func (p *Plan) Validate() error {
	if len(p.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks")
	}

	seen := make(map[string]bool, len(p.Tasks))
	for i := range p.Tasks {
		task := &p.Tasks[i]
		if err := task.Validate(); err != nil {
			return err
		}
		if seen[task.ID] {
			return fmt.Errorf("task %s: duplicate task id", task.ID)
		}
		seen[task.ID] = true
	}

	for _, task := range p.Tasks {
		for _, dep := range task.Dependencies {
			if !seen[dep] {
				return fmt.Errorf("task %s: depends on non-existent task %s", task.ID, dep)
			}
		}
	}

	if HasCyclicDependencies(p.Tasks) {
		return fmt.Errorf("circular dependency detected")
	}

	return nil
}

// TaskByID returns a pointer to the task with the given ID, or nil.
func (p *Plan) TaskByID(id string) *Task {
	for i := range p.Tasks {
		if p.Tasks[i].ID == id {
			return &p.Tasks[i]
		}
	}
	return nil
}
