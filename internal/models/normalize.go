package models

import (
	"fmt"
	"strings"
)

// RawTask is the loosely-shaped task record emitted by planners. Different
// planner prompts name the description field inconsistently (description,
// objective, task or content), so ingestion normalizes through this adapter
// instead of propagating the ambiguity into the queue.
type RawTask struct {
	ID           string   `yaml:"id" json:"id"`
	Description  string   `yaml:"description" json:"description"`
	Objective    string   `yaml:"objective" json:"objective"`
	TaskText     string   `yaml:"task" json:"task"`
	Content      string   `yaml:"content" json:"content"`
	Agent        string   `yaml:"agent" json:"agent"`
	Model        string   `yaml:"model" json:"model"`
	Priority     string   `yaml:"priority" json:"priority"`
	Dependencies []string `yaml:"dependencies" json:"dependencies"`
}

// NormalizeTask converts a RawTask into the canonical Task shape.
// The description is taken from the first non-empty alias field. Priority is
// classified from the description when the planner did not assign one.
// Task IDs containing '@' are rejected because '@' separates the task ID from
// the sequence suffix in checkpoint identifiers.
func NormalizeTask(raw RawTask) (Task, error) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return Task{}, fmt.Errorf("task has empty id")
	}
	if strings.Contains(id, "@") {
		return Task{}, fmt.Errorf("task %s: id must not contain '@'", id)
	}

	description := firstNonEmpty(raw.Description, raw.Objective, raw.TaskText, raw.Content)
	if description == "" {
		return Task{}, fmt.Errorf("task %s: no description field set", id)
	}

	var priority Priority
	if strings.TrimSpace(raw.Priority) == "" {
		priority = ClassifyPriority(description)
	} else {
		priority = ParsePriority(strings.ToLower(strings.TrimSpace(raw.Priority)))
	}

	deps := make([]string, 0, len(raw.Dependencies))
	for _, dep := range raw.Dependencies {
		dep = strings.TrimSpace(dep)
		if dep != "" {
			deps = append(deps, dep)
		}
	}

	return Task{
		ID:           id,
		Description:  description,
		Agent:        strings.TrimSpace(raw.Agent),
		Model:        strings.TrimSpace(raw.Model),
		Priority:     priority,
		Dependencies: deps,
		Status:       StatusPending,
	}, nil
}

// NormalizeTasks normalizes a slice of raw tasks, failing on the first
// malformed record.
func NormalizeTasks(raws []RawTask) ([]Task, error) {
	tasks := make([]Task, 0, len(raws))
	for _, raw := range raws {
		task, err := NormalizeTask(raw)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
