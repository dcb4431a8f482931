package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/dispatch/internal/models"
)

const yamlPlanDoc = `
objective: Ship the login feature
tasks:
  - id: scaffold
    description: Scaffold the auth package
    agent: coder
    priority: high
  - id: handlers
    objective: Implement the login handlers
    dependencies: [scaffold]
  - id: review
    task: Review the implementation urgently
    agent: reviewer
    dependencies: [handlers]
`

func TestParseYAML(t *testing.T) {
	plan, err := ParseYAML([]byte(yamlPlanDoc))
	if err != nil {
		t.Fatalf("ParseYAML returned error: %v", err)
	}

	if plan.Objective != "Ship the login feature" {
		t.Errorf("Objective = %q", plan.Objective)
	}
	if len(plan.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(plan.Tasks))
	}

	scaffold := plan.Tasks[0]
	if scaffold.Priority != models.PriorityHigh {
		t.Errorf("scaffold priority = %s, want high (explicit)", scaffold.Priority)
	}

	handlers := plan.Tasks[1]
	if handlers.Description != "Implement the login handlers" {
		t.Errorf("objective alias not normalized: %q", handlers.Description)
	}
	if len(handlers.Dependencies) != 1 || handlers.Dependencies[0] != "scaffold" {
		t.Errorf("handlers dependencies = %v", handlers.Dependencies)
	}

	review := plan.Tasks[2]
	if review.Priority != models.PriorityCritical {
		t.Errorf("review priority = %s, want critical (classified from 'urgently')", review.Priority)
	}
}

const markdownPlanDoc = `---
objective: Ship the login feature
---

# Login plan

## Task: scaffold
Agent: coder
Priority: high

Scaffold the auth package with empty handlers.

## Task: handlers
Depends on: scaffold

Implement the login handlers.
Wire them to the router.

## Task: review
Agent: reviewer
Depends on: handlers

Review the implementation.
`

func TestParseMarkdown(t *testing.T) {
	plan, err := ParseMarkdown([]byte(markdownPlanDoc))
	if err != nil {
		t.Fatalf("ParseMarkdown returned error: %v", err)
	}

	if plan.Objective != "Ship the login feature" {
		t.Errorf("Objective = %q", plan.Objective)
	}
	if len(plan.Tasks) != 3 {
		t.Fatalf("got %d tasks, want 3: %+v", len(plan.Tasks), plan.Tasks)
	}

	scaffold := plan.Tasks[0]
	if scaffold.ID != "scaffold" {
		t.Errorf("first task ID = %q, want scaffold", scaffold.ID)
	}
	if scaffold.Agent != "coder" {
		t.Errorf("scaffold agent = %q", scaffold.Agent)
	}
	if scaffold.Priority != models.PriorityHigh {
		t.Errorf("scaffold priority = %s, want high", scaffold.Priority)
	}
	if scaffold.Description == "" {
		t.Error("scaffold description should come from paragraph text")
	}

	handlers := plan.Tasks[1]
	if len(handlers.Dependencies) != 1 || handlers.Dependencies[0] != "scaffold" {
		t.Errorf("handlers dependencies = %v, want [scaffold]", handlers.Dependencies)
	}
}

func TestParseMarkdown_NoTasks(t *testing.T) {
	if _, err := ParseMarkdown([]byte("# Just a title\n\nSome prose.\n")); err == nil {
		t.Error("expected error for markdown without task sections")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "plan.yaml")
	if err := os.WriteFile(yamlPath, []byte(yamlPlanDoc), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	plan, err := ParseFile(yamlPath)
	if err != nil {
		t.Fatalf("ParseFile(yaml) returned error: %v", err)
	}
	if len(plan.Tasks) != 3 {
		t.Errorf("yaml plan has %d tasks, want 3", len(plan.Tasks))
	}

	mdPath := filepath.Join(dir, "plan.md")
	if err := os.WriteFile(mdPath, []byte(markdownPlanDoc), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}
	if _, err := ParseFile(mdPath); err != nil {
		t.Fatalf("ParseFile(md) returned error: %v", err)
	}

	if _, err := ParseFile(filepath.Join(dir, "plan.txt")); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestParseFile_InvalidPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	doc := `
tasks:
  - id: a
    description: depends on a ghost
    dependencies: [ghost]
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write plan: %v", err)
	}

	if _, err := ParseFile(path); err == nil {
		t.Error("expected validation error for unknown dependency")
	}
}
