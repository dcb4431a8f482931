// Package parser ingests mission plan files. Plans arrive as YAML or
// Markdown; both paths normalize planner output through models.NormalizeTask
// so the engine only ever sees the canonical task shape.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/dispatch/internal/models"
)

// ParseFile reads a plan file, choosing the parser by extension:
// .yaml/.yml use the YAML parser, .md/.markdown the Markdown parser.
func ParseFile(path string) (*models.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}

	var plan *models.Plan
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		plan, err = ParseYAML(data)
	case ".md", ".markdown":
		plan, err = ParseMarkdown(data)
	default:
		return nil, fmt.Errorf("unsupported plan format %q (want .yaml, .yml, .md or .markdown)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return plan, nil
}
