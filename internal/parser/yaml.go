package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/harrison/dispatch/internal/models"
)

// yamlPlan mirrors the on-disk YAML plan shape before normalization.
type yamlPlan struct {
	Objective string           `yaml:"objective"`
	Tasks     []models.RawTask `yaml:"tasks"`
}

// ParseYAML parses a YAML plan document.
func ParseYAML(data []byte) (*models.Plan, error) {
	var raw yamlPlan
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse yaml plan: %w", err)
	}

	tasks, err := models.NormalizeTasks(raw.Tasks)
	if err != nil {
		return nil, err
	}

	return &models.Plan{
		Objective: raw.Objective,
		Tasks:     tasks,
	}, nil
}
