package models

import "strings"

// Keyword sets for priority classification. The original planner operated in
// a mixed English/Polish environment, so both languages are matched.
var (
	criticalKeywords = []string{
		"urgent", "immediately", "critical", "asap", "emergency", "blocker",
		"pilne", "natychmiast", "krytyczne", "awaria",
	}
	highKeywords = []string{
		"important", "high priority", "soon", "required", "must",
		"ważne", "wazne", "wysoki priorytet", "wymagane", "szybko",
	}
	lowKeywords = []string{
		"later", "eventually", "whenever", "optional", "nice to have", "minor",
		"później", "pozniej", "kiedyś", "kiedys", "opcjonalne", "drobne",
	}
)

// ClassifyPriority maps a free-text task description to a priority tier.
// Critical keywords are checked first, then high, then low; descriptions
// matching none of the sets (including empty input) default to medium.
// Matching is case-insensitive.
func ClassifyPriority(text string) Priority {
	lowered := strings.ToLower(strings.TrimSpace(text))
	if lowered == "" {
		return PriorityMedium
	}

	for _, kw := range criticalKeywords {
		if strings.Contains(lowered, kw) {
			return PriorityCritical
		}
	}
	for _, kw := range highKeywords {
		if strings.Contains(lowered, kw) {
			return PriorityHigh
		}
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lowered, kw) {
			return PriorityLow
		}
	}

	return PriorityMedium
}
