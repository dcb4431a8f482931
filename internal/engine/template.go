package engine

import "strings"

// RegisterTemplate stores a prompt template for an agent. When templating
// is enabled, a dispatched task whose Agent has a registered template gets
// its description expanded through it. Supported placeholders: {{id}},
// {{agent}}, {{model}}, {{description}}.
func (e *Engine) RegisterTemplate(agent, template string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.templates[agent] = template
}

// TemplateCount returns the number of registered templates.
func (e *Engine) TemplateCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.templates)
}

// expandTemplate rewrites the task description through the agent's template,
// if one is registered. The original description is left untouched when
// templating is disabled or no template matches.
func (e *Engine) expandTemplate(description, id, agent, model string) string {
	if !e.cfg.Features.Templating {
		return description
	}

	e.mu.Lock()
	template, ok := e.templates[agent]
	e.mu.Unlock()
	if !ok {
		return description
	}

	r := strings.NewReplacer(
		"{{id}}", id,
		"{{agent}}", agent,
		"{{model}}", model,
		"{{description}}", description,
	)
	return r.Replace(template)
}
