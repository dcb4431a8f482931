package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/dispatch/internal/models"
)

// taskHeadingPrefix marks a level-2 heading as the start of a task section.
const taskHeadingPrefix = "Task:"

// frontmatterMeta is the optional YAML frontmatter in a Markdown plan.
type frontmatterMeta struct {
	Objective string `yaml:"objective"`
}

// ParseMarkdown parses a Markdown plan document.
//
// The expected shape: optional YAML frontmatter carrying the objective,
// then one `## Task: <id>` section per task. Within a section, lines of the
// form `Agent:`, `Model:`, `Priority:` and `Depends on:` set task metadata;
// all remaining paragraph text becomes the description.
func ParseMarkdown(data []byte) (*models.Plan, error) {
	content, frontmatter := extractFrontmatter(data)

	plan := &models.Plan{}
	if frontmatter != nil {
		var meta frontmatterMeta
		if err := yaml.Unmarshal(frontmatter, &meta); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
		plan.Objective = meta.Objective
	}

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	var raws []models.RawTask
	var current *models.RawTask

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			heading := strings.TrimSpace(nodeLines(n, content))
			if n.Level == 2 && strings.HasPrefix(heading, taskHeadingPrefix) {
				if current != nil {
					raws = append(raws, *current)
				}
				current = &models.RawTask{
					ID: strings.TrimSpace(strings.TrimPrefix(heading, taskHeadingPrefix)),
				}
			} else if current != nil && n.Level <= 2 {
				// A non-task heading at the same level ends the section.
				raws = append(raws, *current)
				current = nil
			}
		case *ast.Paragraph:
			if current == nil {
				continue
			}
			applyParagraph(current, nodeLines(n, content))
		}
	}
	if current != nil {
		raws = append(raws, *current)
	}

	if len(raws) == 0 {
		return nil, fmt.Errorf("markdown plan has no task sections (want '## %s <id>' headings)", taskHeadingPrefix)
	}

	tasks, err := models.NormalizeTasks(raws)
	if err != nil {
		return nil, err
	}
	plan.Tasks = tasks
	return plan, nil
}

// applyParagraph folds one paragraph into the task being built: metadata
// lines set fields, everything else accumulates into the description.
func applyParagraph(raw *models.RawTask, paragraph string) {
	var descLines []string

	for _, line := range strings.Split(paragraph, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if found {
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "agent":
				raw.Agent = strings.TrimSpace(value)
				continue
			case "model":
				raw.Model = strings.TrimSpace(value)
				continue
			case "priority":
				raw.Priority = strings.TrimSpace(value)
				continue
			case "depends on", "dependencies":
				raw.Dependencies = append(raw.Dependencies, splitList(value)...)
				continue
			}
		}
		descLines = append(descLines, line)
	}

	if len(descLines) > 0 {
		if raw.Description != "" {
			raw.Description += "\n"
		}
		raw.Description += strings.Join(descLines, "\n")
	}
}

// splitList parses a comma-separated dependency list, ignoring "(none)".
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.EqualFold(part, "(none)") || strings.EqualFold(part, "none") {
			continue
		}
		out = append(out, part)
	}
	return out
}

// nodeLines reassembles the source text covered by a block node.
func nodeLines(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.Write(bytes.TrimRight(segment.Value(source), "\n"))
	}
	return sb.String()
}

// extractFrontmatter splits leading YAML frontmatter (delimited by ---)
// from the document body. Returns the body and the frontmatter bytes, or
// nil when the document has none.
func extractFrontmatter(data []byte) (body, frontmatter []byte) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte("---\n")) && !bytes.HasPrefix(trimmed, []byte("---\r\n")) {
		return data, nil
	}

	rest := trimmed[bytes.IndexByte(trimmed, '\n')+1:]
	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return data, nil
	}

	frontmatter = rest[:end]
	body = rest[end+len("\n---"):]
	return body, frontmatter
}
