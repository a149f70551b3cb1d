package taskgraph

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// taskLineRe matches a checkbox task line, capturing the leading bullet and
// checkbox marker separately from the title so MarkDone can flip the marker
// without disturbing the rest of the line.
var taskLineRe = regexp.MustCompile(`^(\s*-\s*\[)([ xX])(\]\s*)(.*)$`)

var (
	idAnnotationRe      = regexp.MustCompile(`@id\(([^)]*)\)`)
	dependsAnnotationRe = regexp.MustCompile(`@depends\(([^)]*)\)`)
	roleAnnotationRe    = regexp.MustCompile(`@role\(([^)]*)\)`)
)

const defaultRole = "builder"

// FrontMatter is optional YAML metadata at the top of a task-list source,
// delimited by "---" lines.
type FrontMatter struct {
	Title       string `yaml:"title"`
	DefaultRole string `yaml:"default_role"`
}

// Parse reads a line-oriented task list and builds its dependency graph.
// See the package doc for the annotated-markdown syntax.
func Parse(source string) (*Graph, error) {
	fm, body, bodyOffset, err := splitFrontMatter(source)
	if err != nil {
		return nil, fmt.Errorf("parse front matter: %w", err)
	}

	roleDefault := defaultRole
	if fm != nil && fm.DefaultRole != "" {
		roleDefault = fm.DefaultRole
	}

	g := &Graph{ByID: make(map[string]*Task), source: source}
	lines := strings.Split(body, "\n")
	ordinal := 0

	for i, line := range lines {
		m := taskLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ordinal++

		done := strings.EqualFold(m[2], "x")
		rest := m[4]

		id := ""
		if idm := idAnnotationRe.FindStringSubmatch(rest); idm != nil {
			id = strings.TrimSpace(idm[1])
			rest = idAnnotationRe.ReplaceAllString(rest, "")
		}

		var deps []string
		if dm := dependsAnnotationRe.FindStringSubmatch(rest); dm != nil {
			for _, d := range strings.Split(dm[1], ",") {
				if d = strings.TrimSpace(d); d != "" {
					deps = append(deps, d)
				}
			}
			rest = dependsAnnotationRe.ReplaceAllString(rest, "")
		}

		role := roleDefault
		if rm := roleAnnotationRe.FindStringSubmatch(rest); rm != nil {
			if r := strings.TrimSpace(rm[1]); r != "" {
				role = r
			}
			rest = roleAnnotationRe.ReplaceAllString(rest, "")
		}

		if id == "" {
			id = fmt.Sprintf("task-%d", ordinal)
		}

		t := &Task{
			ID:        id,
			Title:     strings.TrimSpace(rest),
			Role:      role,
			DependsOn: deps,
			Done:      done,
			line:      i + bodyOffset,
		}
		g.Tasks = append(g.Tasks, t)
		g.ByID[id] = t
	}

	return g, nil
}

// splitFrontMatter separates a leading "---" delimited YAML document from
// the task-list body. It returns nil, the source unchanged, and offset 0
// when no front matter is present. offset is the number of lines consumed
// by the front matter block, used to translate body line indices back to
// source line indices.
func splitFrontMatter(source string) (*FrontMatter, string, int, error) {
	lines := strings.Split(source, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return nil, source, 0, nil
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			var fm FrontMatter
			raw := strings.Join(lines[1:i], "\n")
			if strings.TrimSpace(raw) != "" {
				if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
					return nil, source, 0, err
				}
			}
			body := strings.Join(lines[i+1:], "\n")
			return &fm, body, i + 1, nil
		}
	}

	// Unterminated front matter: treat the whole source as the body.
	return nil, source, 0, nil
}
