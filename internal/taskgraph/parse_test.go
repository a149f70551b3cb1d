package taskgraph

import "testing"

func TestParse_BasicAnnotations(t *testing.T) {
	source := `# Plan

- [ ] Set up schema @id(db-schema) @role(builder)
- [ ] Write migration @depends(db-schema)
- [x] Scaffold project @id(scaffold)
`
	g, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(g.Tasks) != 3 {
		t.Fatalf("Parse() returned %d tasks, want 3", len(g.Tasks))
	}

	schema := g.TaskByID("db-schema")
	if schema == nil {
		t.Fatal("expected task with id db-schema")
	}
	if schema.Title != "Set up schema" {
		t.Errorf("Title = %q, want %q", schema.Title, "Set up schema")
	}
	if schema.Role != "builder" {
		t.Errorf("Role = %q, want builder", schema.Role)
	}
	if schema.Done {
		t.Error("db-schema should not be done")
	}

	migration := g.Tasks[1]
	if migration.ID != "task-2" {
		t.Errorf("synthesized ID = %q, want task-2", migration.ID)
	}
	if len(migration.DependsOn) != 1 || migration.DependsOn[0] != "db-schema" {
		t.Errorf("DependsOn = %v, want [db-schema]", migration.DependsOn)
	}
	if migration.Role != defaultRole {
		t.Errorf("Role = %q, want default %q", migration.Role, defaultRole)
	}

	scaffold := g.TaskByID("scaffold")
	if scaffold == nil || !scaffold.Done {
		t.Error("scaffold should be parsed and done")
	}
}

func TestParse_MultipleDependencies(t *testing.T) {
	source := `- [ ] A @id(a)
- [ ] B @id(b)
- [ ] C @depends(a, b) @id(c)
`
	g, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	c := g.TaskByID("c")
	if c == nil {
		t.Fatal("expected task c")
	}
	if len(c.DependsOn) != 2 || c.DependsOn[0] != "a" || c.DependsOn[1] != "b" {
		t.Errorf("DependsOn = %v, want [a b]", c.DependsOn)
	}
}

func TestParse_IgnoresNonTaskLines(t *testing.T) {
	source := `# Heading
Some prose that is not a task.
- not a checkbox line
- [ ] A real task
`
	g, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(g.Tasks) != 1 {
		t.Fatalf("Parse() returned %d tasks, want 1", len(g.Tasks))
	}
	if g.Tasks[0].Title != "A real task" {
		t.Errorf("Title = %q", g.Tasks[0].Title)
	}
}

func TestParse_FrontMatterDefaultRole(t *testing.T) {
	source := `---
title: Release plan
default_role: reviewer
---
- [ ] Audit changelog
`
	g, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(g.Tasks) != 1 {
		t.Fatalf("Parse() returned %d tasks, want 1", len(g.Tasks))
	}
	if g.Tasks[0].Role != "reviewer" {
		t.Errorf("Role = %q, want reviewer", g.Tasks[0].Role)
	}
	if g.Tasks[0].line != 4 {
		t.Errorf("line = %d, want 4 (offset by front matter)", g.Tasks[0].line)
	}
}

func TestParse_RoleAnnotationOverridesFrontMatterDefault(t *testing.T) {
	source := `---
default_role: reviewer
---
- [ ] Fix bug @role(builder)
`
	g, err := Parse(source)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if g.Tasks[0].Role != "builder" {
		t.Errorf("Role = %q, want builder", g.Tasks[0].Role)
	}
}
