// Package taskgraph parses annotated markdown task lists into a dependency
// graph and computes execution order over it.
//
// A task list is a sequence of checkbox lines:
//
//	- [ ] Set up database schema @id(db-schema) @role(builder)
//	- [ ] Write migration @depends(db-schema)
//	- [x] Scaffold project @id(scaffold)
//
// Annotations may appear in any order and are stripped from the task title.
// Tasks without an explicit @id receive a synthesized "task-<ordinal>" id in
// source order. Tasks without @depends have no dependencies. Tasks without
// @role default to "builder".
//
// An optional YAML front-matter document, delimited by "---" lines at the
// top of the source, may carry a title and a default role applied to tasks
// that omit @role.
package taskgraph
