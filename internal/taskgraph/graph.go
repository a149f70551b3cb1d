package taskgraph

import "sort"

// Task is a single entry in a task list.
type Task struct {
	// ID is the task's unique identifier, either explicit (@id(...)) or
	// synthesized as "task-<ordinal>" in source order.
	ID string

	// Title is the task's display text with all annotations stripped.
	Title string

	// Role is the agent role assigned to this task (@role(...)), defaulting
	// to "builder".
	Role string

	// DependsOn lists the IDs of tasks that must be Done before this task
	// is eligible to run.
	DependsOn []string

	// Done reports whether the task's checkbox is checked ("[x]").
	Done bool

	// line is the zero-based index of this task's line in the parsed
	// source, used by MarkDone to rewrite the source in place.
	line int
}

// Graph is a parsed task list: an ordered set of tasks plus their
// dependency edges.
type Graph struct {
	// Tasks are in source order.
	Tasks []*Task

	// ByID indexes Tasks by ID for dependency lookups.
	ByID map[string]*Task

	source string
}

// TaskByID returns the task with the given ID, or nil if none exists.
func (g *Graph) TaskByID(id string) *Task {
	return g.ByID[id]
}

// OrderResult is the result of a topological sort over a Graph.
type OrderResult struct {
	// Order holds every task reachable via a valid topological sort,
	// oldest-ready-first, ties broken by source order.
	Order []*Task

	// Unreachable holds tasks that could not be placed because they sit
	// inside or downstream of a dependency cycle.
	Unreachable []*Task
}

// TopologicalOrder runs Kahn's algorithm over the graph's in-degree map.
// Ties among tasks that become ready in the same round are broken by
// source (insertion) order. If the graph contains a cycle, Order holds the
// longest acyclic prefix and the remaining tasks are returned in
// Unreachable.
func TopologicalOrder(g *Graph) OrderResult {
	inDegree := make(map[string]int, len(g.Tasks))
	dependents := make(map[string][]string, len(g.Tasks))
	pos := make(map[string]int, len(g.Tasks))
	for i, t := range g.Tasks {
		inDegree[t.ID] = 0
		pos[t.ID] = i
	}
	for _, t := range g.Tasks {
		for _, dep := range t.DependsOn {
			if _, ok := g.ByID[dep]; !ok {
				continue
			}
			inDegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	placed := make(map[string]bool, len(g.Tasks))
	var order []*Task

	var queue []string
	for _, t := range g.Tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	for len(queue) > 0 {
		var next []string
		for _, id := range queue {
			order = append(order, g.ByID[id])
			placed[id] = true
		}
		for _, id := range queue {
			for _, depID := range dependents[id] {
				inDegree[depID]--
				if inDegree[depID] == 0 {
					next = append(next, depID)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return pos[next[i]] < pos[next[j]] })
		queue = next
	}

	var unreachable []*Task
	for _, t := range g.Tasks {
		if !placed[t.ID] {
			unreachable = append(unreachable, t)
		}
	}

	return OrderResult{Order: order, Unreachable: unreachable}
}

// ReadyTasks returns every not-done task whose dependencies are all done,
// in topological order.
func ReadyTasks(g *Graph) []*Task {
	result := TopologicalOrder(g)
	var ready []*Task
	for _, t := range result.Order {
		if t.Done {
			continue
		}
		if dependenciesSatisfied(g, t, isDone) {
			ready = append(ready, t)
		}
	}
	return ready
}

// ParallelGroups partitions the not-done tasks into successive maximal
// antichains of the done-closure: group 0 is every task ready right now,
// group i+1 is every task that becomes ready once group i completes. If
// tasks remain but none are ready, a final empty group is appended,
// signaling an unsatisfiable dependency (a cycle, or a dependency on a
// missing ID).
func ParallelGroups(g *Graph) [][]*Task {
	satisfied := make(map[string]bool, len(g.Tasks))
	var remaining []*Task
	for _, t := range g.Tasks {
		if t.Done {
			satisfied[t.ID] = true
		} else {
			remaining = append(remaining, t)
		}
	}

	var groups [][]*Task
	for len(remaining) > 0 {
		var group []*Task
		var next []*Task
		for _, t := range remaining {
			if dependenciesSatisfiedBy(t, satisfied) {
				group = append(group, t)
			} else {
				next = append(next, t)
			}
		}
		groups = append(groups, group)
		if len(group) == 0 {
			break
		}
		for _, t := range group {
			satisfied[t.ID] = true
		}
		remaining = next
	}

	return groups
}

func isDone(g *Graph, id string) bool {
	t, ok := g.ByID[id]
	return ok && t.Done
}

func dependenciesSatisfied(g *Graph, t *Task, done func(*Graph, string) bool) bool {
	for _, dep := range t.DependsOn {
		if !done(g, dep) {
			return false
		}
	}
	return true
}

func dependenciesSatisfiedBy(t *Task, satisfied map[string]bool) bool {
	for _, dep := range t.DependsOn {
		if !satisfied[dep] {
			return false
		}
	}
	return true
}
