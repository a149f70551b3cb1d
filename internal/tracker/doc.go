// Package tracker implements the worker tracker: a process-wide registry of
// spawned sessions, polled on an interval against the gateway's session list
// until each is observed complete (or exceeds its tracking ceiling), emitting
// a worker-completed event for every resolution.
package tracker
