// Package ledger implements the event ledger: an append-only JSONL log of
// spawns, completions, failures, phase transitions, and conflict events,
// written by subscribing to the shared event bus.
package ledger
