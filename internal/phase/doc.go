// Package phase implements the phase store and phase collector: the record
// of one batch of parallel workers executing against a shared base branch,
// and the state machine that tracks each worker through to a point where
// their branches are ready for the sequential merge engine.
package phase
