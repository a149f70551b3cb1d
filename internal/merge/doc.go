// Package merge implements the sequential merge engine: it folds a phase's
// worker branches into a shared phase branch one at a time, stopping at the
// first conflict so it can be handed to the conflict resolver instead of
// aborted outright.
package merge
