// Package orchestrator binds the merge engine, conflict resolver, and
// review chain into the public run operations: mergePhase, resumeMerge,
// their review-starting variants, triggerPhaseReview,
// detectPotentialConflicts, and getPhaseMergeStats.
package orchestrator
