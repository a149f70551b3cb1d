// Package escalation stores human-facing escalations: records raised when
// a reviewer in the review chain chooses "escalate", or when a
// non-recoverable failure must surface to an operator.
package escalation
