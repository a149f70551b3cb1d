package escalation

import "time"

// Status is the lifecycle state of an Escalation.
type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Escalation records a reviewer's "escalate" decision, or a non-recoverable
// failure that must surface to a human operator.
type Escalation struct {
	ID          string     `json:"id"`
	RunID       string     `json:"runId"`
	PhaseNumber int        `json:"phaseNumber"`
	Reason      string     `json:"reason"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy  string     `json:"resolvedBy,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
}
