package models

import "time"

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusWaiting   RunStatus = "waiting"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Context keys written by event ingestion and read by condition executors.
const (
	FactConnectionAccepted = "connection_accepted"
	FactMessageReceived    = "message_received"
	FactMessageBody        = "message_body"

	ContextKeyLastError = "last_error"
)

// WorkflowRun tracks one lead's traversal of one workflow graph. All timing
// (delays, condition timeouts) is expressed as data so a run is fully
// recoverable from the store across process restarts.
type WorkflowRun struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id" validate:"required"`
	LeadID     string `json:"lead_id"     validate:"required"`

	// CurrentNodeID is nil only once the run has completed.
	CurrentNodeID *string `json:"current_node_id,omitempty"`

	Status RunStatus `json:"status"`

	// WaitingUntil is set when the run is parked on a pure time delay, or on
	// an elapsed-time condition that computed when it next becomes due.
	WaitingUntil *time.Time `json:"waiting_until,omitempty"`

	// WaitingForEvent names the external occurrence the run is parked on
	// (e.g. "connection_accepted"). Runs with a non-nil value are re-checked
	// every tick because ingestion may have recorded the fact in Context
	// without flipping Status.
	WaitingForEvent *string `json:"waiting_for_event,omitempty"`

	// Context accumulates facts injected by event ingestion plus diagnostic
	// fields such as last_error. It is merged, never replaced wholesale.
	Context map[string]any `json:"context"`

	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the moment of the last node transition and the reference
	// point for elapsed-time and timeout computations. Context merges by
	// ingestion do not touch it.
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the run can never advance again.
func (r *WorkflowRun) IsTerminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// HasFact reports whether the named context fact is present and truthy.
func (r *WorkflowRun) HasFact(name string) bool {
	v, ok := r.Context[name]
	if !ok {
		return false
	}

	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}

// FactString returns the named context fact as a string, or "" when absent.
func (r *WorkflowRun) FactString(name string) string {
	s, _ := r.Context[name].(string)

	return s
}

// SetFact records a fact in the run context, allocating the map on first use.
func (r *WorkflowRun) SetFact(name string, value any) {
	if r.Context == nil {
		r.Context = make(map[string]any)
	}

	r.Context[name] = value
}
