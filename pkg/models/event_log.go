package models

import "time"

// Event log action labels.
const (
	LogActionExecute           = "execute"
	LogActionConditionYes      = "condition_yes"
	LogActionConditionNo       = "condition_no"
	LogActionDelayStart        = "delay_start"
	LogActionWorkflowCompleted = "workflow_completed"
	LogActionWorkflowFailed    = "workflow_failed"
)

// Event log outcomes.
const (
	LogOutcomeSuccess = "success"
	LogOutcomeFailed  = "failed"
)

// EventLogEntry records one node-execution attempt. Entries are append-only;
// the engine never updates or deletes them. They are the durable audit trail
// consumed by external observability tooling.
type EventLogEntry struct {
	ID        string         `json:"id"`
	RunID     string         `json:"run_id"`
	NodeID    string         `json:"node_id"`
	NodeType  string         `json:"node_type"`
	Action    string         `json:"action"`
	Outcome   string         `json:"outcome"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
