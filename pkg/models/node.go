package models

import "strings"

// Node category prefixes. The engine dispatches executors by prefix, so new
// node types slot into an existing category without touching the driver.
const (
	NodeCategoryTrigger   = "trigger_"
	NodeCategoryAction    = "action_"
	NodeCategoryCondition = "condition_"
)

// Built-in node types.
const (
	NodeTypeTriggerStart = "trigger_start"

	NodeTypeActionSendMessage     = "action_send_message"
	NodeTypeActionLinkedinConnect = "action_linkedin_connect"
	NodeTypeActionReact           = "action_react"
	NodeTypeActionComment         = "action_comment"
	NodeTypeActionManualTask      = "action_manual_task"

	NodeTypeConditionConnectionAccepted = "condition_connection_accepted"
	NodeTypeConditionMessageReceived    = "condition_message_received"
	NodeTypeConditionLeadAttribute      = "condition_lead_attribute"
	NodeTypeConditionElapsedTime        = "condition_elapsed_time"

	NodeTypeDelayWait = "delay_wait"
)

// Node is one unit of work or decision in a workflow graph. Config is an
// open payload whose shape is owned by the executor that consumes the node
// type; the model deliberately does not validate it.
type Node struct {
	ID     string         `json:"id"     validate:"required"`
	Type   string         `json:"type"   validate:"required"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config"`
}

func (n *Node) IsTrigger() bool {
	return strings.HasPrefix(n.Type, NodeCategoryTrigger)
}

func (n *Node) IsAction() bool {
	return strings.HasPrefix(n.Type, NodeCategoryAction)
}

func (n *Node) IsCondition() bool {
	return strings.HasPrefix(n.Type, NodeCategoryCondition)
}

func (n *Node) IsDelay() bool {
	return n.Type == NodeTypeDelayWait
}

// Edge is a directed connection between two nodes. Branch is an optional
// label ("yes"/"no") that condition nodes use to pick among several outgoing
// edges; an unlabeled edge is unconditional.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
	Branch string `json:"branch,omitempty"`
}

// Condition branch labels.
const (
	BranchYes = "yes"
	BranchNo  = "no"
)
