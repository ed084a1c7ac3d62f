// Package models defines the core domain models for outreach workflow execution.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive   WorkflowStatus = "active"   // Executable, runs advance
	WorkflowStatusPaused   WorkflowStatus = "paused"   // Runs are soft-skipped until reactivated
	WorkflowStatusArchived WorkflowStatus = "archived" // Historical, not executable
)

// Workflow is a user-authored outreach cadence: a graph of trigger, action,
// condition and delay nodes connected by optionally branch-labeled edges.
// The engine treats the graph as read-only; it is mutated only by the
// authoring UI between ticks.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status"      validate:"required"`
	Nodes       []*Node        `json:"nodes"`
	Edges       []*Edge        `json:"edges"`
	Owner       string         `json:"owner"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether runs of this workflow are eligible for advancement.
func (w *Workflow) IsActive() bool {
	return w.Status == WorkflowStatusActive
}
