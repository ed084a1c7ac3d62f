package web

import "github.com/dripline/dripline/pkg/models"

// SaveWorkflowRequest is the payload for creating or updating a workflow
// graph.
type SaveWorkflowRequest struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"        validate:"required,min=3"`
	Description string                `json:"description"`
	Status      models.WorkflowStatus `json:"status"      validate:"omitempty,oneof=active paused archived"`
	Nodes       []*models.Node        `json:"nodes"       validate:"required,min=1,dive,required"`
	Edges       []*models.Edge        `json:"edges"       validate:"dive,required"`
	Owner       string                `json:"owner"`
}

// StartRunRequest enrolls a lead into a workflow.
type StartRunRequest struct {
	WorkflowID string `json:"workflow_id" validate:"required"`
	LeadID     string `json:"lead_id"     validate:"required"`
}

// ChannelEventRequest is the webhook payload a channel proxy delivers when
// a lead reacts: an accepted connection or an inbound reply.
type ChannelEventRequest struct {
	EventType string `json:"event_type" validate:"required"`
	LeadID    string `json:"lead_id"    validate:"required"`
	Channel   string `json:"channel"`
	Body      string `json:"body"`
}
