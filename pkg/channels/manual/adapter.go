// Package manual provides the manual-task channel adapter. Manual tasks are
// surfaced to the owning user outside the engine, so dispatch always
// succeeds and the cadence moves on.
package manual

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// TaskAdapter is the no-op adapter for action_manual_task nodes.
type TaskAdapter struct{}

func NewTaskAdapter() *TaskAdapter {
	return &TaskAdapter{}
}

func (a *TaskAdapter) ID() string {
	return models.NodeTypeActionManualTask
}

func (a *TaskAdapter) Deliver(_ context.Context, _ *models.Lead, _ map[string]any) protocol.DispatchResult {
	return protocol.DispatchResult{Success: true}
}

func (a *TaskAdapter) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeActionManualTask: {
			"type": "object",
			"properties": map[string]any{
				"instructions": map[string]any{
					"type":        "string",
					"description": "Free-form instructions shown to the user.",
				},
			},
		},
	}
}
