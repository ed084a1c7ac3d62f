// Package delay provides the executor for delay_wait nodes.
package delay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/protocol"
)

// Executor parks a run until the configured duration has elapsed. It only
// records the wake time; the tick that later observes the time has passed
// moves the run to the delay's successor, so a delay node never executes
// twice.
type Executor struct {
	eventLog persistence.EventLogRepository
	logger   *slog.Logger
}

func NewExecutor(eventLog persistence.EventLogRepository, logger *slog.Logger) *Executor {
	return &Executor{
		eventLog: eventLog,
		logger:   logger.With("module", "delay_executor"),
	}
}

func (e *Executor) Category() string {
	return models.NodeTypeDelayWait
}

func (e *Executor) Execute(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	duration, err := protocol.ConfigDuration(state.Node.Config)
	if err != nil {
		return protocol.Outcome{
			Status: protocol.OutcomeFailed,
			Detail: fmt.Sprintf("invalid delay configuration: %v", err),
		}, nil
	}

	until := state.Now.Add(duration)
	state.Run.WaitingUntil = &until
	state.Run.WaitingForEvent = nil

	entry := &models.EventLogEntry{
		RunID:    state.Run.ID,
		NodeID:   state.Node.ID,
		NodeType: state.Node.Type,
		Action:   models.LogActionDelayStart,
		Outcome:  models.LogOutcomeSuccess,
		Detail:   map[string]any{"waiting_until": until},
	}

	err = e.eventLog.Append(ctx, entry)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to log delay start: %w", err)
	}

	return protocol.Outcome{Status: protocol.OutcomeSuspended}, nil
}

func (e *Executor) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeDelayWait: {
			"type": "object",
			"properties": map[string]any{
				"duration": map[string]any{
					"type":             "number",
					"description":      "Delay magnitude.",
					"exclusiveMinimum": 0,
				},
				"unit": map[string]any{
					"type":        "string",
					"description": "Delay unit. Defaults to days.",
					"enum":        []string{"minutes", "hours", "days"},
				},
			},
			"required": []string{"duration"},
		},
	}
}
