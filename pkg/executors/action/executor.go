// Package action provides the executor for action_* nodes: it hands the
// node to the dispatcher and records the attempt in the run event log.
package action

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/dispatch"
	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/protocol"
)

// Executor resolves all action_* nodes. Action failures are terminal for
// the run; retries are a human or external re-trigger concern.
type Executor struct {
	dispatcher *dispatch.Dispatcher
	eventLog   persistence.EventLogRepository
	logger     *slog.Logger
}

func NewExecutor(dispatcher *dispatch.Dispatcher, eventLog persistence.EventLogRepository, logger *slog.Logger) *Executor {
	return &Executor{
		dispatcher: dispatcher,
		eventLog:   eventLog,
		logger:     logger.With("module", "action_executor"),
	}
}

func (e *Executor) Category() string {
	return models.NodeCategoryAction
}

func (e *Executor) Execute(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	result := e.dispatcher.Dispatch(ctx, state.Node.Type, state.Lead, state.Node.Config)

	entry := &models.EventLogEntry{
		RunID:    state.Run.ID,
		NodeID:   state.Node.ID,
		NodeType: state.Node.Type,
		Action:   models.LogActionExecute,
	}

	if result.Success {
		entry.Outcome = models.LogOutcomeSuccess

		err := e.eventLog.Append(ctx, entry)
		if err != nil {
			return protocol.Outcome{}, fmt.Errorf("failed to log action execution: %w", err)
		}

		return protocol.Outcome{Status: protocol.OutcomeAdvanced}, nil
	}

	entry.Outcome = models.LogOutcomeFailed
	entry.Detail = map[string]any{"error": result.Error}

	err := e.eventLog.Append(ctx, entry)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to log action failure: %w", err)
	}

	e.logger.WarnContext(ctx, "Action dispatch failed",
		"run_id", state.Run.ID,
		"node_id", state.Node.ID,
		"node_type", state.Node.Type,
		"error", result.Error,
	)

	return protocol.Outcome{Status: protocol.OutcomeFailed, Detail: result.Error}, nil
}
