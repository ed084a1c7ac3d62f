// Package condition provides the executor for condition_* nodes. Every
// condition resolves to exactly one of three outcomes: a yes branch, a no
// branch, or a wait that parks the run until the next eligible tick.
package condition

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/protocol"
)

// Executor resolves all condition_* nodes. Facts already ingested into the
// run context are authoritative; the channel is polled only when the fact
// is absent, and a poll failure degrades to the timeout path rather than
// failing the run.
type Executor struct {
	eventLog persistence.EventLogRepository
	checker  protocol.ConnectionChecker // may be nil: polling disabled
	logger   *slog.Logger
}

func NewExecutor(eventLog persistence.EventLogRepository, checker protocol.ConnectionChecker, logger *slog.Logger) *Executor {
	return &Executor{
		eventLog: eventLog,
		checker:  checker,
		logger:   logger.With("module", "condition_executor"),
	}
}

func (e *Executor) Category() string {
	return models.NodeCategoryCondition
}

func (e *Executor) Execute(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	switch state.Node.Type {
	case models.NodeTypeConditionConnectionAccepted:
		return e.connectionAccepted(ctx, state)
	case models.NodeTypeConditionMessageReceived:
		return e.messageReceived(ctx, state)
	case models.NodeTypeConditionLeadAttribute:
		return e.leadAttribute(ctx, state)
	case models.NodeTypeConditionElapsedTime:
		return e.elapsedTime(ctx, state)
	default:
		return protocol.Outcome{
			Status: protocol.OutcomeFailed,
			Detail: fmt.Sprintf("unrecognized condition type %q", state.Node.Type),
		}, nil
	}
}

// connectionAccepted resolves yes from an ingested fact, else from a single
// live poll, else no once the configured timeout has elapsed, else wait.
func (e *Executor) connectionAccepted(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	if state.Run.HasFact(models.FactConnectionAccepted) {
		return e.decide(ctx, state, models.BranchYes)
	}

	if e.checker != nil {
		accepted, err := e.checker.ConnectionAccepted(ctx, state.Lead)
		if err != nil {
			// Inconclusive poll: fall through to the timeout path.
			e.logger.DebugContext(ctx, "Connection status poll failed",
				"run_id", state.Run.ID,
				"lead_id", state.Lead.ID,
				"error", err,
			)
		} else if accepted {
			state.Run.SetFact(models.FactConnectionAccepted, true)

			return e.decide(ctx, state, models.BranchYes)
		}
	}

	return e.timeoutOrWait(ctx, state, models.FactConnectionAccepted)
}

// messageReceived resolves yes when an inbound message fact exists and the
// optional keyword filter matches, no when it exists and the filter misses,
// else timeout-vs-wait.
func (e *Executor) messageReceived(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	if state.Run.HasFact(models.FactMessageReceived) {
		keyword := protocol.ConfigString(state.Node.Config, "keyword")
		if keyword == "" || containsFold(state.Run.FactString(models.FactMessageBody), keyword) {
			return e.decide(ctx, state, models.BranchYes)
		}

		return e.decide(ctx, state, models.BranchNo)
	}

	return e.timeoutOrWait(ctx, state, models.FactMessageReceived)
}

// leadAttribute deterministically compares a lead field against the
// configured operand. It never waits.
func (e *Executor) leadAttribute(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	field := protocol.ConfigString(state.Node.Config, "field")
	operator := protocol.ConfigString(state.Node.Config, "operator")
	operand := protocol.ConfigString(state.Node.Config, "value")

	matched, err := compareAttribute(state.Lead.Field(field), operator, operand)
	if err != nil {
		return protocol.Outcome{
			Status: protocol.OutcomeFailed,
			Detail: fmt.Sprintf("invalid lead attribute condition: %v", err),
		}, nil
	}

	if matched {
		return e.decide(ctx, state, models.BranchYes)
	}

	return e.decide(ctx, state, models.BranchNo)
}

// elapsedTime resolves yes once the run has sat on the node for the
// configured duration. It never resolves no; until then the run waits with
// a concrete wake time so the due predicate picks it back up.
func (e *Executor) elapsedTime(ctx context.Context, state protocol.ExecutionState) (protocol.Outcome, error) {
	duration, err := protocol.ConfigDuration(state.Node.Config)
	if err != nil {
		return protocol.Outcome{
			Status: protocol.OutcomeFailed,
			Detail: fmt.Sprintf("invalid elapsed-time configuration: %v", err),
		}, nil
	}

	if state.ElapsedSinceTransition() >= duration {
		return e.decide(ctx, state, models.BranchYes)
	}

	wakeAt := state.Run.UpdatedAt.Add(duration)
	state.Run.WaitingUntil = &wakeAt
	state.Run.WaitingForEvent = nil

	return protocol.Outcome{Status: protocol.OutcomeSuspended}, nil
}

// timeoutOrWait applies the shared timeout rule for event-waiting
// conditions: no once the timeout has elapsed with no fact, otherwise park
// the run on the event.
func (e *Executor) timeoutOrWait(ctx context.Context, state protocol.ExecutionState, event string) (protocol.Outcome, error) {
	timeout := protocol.ConfigTimeout(state.Node.Config)
	if timeout > 0 && state.ElapsedSinceTransition() >= timeout {
		return e.decide(ctx, state, models.BranchNo)
	}

	state.Run.WaitingForEvent = &event
	state.Run.WaitingUntil = nil

	return protocol.Outcome{Status: protocol.OutcomeSuspended}, nil
}

// decide records the branch in the event log and advances along it.
func (e *Executor) decide(ctx context.Context, state protocol.ExecutionState, branch string) (protocol.Outcome, error) {
	action := models.LogActionConditionYes
	if branch == models.BranchNo {
		action = models.LogActionConditionNo
	}

	entry := &models.EventLogEntry{
		RunID:    state.Run.ID,
		NodeID:   state.Node.ID,
		NodeType: state.Node.Type,
		Action:   action,
		Outcome:  models.LogOutcomeSuccess,
	}

	err := e.eventLog.Append(ctx, entry)
	if err != nil {
		return protocol.Outcome{}, fmt.Errorf("failed to log condition branch: %w", err)
	}

	return protocol.Outcome{Status: protocol.OutcomeAdvanced, Branch: branch}, nil
}
