// Package engine contains the run driver: the periodic loop that picks up
// due workflow runs and advances each one through its graph.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/otelhelper"
	"github.com/dripline/dripline/pkg/persistence"
	"github.com/dripline/dripline/pkg/protocol"
	"github.com/dripline/dripline/pkg/registry"
	"github.com/dripline/dripline/pkg/workflow"
)

const (
	defaultBatchSize       = 50
	defaultMaxStepsPerTick = 25
)

// Config tunes one driver instance.
type Config struct {
	// BatchSize caps how many due runs one tick picks up.
	BatchSize int

	// MaxStepsPerTick caps how many nodes a single run may advance through
	// within one tick, so a long unconditional chain cannot starve the
	// batch. A run that hits the ceiling stays running and resumes on the
	// next tick.
	MaxStepsPerTick int

	// RunPacing is an optional sleep between runs in a batch, to spread
	// outbound channel calls over the tick instead of bursting them.
	RunPacing time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.MaxStepsPerTick <= 0 {
		c.MaxStepsPerTick = defaultMaxStepsPerTick
	}

	return c
}

// RunOutcome is the per-run result of one tick: the run's status after
// processing, or the reason it was skipped.
type RunOutcome struct {
	RunID  string           `json:"run_id"`
	Status models.RunStatus `json:"status"`
	Error  string           `json:"error,omitempty"`
}

// TickSummary reports what one driver tick did.
type TickSummary struct {
	Picked    int          `json:"picked"`
	Advanced  int          `json:"advanced"`
	Completed int          `json:"completed"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	Outcomes  []RunOutcome `json:"outcomes,omitempty"`
}

// Driver advances due runs. Each run is handled independently: an error in
// one run never aborts the batch, and a run another driver instance holds
// the lock for is skipped until the next tick.
type Driver struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	locker      RunLocker
	config      Config
	tracer      trace.Tracer
	logger      *slog.Logger
}

func NewDriver(
	p persistence.Persistence,
	reg *registry.Registry,
	locker RunLocker,
	config Config,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Driver {
	if locker == nil {
		locker = NoopLocker{}
	}

	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dripline-engine")
	}

	return &Driver{
		persistence: p,
		registry:    reg,
		locker:      locker,
		config:      config.withDefaults(),
		tracer:      tracer,
		logger:      logger.With("module", "engine"),
	}
}

// ProcessDueRuns executes one driver tick at the given instant.
func (d *Driver) ProcessDueRuns(ctx context.Context, now time.Time) (TickSummary, error) {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "engine.tick")
	defer span.End()

	var summary TickSummary

	runs, err := d.persistence.RunRepository().DueRuns(ctx, now, d.config.BatchSize)
	if err != nil {
		otelhelper.SetError(span, err)

		return summary, fmt.Errorf("failed to fetch due runs: %w", err)
	}

	summary.Picked = len(runs)

	for i, run := range runs {
		if i > 0 && d.config.RunPacing > 0 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(d.config.RunPacing):
			}
		}

		d.processLocked(ctx, run, now, &summary)
	}

	span.SetAttributes(
		attribute.Int("dripline.tick.picked", summary.Picked),
		attribute.Int("dripline.tick.failed", summary.Failed),
	)

	d.logger.InfoContext(ctx, "Tick complete",
		"picked", summary.Picked,
		"advanced", summary.Advanced,
		"completed", summary.Completed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)

	return summary, nil
}

func (d *Driver) processLocked(ctx context.Context, run *models.WorkflowRun, now time.Time, summary *TickSummary) {
	acquired, err := d.locker.Acquire(ctx, run.ID)
	if err != nil {
		summary.Skipped++
		summary.Outcomes = append(summary.Outcomes, RunOutcome{RunID: run.ID, Status: run.Status, Error: "lock unavailable"})
		d.logger.WarnContext(ctx, "Run lock unavailable", "run_id", run.ID, "error", err)

		return
	}

	if !acquired {
		summary.Skipped++
		summary.Outcomes = append(summary.Outcomes, RunOutcome{RunID: run.ID, Status: run.Status, Error: "locked by another driver"})

		return
	}

	defer d.locker.Release(ctx, run.ID)

	err = d.processRun(ctx, run, now, summary)
	if err != nil {
		summary.Skipped++
		summary.Outcomes = append(summary.Outcomes, RunOutcome{RunID: run.ID, Status: run.Status, Error: err.Error()})

		if errors.Is(err, persistence.ErrStaleRun) {
			d.logger.DebugContext(ctx, "Run transitioned by another writer", "run_id", run.ID)

			return
		}

		d.logger.ErrorContext(ctx, "Failed to process run", "run_id", run.ID, "error", err)

		return
	}

	summary.Outcomes = append(summary.Outcomes, RunOutcome{RunID: run.ID, Status: run.Status})
}

// processRun advances one run until it suspends, terminates, or hits the
// per-tick step ceiling.
func (d *Driver) processRun(ctx context.Context, run *models.WorkflowRun, now time.Time, summary *TickSummary) error {
	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "engine.process_run",
		attribute.String(otelhelper.RunIDKey, run.ID),
		attribute.String(otelhelper.WorkflowIDKey, run.WorkflowID),
	)
	defer span.End()

	wf, err := d.persistence.WorkflowRepository().GetByID(ctx, run.WorkflowID)
	if err != nil {
		return fmt.Errorf("failed to load workflow %s: %w", run.WorkflowID, err)
	}

	if wf == nil || !wf.IsActive() {
		// The run stays untouched and becomes eligible again if the
		// workflow is restored or reactivated.
		d.logger.WarnContext(ctx, "Skipping run of unavailable workflow",
			"run_id", run.ID,
			"workflow_id", run.WorkflowID,
		)

		return nil
	}

	lead, err := d.persistence.LeadRepository().GetByID(ctx, run.LeadID)
	if err != nil {
		return fmt.Errorf("failed to load lead %s: %w", run.LeadID, err)
	}

	if lead == nil {
		d.logger.WarnContext(ctx, "Skipping run of missing lead",
			"run_id", run.ID,
			"lead_id", run.LeadID,
		)

		return nil
	}

	for step := 0; step < d.config.MaxStepsPerTick; step++ {
		if run.CurrentNodeID == nil {
			return d.completeRun(ctx, run, summary)
		}

		node := workflow.FindNode(wf, *run.CurrentNodeID)
		if node == nil {
			summary.Failed++

			return d.failRun(ctx, run, nil, fmt.Sprintf("node %s not found in workflow", *run.CurrentNodeID))
		}

		span.SetAttributes(attribute.String(otelhelper.NodeTypeKey, node.Type))

		// A run suspended by a delay resumes by moving to the successor:
		// the delay node itself never executes a second time, and the
		// successor runs within the same tick.
		if run.Status == models.RunStatusWaiting && run.WaitingForEvent == nil && node.IsDelay() {
			err := d.advance(ctx, run, wf, node, "", summary)
			if err != nil || run.IsTerminal() {
				return err
			}

			continue
		}

		executor, err := d.registry.ExecutorFor(node.Type)
		if err != nil {
			summary.Failed++

			return d.failRun(ctx, run, node, err.Error())
		}

		prevStatus, prevUntil, prevEvent := run.Status, run.WaitingUntil, run.WaitingForEvent
		run.Status = models.RunStatusRunning

		outcome, err := executor.Execute(ctx, protocol.ExecutionState{
			Run:   run,
			Node:  node,
			Graph: wf,
			Lead:  lead,
			Now:   now,
		})
		if err != nil {
			// Infrastructure failure: leave the run as loaded and let the
			// next tick retry the same node.
			otelhelper.SetError(span, err)
			run.Status, run.WaitingUntil, run.WaitingForEvent = prevStatus, prevUntil, prevEvent

			return fmt.Errorf("node %s execution: %w", node.ID, err)
		}

		switch outcome.Status {
		case protocol.OutcomeFailed:
			summary.Failed++

			return d.failRun(ctx, run, node, outcome.Detail)

		case protocol.OutcomeSuspended:
			run.Status = models.RunStatusWaiting
			if run.Status == prevStatus && sameWait(run.WaitingUntil, prevUntil) && sameEvent(run.WaitingForEvent, prevEvent) {
				// Unchanged re-check of a waiting run: persisting would
				// reset updated_at and stretch every elapsed-time window.
				return nil
			}

			return d.persistence.RunRepository().Update(ctx, run)

		case protocol.OutcomeAdvanced:
			err = d.advance(ctx, run, wf, node, outcome.Branch, summary)
			if err != nil || run.IsTerminal() {
				return err
			}

		default:
			return fmt.Errorf("executor for %s returned unknown outcome %q", node.Type, outcome.Status)
		}
	}

	// Step ceiling reached: the run stays running and the next tick picks
	// it up where it left off.
	d.logger.DebugContext(ctx, "Run hit step ceiling for this tick", "run_id", run.ID)

	return nil
}

// advance moves the run along the edge selected by branch, completing the
// run when the node has no matching outgoing edge.
func (d *Driver) advance(ctx context.Context, run *models.WorkflowRun, wf *models.Workflow, node *models.Node, branch string, summary *TickSummary) error {
	next := workflow.NextNode(wf, node.ID, branch)
	if next == "" {
		return d.completeRun(ctx, run, summary)
	}

	run.CurrentNodeID = &next
	run.Status = models.RunStatusRunning
	run.WaitingUntil = nil
	run.WaitingForEvent = nil

	err := d.persistence.RunRepository().Update(ctx, run)
	if err != nil {
		return err
	}

	summary.Advanced++

	return nil
}

func (d *Driver) completeRun(ctx context.Context, run *models.WorkflowRun, summary *TickSummary) error {
	run.Status = models.RunStatusCompleted
	run.CurrentNodeID = nil
	run.WaitingUntil = nil
	run.WaitingForEvent = nil

	err := d.persistence.RunRepository().Update(ctx, run)
	if err != nil {
		return err
	}

	entry := &models.EventLogEntry{
		RunID:   run.ID,
		Action:  models.LogActionWorkflowCompleted,
		Outcome: models.LogOutcomeSuccess,
	}

	err = d.persistence.EventLogRepository().Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to log run completion: %w", err)
	}

	summary.Completed++

	d.logger.InfoContext(ctx, "Run completed", "run_id", run.ID, "workflow_id", run.WorkflowID)

	return nil
}

// failRun marks the run failed with the reason recorded in both the run
// context and the event log. Failure is terminal: no retry.
func (d *Driver) failRun(ctx context.Context, run *models.WorkflowRun, node *models.Node, reason string) error {
	run.Status = models.RunStatusFailed
	run.WaitingUntil = nil
	run.WaitingForEvent = nil
	run.SetFact(models.ContextKeyLastError, reason)

	err := d.persistence.RunRepository().Update(ctx, run)
	if err != nil {
		return err
	}

	entry := &models.EventLogEntry{
		RunID:   run.ID,
		Action:  models.LogActionWorkflowFailed,
		Outcome: models.LogOutcomeFailed,
		Detail:  map[string]any{"error": reason},
	}
	if node != nil {
		entry.NodeID = node.ID
		entry.NodeType = node.Type
	}

	err = d.persistence.EventLogRepository().Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to log run failure: %w", err)
	}

	d.logger.WarnContext(ctx, "Run failed",
		"run_id", run.ID,
		"workflow_id", run.WorkflowID,
		"reason", reason,
	)

	return nil
}

func sameWait(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}

func sameEvent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}
