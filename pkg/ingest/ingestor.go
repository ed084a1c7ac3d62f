// Package ingest consumes channel signals from the event bus and records
// them as facts on the lead's workflow runs, waking runs parked on the
// matching event.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/eventbus"
	"github.com/dripline/dripline/pkg/events"
	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/persistence"
)

// Ingestor applies channel events to runs. Facts are merged into every
// non-terminal run of the lead, whether or not the run has reached the
// condition that reads them: a fact that arrives early is simply found
// already present when the condition executes.
type Ingestor struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewIngestor(p persistence.Persistence, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		persistence: p,
		logger:      logger.With("module", "ingest"),
	}
}

// RegisterHandlers subscribes the ingestor to the channel signal types it
// understands.
func (i *Ingestor) RegisterHandlers(bus eventbus.EventBus) error {
	err := bus.Handle(events.ConnectionAcceptedEvent, i.HandleConnectionAccepted)
	if err != nil {
		return err
	}

	return bus.Handle(events.MessageReceivedEvent, i.HandleMessageReceived)
}

// HandleConnectionAccepted records the acceptance fact on the lead's runs.
func (i *Ingestor) HandleConnectionAccepted(ctx context.Context, raw any) error {
	event, ok := raw.(*events.ConnectionAccepted)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	facts := map[string]any{models.FactConnectionAccepted: true}

	return i.applyToLeadRuns(ctx, event.LeadID, facts, models.FactConnectionAccepted)
}

// HandleMessageReceived records the reply facts on the lead's runs.
func (i *Ingestor) HandleMessageReceived(ctx context.Context, raw any) error {
	event, ok := raw.(*events.MessageReceived)
	if !ok {
		return fmt.Errorf("unexpected event payload %T", raw)
	}

	if err := event.Validate(); err != nil {
		return err
	}

	facts := map[string]any{
		models.FactMessageReceived: true,
		models.FactMessageBody:     event.Body,
	}

	return i.applyToLeadRuns(ctx, event.LeadID, facts, models.FactMessageReceived)
}

// runPageSize is the listing page used when walking a lead's runs. It must
// stay within the repositories' List limit cap.
const runPageSize = 100

func (i *Ingestor) applyToLeadRuns(ctx context.Context, leadID string, facts map[string]any, wakeEvent string) error {
	var applied int

	for offset := 0; ; offset += runPageSize {
		runs, err := i.persistence.RunRepository().List(ctx, persistence.ListRunsOptions{
			LeadID: leadID,
			Limit:  runPageSize,
			Offset: offset,
		})
		if err != nil {
			return fmt.Errorf("failed to list runs for lead %s: %w", leadID, err)
		}

		for _, run := range runs {
			if run.IsTerminal() {
				continue
			}

			err = i.persistence.RunRepository().MergeFacts(ctx, run.ID, facts, wakeEvent)
			if err != nil {
				return fmt.Errorf("failed to merge facts into run %s: %w", run.ID, err)
			}

			applied++
		}

		if len(runs) < runPageSize {
			break
		}
	}

	i.logger.InfoContext(ctx, "Channel signal ingested",
		"lead_id", leadID,
		"wake_event", wakeEvent,
		"runs_updated", applied,
	)

	return nil
}
