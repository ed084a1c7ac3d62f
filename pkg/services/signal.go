package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dripline/dripline/pkg/eventbus"
	"github.com/dripline/dripline/pkg/events"
)

// Signal publishes inbound channel notifications (webhook deliveries from
// the channel proxies) onto the event bus for the ingestion daemon.
type Signal struct {
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

func NewSignal(publisher eventbus.EventPublisher, logger *slog.Logger) *Signal {
	return &Signal{
		publisher: publisher,
		logger:    logger.With("module", "signal_service"),
	}
}

// PublishChannelEvent maps a raw webhook payload to a typed channel event
// and publishes it keyed by lead so all signals for a lead stay ordered.
func (s *Signal) PublishChannelEvent(ctx context.Context, eventType, leadID, channel, body string) (string, error) {
	if leadID == "" {
		return "", fmt.Errorf("%w: lead_id is required", ErrInvalidRequest)
	}

	var (
		event eventbus.Event
		id    string
	)

	switch events.EventType(eventType) {
	case events.ConnectionAcceptedEvent:
		accepted := events.NewConnectionAccepted(leadID, channel)
		event, id = accepted, accepted.ID
	case events.MessageReceivedEvent:
		received := events.NewMessageReceived(leadID, channel, body)
		event, id = received, received.ID
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}

	err := s.publisher.Publish(ctx, leadID, event)
	if err != nil {
		return "", fmt.Errorf("failed to publish channel event: %w", err)
	}

	s.logger.InfoContext(ctx, "Channel event published",
		"event_type", eventType,
		"lead_id", leadID,
		"channel", channel,
	)

	return id, nil
}
