// Package events defines the channel signals ingested into workflow runs:
// connection acceptances and inbound replies reported by the outreach
// channels.
package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every channel signal.
const Topic = "dripline.channel.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ConnectionAcceptedEvent EventType = "channel.connection.accepted"
	MessageReceivedEvent    EventType = "channel.message.received"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	LeadID    string         `json:"lead_id"`
	Channel   string         `json:"channel,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func newBaseEvent(eventType EventType, leadID, channel string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		LeadID:    leadID,
		Channel:   channel,
	}
}

func (b BaseEvent) Validate() error {
	if b.LeadID == "" {
		return errors.New("lead_id is required")
	}

	return nil
}

// ConnectionAccepted signals that a lead accepted a connection request.
type ConnectionAccepted struct {
	BaseEvent

	ProfileURL string `json:"profile_url,omitempty"`
}

func NewConnectionAccepted(leadID, channel string) *ConnectionAccepted {
	return &ConnectionAccepted{BaseEvent: newBaseEvent(ConnectionAcceptedEvent, leadID, channel)}
}

func (c ConnectionAccepted) GetType() EventType {
	return ConnectionAcceptedEvent
}

// MessageReceived signals an inbound reply from a lead.
type MessageReceived struct {
	BaseEvent

	Body string `json:"body"`
}

func NewMessageReceived(leadID, channel, body string) *MessageReceived {
	event := &MessageReceived{BaseEvent: newBaseEvent(MessageReceivedEvent, leadID, channel)}
	event.Body = body

	return event
}

func (m MessageReceived) GetType() EventType {
	return MessageReceivedEvent
}
