package protocol

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
)

// DispatchResult is the normalized result of one outbound channel call.
// Retries and rate-limit backoff are the adapter's concern; the engine only
// ever sees this shape.
type DispatchResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ChannelAdapter performs the outbound action for exactly one action node
// type against a third-party channel.
type ChannelAdapter interface {
	// ID returns the action node type this adapter serves.
	ID() string

	Deliver(ctx context.Context, lead *models.Lead, config map[string]any) DispatchResult
}

// ConnectionChecker is an optional capability of channel adapters that can
// report whether a lead has accepted a pending connection request. The
// acceptance condition polls it at most once per tick, and only when the
// fact is not already in the run context.
type ConnectionChecker interface {
	ConnectionAccepted(ctx context.Context, lead *models.Lead) (bool, error)
}
