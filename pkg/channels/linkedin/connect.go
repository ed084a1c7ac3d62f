package linkedin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// ConnectAdapter sends a connection request to a lead. It also implements
// protocol.ConnectionChecker so the acceptance condition can poll the
// relationship status when no ingested fact is available yet.
type ConnectAdapter struct {
	client *Client
}

func NewConnectAdapter(client *Client) *ConnectAdapter {
	return &ConnectAdapter{client: client}
}

func (a *ConnectAdapter) ID() string {
	return models.NodeTypeActionLinkedinConnect
}

func (a *ConnectAdapter) Deliver(ctx context.Context, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	if lead.LinkedinURL == "" {
		return protocol.DispatchResult{Success: false, Error: "lead has no linkedin url"}
	}

	payload := map[string]any{
		"profile_url": lead.LinkedinURL,
	}

	if note, ok := config["note"].(string); ok && note != "" {
		payload["note"] = note
	}

	_, err := a.client.post(ctx, "/v1/connections", payload)
	if err != nil {
		return protocol.DispatchResult{Success: false, Error: err.Error()}
	}

	return protocol.DispatchResult{Success: true}
}

// ConnectionAccepted asks the proxy for the live relationship status.
func (a *ConnectAdapter) ConnectionAccepted(ctx context.Context, lead *models.Lead) (bool, error) {
	query := url.Values{"profile_url": {lead.LinkedinURL}}

	data, err := a.client.get(ctx, "/v1/connections/status?"+query.Encode())
	if err != nil {
		return false, fmt.Errorf("connection status check failed: %w", err)
	}

	status, _ := data["status"].(string)

	return status == "connected", nil
}

func (a *ConnectAdapter) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeActionLinkedinConnect: {
			"type": "object",
			"properties": map[string]any{
				"note": map[string]any{
					"type":        "string",
					"description": "Optional note attached to the connection request.",
				},
			},
		},
	}
}
