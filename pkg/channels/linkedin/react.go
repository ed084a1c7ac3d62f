package linkedin

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// ReactAdapter reacts to a lead's most recent post.
type ReactAdapter struct {
	client *Client
}

func NewReactAdapter(client *Client) *ReactAdapter {
	return &ReactAdapter{client: client}
}

func (a *ReactAdapter) ID() string {
	return models.NodeTypeActionReact
}

func (a *ReactAdapter) Deliver(ctx context.Context, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	reaction, _ := config["reaction"].(string)
	if reaction == "" {
		reaction = "like"
	}

	_, err := a.client.post(ctx, "/v1/reactions", map[string]any{
		"profile_url": lead.LinkedinURL,
		"reaction":    reaction,
	})
	if err != nil {
		return protocol.DispatchResult{Success: false, Error: err.Error()}
	}

	return protocol.DispatchResult{Success: true}
}

func (a *ReactAdapter) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeActionReact: {
			"type": "object",
			"properties": map[string]any{
				"reaction": map[string]any{
					"type":        "string",
					"description": "Reaction type. Defaults to like.",
					"enum":        []string{"like", "celebrate", "support", "insightful", "funny"},
				},
			},
		},
	}
}
