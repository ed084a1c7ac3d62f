package linkedin

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// MessageAdapter delivers a direct message to a lead.
type MessageAdapter struct {
	client *Client
}

func NewMessageAdapter(client *Client) *MessageAdapter {
	return &MessageAdapter{client: client}
}

func (a *MessageAdapter) ID() string {
	return models.NodeTypeActionSendMessage
}

func (a *MessageAdapter) Deliver(ctx context.Context, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	message, _ := config["message"].(string)
	if message == "" {
		return protocol.DispatchResult{Success: false, Error: "message config is empty"}
	}

	_, err := a.client.post(ctx, "/v1/messages", map[string]any{
		"profile_url": lead.LinkedinURL,
		"message":     message,
	})
	if err != nil {
		return protocol.DispatchResult{Success: false, Error: err.Error()}
	}

	return protocol.DispatchResult{Success: true}
}

func (a *MessageAdapter) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeActionSendMessage: {
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":        "string",
					"description": "Message body to deliver. Rendered upstream by the message-generation pipeline.",
					"minLength":   1,
				},
			},
			"required": []string{"message"},
		},
	}
}
