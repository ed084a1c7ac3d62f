package linkedin

import (
	"context"

	"github.com/dripline/dripline/pkg/models"
	"github.com/dripline/dripline/pkg/protocol"
)

// CommentAdapter comments on a lead's most recent post.
type CommentAdapter struct {
	client *Client
}

func NewCommentAdapter(client *Client) *CommentAdapter {
	return &CommentAdapter{client: client}
}

func (a *CommentAdapter) ID() string {
	return models.NodeTypeActionComment
}

func (a *CommentAdapter) Deliver(ctx context.Context, lead *models.Lead, config map[string]any) protocol.DispatchResult {
	comment, _ := config["comment"].(string)
	if comment == "" {
		return protocol.DispatchResult{Success: false, Error: "comment config is empty"}
	}

	_, err := a.client.post(ctx, "/v1/comments", map[string]any{
		"profile_url": lead.LinkedinURL,
		"comment":     comment,
	})
	if err != nil {
		return protocol.DispatchResult{Success: false, Error: err.Error()}
	}

	return protocol.DispatchResult{Success: true}
}

func (a *CommentAdapter) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeActionComment: {
			"type": "object",
			"properties": map[string]any{
				"comment": map[string]any{
					"type":        "string",
					"description": "Comment body to post.",
					"minLength":   1,
				},
			},
			"required": []string{"comment"},
		},
	}
}
