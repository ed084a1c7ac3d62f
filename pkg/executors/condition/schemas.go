package condition

import "github.com/dripline/dripline/pkg/models"

func (e *Executor) Schemas() map[string]map[string]any {
	return map[string]map[string]any{
		models.NodeTypeConditionConnectionAccepted: {
			"type": "object",
			"properties": map[string]any{
				"timeout_days": map[string]any{
					"type":        "number",
					"description": "Days to wait for acceptance before taking the no branch. 0 waits forever.",
					"minimum":     0,
				},
			},
		},
		models.NodeTypeConditionMessageReceived: {
			"type": "object",
			"properties": map[string]any{
				"keyword": map[string]any{
					"type":        "string",
					"description": "Optional case-insensitive substring the inbound message must contain.",
				},
				"timeout_days": map[string]any{
					"type":        "number",
					"description": "Days to wait for a reply before taking the no branch. 0 waits forever.",
					"minimum":     0,
				},
			},
		},
		models.NodeTypeConditionLeadAttribute: {
			"type": "object",
			"properties": map[string]any{
				"field": map[string]any{
					"type":        "string",
					"description": "Lead field or custom attribute name.",
				},
				"operator": map[string]any{
					"type": "string",
					"enum": []string{
						OperatorEquals,
						OperatorContains,
						OperatorStartsWith,
						OperatorEndsWith,
						OperatorIsEmpty,
						OperatorIsNotEmpty,
					},
				},
				"value": map[string]any{
					"type":        "string",
					"description": "Operand for the comparison operators.",
				},
			},
			"required": []string{"field", "operator"},
		},
		models.NodeTypeConditionElapsedTime: {
			"type": "object",
			"properties": map[string]any{
				"duration": map[string]any{
					"type":             "number",
					"exclusiveMinimum": 0,
				},
				"unit": map[string]any{
					"type": "string",
					"enum": []string{"minutes", "hours", "days"},
				},
			},
			"required": []string{"duration"},
		},
	}
}
