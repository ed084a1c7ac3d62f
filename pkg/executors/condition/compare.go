package condition

import (
	"fmt"
	"strings"
)

// Operators accepted by condition_lead_attribute.
const (
	OperatorEquals     = "equals"
	OperatorContains   = "contains"
	OperatorStartsWith = "starts_with"
	OperatorEndsWith   = "ends_with"
	OperatorIsEmpty    = "is_empty"
	OperatorIsNotEmpty = "is_not_empty"
)

// compareAttribute evaluates the lead attribute operator against a field
// value. All string comparisons are case-insensitive.
func compareAttribute(value, operator, operand string) (bool, error) {
	switch operator {
	case OperatorEquals:
		return strings.EqualFold(value, operand), nil
	case OperatorContains:
		return containsFold(value, operand), nil
	case OperatorStartsWith:
		return hasPrefixFold(value, operand), nil
	case OperatorEndsWith:
		return hasSuffixFold(value, operand), nil
	case OperatorIsEmpty:
		return strings.TrimSpace(value) == "", nil
	case OperatorIsNotEmpty:
		return strings.TrimSpace(value) != "", nil
	default:
		return false, fmt.Errorf("unsupported operator %q", operator)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func hasPrefixFold(value, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(value), strings.ToLower(prefix))
}

func hasSuffixFold(value, suffix string) bool {
	return strings.HasSuffix(strings.ToLower(value), strings.ToLower(suffix))
}
