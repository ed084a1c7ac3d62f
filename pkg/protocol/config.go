package protocol

import (
	"fmt"
	"time"
)

// ConfigString reads a string value from a node config payload.
func ConfigString(config map[string]any, key string) string {
	s, _ := config[key].(string)

	return s
}

// ConfigNumber reads a numeric value from a node config payload. JSON
// decoding yields float64, but hand-built configs may carry ints.
func ConfigNumber(config map[string]any, key string) (float64, bool) {
	switch v := config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ConfigDuration reads the "duration"/"unit" pair used by delay nodes and
// elapsed-time conditions.
func ConfigDuration(config map[string]any) (time.Duration, error) {
	magnitude, ok := ConfigNumber(config, "duration")
	if !ok || magnitude <= 0 {
		return 0, fmt.Errorf("missing or invalid 'duration' in configuration")
	}

	unit := ConfigString(config, "unit")

	switch unit {
	case "minutes":
		return time.Duration(magnitude * float64(time.Minute)), nil
	case "hours":
		return time.Duration(magnitude * float64(time.Hour)), nil
	case "days", "":
		return time.Duration(magnitude * 24 * float64(time.Hour)), nil
	default:
		return 0, fmt.Errorf("unknown duration unit %q", unit)
	}
}

// ConfigTimeout reads the "timeout_days" value used by event-waiting
// conditions. Zero means no timeout: the run waits until the event arrives
// or an external actor cancels it.
func ConfigTimeout(config map[string]any) time.Duration {
	days, ok := ConfigNumber(config, "timeout_days")
	if !ok || days <= 0 {
		return 0
	}

	return time.Duration(days * 24 * float64(time.Hour))
}

// ElapsedSinceTransition returns how long the run has sat on its current
// node, measured from the last persisted transition. All timeout and
// elapsed-time policies go through this single definition.
func (s ExecutionState) ElapsedSinceTransition() time.Duration {
	return s.Now.Sub(s.Run.UpdatedAt)
}
