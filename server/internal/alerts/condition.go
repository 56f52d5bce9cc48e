package alerts

import (
	"strconv"
	"strings"

	"github.com/renderworks/plantops/server/internal/compute"
)

// evalCondition evaluates a rule condition string against a factory's daily
// metrics.
//
// Supported expressions (field operator value):
//
//	remaining_kg < 0
//	rate_ton < 1.5
//	net_active_minutes < 60
//	consumption_kg > 20000
//	received_kg == 0
//	state == stopped
//	state != running
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, out compute.Output) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "state" {
		switch op {
		case "==":
			return out.State == rhs, 0
		case "!=":
			return out.State != rhs, 0
		}
		return false, 0
	}

	v, ok := numericField(field, out)
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return compareFloat(v, op, threshold), v
}

// numericField maps a field name to its value in the metrics.
func numericField(field string, out compute.Output) (float64, bool) {
	switch field {
	case "rate_ton":
		return out.RateTon, true
	case "remaining_kg":
		return out.RemainingKg, true
	case "net_active_minutes":
		return out.NetActiveMinutes, true
	case "consumption_kg":
		return out.TotalConsumption, true
	case "received_kg":
		return out.ReceivedKg, true
	default:
		return 0, false
	}
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
