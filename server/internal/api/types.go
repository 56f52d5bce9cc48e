package api

import "github.com/renderworks/plantops/pkg/types"

// Record kinds accepted by the lock probe.
const (
	KindCycle      = "cycle"
	KindDowntime   = "downtime"
	KindProduction = "production"
	KindReceipt    = "receipt"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status     string   `json:"status"`
	Timezone   string   `json:"timezone"`
	Factories  []string `json:"factories"`
	Version    uint64   `json:"version"`
	ServerTime string   `json:"server_time"` // RFC3339
}

// LockResponse is the payload for GET .../lock/{kind}/{id}.
type LockResponse struct {
	Kind           string `json:"kind"`
	ID             string `json:"id"`
	RequiresReauth bool   `json:"requires_reauth"`
}

// CycleRequest is the body for POST .../cycles and PUT .../cycles/{id}.
// On create, omitted date and start_time default to the plant's current day
// and clock. On update, omitted fields keep their stored values.
type CycleRequest struct {
	Date      string           `json:"date"`
	StartTime *types.TimeOfDay `json:"start_time"`
	EndTime   *types.TimeOfDay `json:"end_time"`
}

// FinishRequest is the optional body for POST .../cycles/{id}/finish.
type FinishRequest struct {
	EndTime *types.TimeOfDay `json:"end_time"`
}

// StartDowntimeRequest is the optional body for POST .../downtime/start.
type StartDowntimeRequest struct {
	Reason string `json:"reason"`
}

// DowntimeRequest is the body for POST .../downtime: either a manual
// duration_hours or a closed start_time/end_time pair (RFC3339).
type DowntimeRequest struct {
	Date          string  `json:"date"`
	Reason        string  `json:"reason"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	DurationHours float64 `json:"duration_hours"`
}

// ProductionRequest is the body for POST .../production.
type ProductionRequest struct {
	Date     string  `json:"date"`
	InputKg  float64 `json:"input_kg"`
	OutputKg float64 `json:"output_kg"`
}

// ReceiptRequest is the body for POST .../receipts.
type ReceiptRequest struct {
	Date       string  `json:"date"`
	Supplier   string  `json:"supplier"`
	QuantityKg float64 `json:"quantity_kg"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
