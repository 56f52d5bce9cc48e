package compute

import (
	"time"

	"github.com/renderworks/plantops/pkg/types"
)

// Line states derived from the open cycle and open downtime.
const (
	StateRunning = "running"
	StateStopped = "stopped"
	StateIdle    = "idle"
)

// Input is everything one recomputation needs. The record slices are the
// unfiltered collections from the records source.
type Input struct {
	// FactoryID restricts the records considered. Empty means all factories.
	FactoryID string

	// Day is the calendar day under evaluation; its location decides how
	// cycle times of day are anchored.
	Day time.Time

	// Now is the evaluation instant.
	Now time.Time

	Cycles     []types.CookingCycle
	Downtime   []types.DowntimeInterval
	Production []types.ProductionEntry
	Receipts   []types.MaterialReceipt
}

// Display is the payload shape expected by dashboard views.
type Display struct {
	RateTon       float64 `json:"rateTon"`
	RemainingVal  float64 `json:"remainingVal"`
	RemainingUnit string  `json:"remainingUnit"`
	ElapsedString string  `json:"elapsedString"`
	IsActive      bool    `json:"isActive"`
	IsStopped     bool    `json:"isStopped"`
}

// Output is the full daily metrics snapshot. It is derived, never persisted.
type Output struct {
	FactoryID        string    `json:"factory_id"`
	Date             string    `json:"date"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
	NetActiveMinutes float64   `json:"net_active_minutes"`
	RateTon          float64   `json:"rate_ton"`
	RemainingKg      float64   `json:"remaining_kg"`
	TotalConsumption float64   `json:"total_consumption"`
	ReceivedKg       float64   `json:"received_kg"`
	State            string    `json:"state"`
	Display          Display   `json:"display"`
	Segments         []Segment `json:"segments"`
}

// Compute recomputes the day's metrics from scratch.
func Compute(in Input) Output {
	cycles := filterCycles(in.FactoryID, in.Cycles)
	downtime := filterDowntime(in.FactoryID, in.Downtime)

	segments := Timeline(in.Day, in.Now, cycles, downtime)
	var active time.Duration
	for _, s := range segments {
		if s.Active {
			active += s.Duration()
		}
	}
	net := active.Minutes()

	totals := Totals(in.Day,
		filterProduction(in.FactoryID, in.Production),
		filterReceipts(in.FactoryID, in.Receipts))
	tp := Estimate(net, totals)

	out := Output{
		FactoryID:        in.FactoryID,
		Date:             types.DayOf(in.Day),
		EvaluatedAt:      in.Now,
		NetActiveMinutes: net,
		RateTon:          tp.RateTon,
		RemainingKg:      tp.RemainingKg,
		TotalConsumption: tp.TotalConsumption,
		ReceivedKg:       totals.ReceivedKg,
		State:            StateIdle,
		Segments:         segments,
	}
	if out.Segments == nil {
		out.Segments = []Segment{}
	}

	val, unit := FormatRemaining(tp.RemainingKg)
	out.Display = Display{
		RateTon:       tp.RateTon,
		RemainingVal:  val,
		RemainingUnit: unit,
		ElapsedString: FormatElapsed(0),
	}

	if open, ok := OpenCycle(in.Day, in.Now, cycles); ok {
		out.State = StateRunning
		out.Display.IsActive = true
		out.Display.ElapsedString = FormatElapsed(in.Now.Sub(open.Start.On(in.Day)))
		if _, stopped := OpenDowntime(in.Now, downtime); stopped {
			out.State = StateStopped
			out.Display.IsStopped = true
		}
	}
	return out
}

func filterCycles(factory string, in []types.CookingCycle) []types.CookingCycle {
	if factory == "" {
		return in
	}
	out := make([]types.CookingCycle, 0, len(in))
	for _, c := range in {
		if c.FactoryID == factory {
			out = append(out, c)
		}
	}
	return out
}

func filterDowntime(factory string, in []types.DowntimeInterval) []types.DowntimeInterval {
	if factory == "" {
		return in
	}
	out := make([]types.DowntimeInterval, 0, len(in))
	for _, d := range in {
		if d.FactoryID == factory {
			out = append(out, d)
		}
	}
	return out
}

func filterProduction(factory string, in []types.ProductionEntry) []types.ProductionEntry {
	if factory == "" {
		return in
	}
	out := make([]types.ProductionEntry, 0, len(in))
	for _, p := range in {
		if p.FactoryID == factory {
			out = append(out, p)
		}
	}
	return out
}

func filterReceipts(factory string, in []types.MaterialReceipt) []types.MaterialReceipt {
	if factory == "" {
		return in
	}
	out := make([]types.MaterialReceipt, 0, len(in))
	for _, r := range in {
		if r.FactoryID == factory {
			out = append(out, r)
		}
	}
	return out
}
