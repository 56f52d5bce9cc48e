package compute

import (
	"time"

	"github.com/renderworks/plantops/pkg/types"
)

// MaterialTotals are the day's material figures, in kilograms.
type MaterialTotals struct {
	// ConsumedKg is the raw material consumed by production entries.
	ConsumedKg float64
	// ReceivedKg is the raw material received at the plant.
	ReceivedKg float64
}

// Throughput is the live rate and remaining-input projection for a day.
type Throughput struct {
	// RateTon is tonnes consumed per hour of net active time. Exactly 0 when
	// there has been no active time.
	RateTon float64
	// RemainingKg is intake minus consumption. Negative means more was
	// consumed than received that day and is reported as-is.
	RemainingKg float64
	// TotalConsumption is ConsumedKg, carried through for display.
	TotalConsumption float64
}

// Totals sums production input and receipts dated day.
func Totals(day time.Time, production []types.ProductionEntry, receipts []types.MaterialReceipt) MaterialTotals {
	date := types.DayOf(day)
	var t MaterialTotals
	for _, p := range production {
		if p.Date == date {
			t.ConsumedKg += p.InputKg
		}
	}
	for _, r := range receipts {
		if r.Date == date {
			t.ReceivedKg += r.QuantityKg
		}
	}
	return t
}

// Estimate derives the throughput figures from net active minutes and the
// day's material totals.
func Estimate(netActiveMinutes float64, totals MaterialTotals) Throughput {
	out := Throughput{
		TotalConsumption: totals.ConsumedKg,
		RemainingKg:      totals.ReceivedKg - totals.ConsumedKg,
	}
	if netActiveMinutes > 0 {
		out.RateTon = totals.ConsumedKg / 1000 / (netActiveMinutes / 60)
	}
	return out
}
