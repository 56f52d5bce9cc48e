package compute

import (
	"math"
	"testing"
	"time"

	"github.com/renderworks/plantops/pkg/types"
)

func TestEstimate_ZeroActiveTime_ZeroRate(t *testing.T) {
	out := Estimate(0, MaterialTotals{ConsumedKg: 5000, ReceivedKg: 8000})
	if out.RateTon != 0 {
		t.Errorf("RateTon with no active time = %v, want exactly 0", out.RateTon)
	}
	if math.IsNaN(out.RateTon) || math.IsInf(out.RateTon, 0) {
		t.Errorf("RateTon must be finite, got %v", out.RateTon)
	}
	if out.RemainingKg != 3000 {
		t.Errorf("RemainingKg = %v, want 3000", out.RemainingKg)
	}
}

func TestEstimate_Rate(t *testing.T) {
	// 12 t consumed over 2 h of net active time → 6 t/h.
	out := Estimate(120, MaterialTotals{ConsumedKg: 12000, ReceivedKg: 20000})
	if !almostEqual(out.RateTon, 6, 1e-9) {
		t.Errorf("RateTon = %v, want 6", out.RateTon)
	}
	if out.TotalConsumption != 12000 {
		t.Errorf("TotalConsumption = %v, want 12000", out.TotalConsumption)
	}
	if out.RemainingKg != 8000 {
		t.Errorf("RemainingKg = %v, want 8000", out.RemainingKg)
	}
}

func TestEstimate_OverConsumptionNotClamped(t *testing.T) {
	out := Estimate(60, MaterialTotals{ConsumedKg: 11500, ReceivedKg: 10000})
	if out.RemainingKg != -1500 {
		t.Errorf("RemainingKg = %v, want -1500", out.RemainingKg)
	}
	val, unit := FormatRemaining(out.RemainingKg)
	if val != -1.5 || unit != UnitTonne {
		t.Errorf("FormatRemaining(-1500) = %v %s, want -1.5 t", val, unit)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		kg       float64
		wantVal  float64
		wantUnit string
	}{
		{999, 999, UnitKg},
		{1000, 1, UnitTonne},
		{2500, 2.5, UnitTonne},
		{-999.5, -999.5, UnitKg},
		{-1000, -1, UnitTonne},
		{0, 0, UnitKg},
	}
	for _, tc := range tests {
		val, unit := FormatRemaining(tc.kg)
		if val != tc.wantVal || unit != tc.wantUnit {
			t.Errorf("FormatRemaining(%v) = %v %s, want %v %s", tc.kg, val, unit, tc.wantVal, tc.wantUnit)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{time.Hour + 2*time.Minute + 3*time.Second, "01:02:03"},
		{13*time.Hour + 1500*time.Millisecond, "13:00:01"},
		{-time.Minute, "00:00:00"},
	}
	for _, tc := range tests {
		if got := FormatElapsed(tc.d); got != tc.want {
			t.Errorf("FormatElapsed(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestTotals_FiltersByDay(t *testing.T) {
	other := types.DayOf(day.AddDate(0, 0, -1))
	today := types.DayOf(day)
	totals := Totals(day,
		[]types.ProductionEntry{
			{Date: today, InputKg: 4000},
			{Date: today, InputKg: 1500},
			{Date: other, InputKg: 9999},
		},
		[]types.MaterialReceipt{
			{Date: today, QuantityKg: 7000},
			{Date: other, QuantityKg: 1},
		},
	)
	if totals.ConsumedKg != 5500 {
		t.Errorf("ConsumedKg = %v, want 5500", totals.ConsumedKg)
	}
	if totals.ReceivedKg != 7000 {
		t.Errorf("ReceivedKg = %v, want 7000", totals.ReceivedKg)
	}
}
