package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/renderworks/plantops/pkg/types"
	"github.com/renderworks/plantops/server/internal/compute"
	"github.com/renderworks/plantops/server/internal/store"
)

func TestDay_UsesPlantTimezone(t *testing.T) {
	loc := time.FixedZone("plant", -5*3600)
	svc := New(store.New(nil, 0), loc)

	// 02:00 UTC on the 11th is still the 10th at the plant.
	now := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	day := svc.Day(now)
	if got := types.DayOf(day); got != "2026-03-10" {
		t.Errorf("Day = %s, want 2026-03-10", got)
	}
	if day.Hour() != 0 || day.Location() != loc {
		t.Errorf("Day = %v, want local midnight", day)
	}
}

func TestToday_ComputesFromStore(t *testing.T) {
	st := store.New(nil, 0)
	ctx := context.Background()
	end := types.MustTimeOfDay("10:00")
	if _, err := st.AddCycle(ctx, types.CookingCycle{FactoryID: "f1", Date: "2026-03-10", Start: types.MustTimeOfDay("08:00"), End: &end}); err != nil {
		t.Fatalf("AddCycle: %v", err)
	}
	st.AddCycle(ctx, types.CookingCycle{FactoryID: "f2", Date: "2026-03-10", Start: types.MustTimeOfDay("08:00")})
	st.AddProduction(ctx, types.ProductionEntry{FactoryID: "f1", Date: "2026-03-10", InputKg: 4000})
	st.AddReceipt(ctx, types.MaterialReceipt{FactoryID: "f1", Date: "2026-03-10", QuantityKg: 10000})

	svc := New(st, nil)
	out := svc.Today("f1", time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))

	if out.NetActiveMinutes != 120 {
		t.Errorf("NetActiveMinutes = %v, want 120", out.NetActiveMinutes)
	}
	if out.RateTon != 2 {
		t.Errorf("RateTon = %v, want 2", out.RateTon)
	}
	if out.RemainingKg != 6000 {
		t.Errorf("RemainingKg = %v, want 6000", out.RemainingKg)
	}
	if out.State != compute.StateIdle {
		t.Errorf("State = %q, want idle (f2's open cycle must not leak)", out.State)
	}
	if out.Date != "2026-03-10" {
		t.Errorf("Date = %q", out.Date)
	}
}

func TestChanges_Forwarded(t *testing.T) {
	st := store.New(nil, 0)
	svc := New(st, nil)
	ch := svc.Changes()
	st.AddProduction(context.Background(), types.ProductionEntry{FactoryID: "f1", Date: "2026-03-10", InputKg: 1})
	select {
	case <-ch:
	default:
		t.Fatal("change not forwarded")
	}
}
