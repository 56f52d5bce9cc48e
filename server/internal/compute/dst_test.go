package compute

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/renderworks/plantops/pkg/types"
)

func amsterdam(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	return loc
}

func localCycle(date, start, end string) types.CookingCycle {
	c := types.CookingCycle{ID: start, FactoryID: "f1", Date: date, Start: types.MustTimeOfDay(start)}
	if end != "" {
		c.End = tod(end)
	}
	return c
}

// Clocks jump 02:00 CET -> 03:00 CEST on 2026-03-29.
func TestReconcile_SpringForwardDay(t *testing.T) {
	loc := amsterdam(t)
	d := time.Date(2026, 3, 29, 0, 0, 0, 0, loc)
	now := time.Date(2026, 3, 29, 10, 0, 0, 0, loc)

	t.Run("open cycle after the jump", func(t *testing.T) {
		cycles := []types.CookingCycle{localCycle("2026-03-29", "09:30", "")}
		if got := Reconcile(d, now, cycles, nil); got != 30 {
			t.Errorf("net = %v, want 30", got)
		}
		out := Compute(Input{FactoryID: "f1", Day: d, Now: now, Cycles: cycles})
		if !out.Display.IsActive || out.Display.ElapsedString != "00:30:00" {
			t.Errorf("display = %+v, want active 00:30:00", out.Display)
		}
	})

	t.Run("cycle spanning the jump", func(t *testing.T) {
		cycles := []types.CookingCycle{localCycle("2026-03-29", "01:00", "04:00")}
		if got := Reconcile(d, now, cycles, nil); got != 120 {
			t.Errorf("net = %v, want 120 (one hour skipped)", got)
		}
	})

	t.Run("downtime anchored by instant", func(t *testing.T) {
		cycles := []types.CookingCycle{localCycle("2026-03-29", "08:00", "09:00")}
		s := time.Date(2026, 3, 29, 8, 15, 0, 0, loc)
		e := time.Date(2026, 3, 29, 8, 45, 0, 0, loc)
		downtime := []types.DowntimeInterval{{ID: "d", FactoryID: "f1", Date: "2026-03-29", Start: &s, End: &e}}
		if got := Reconcile(d, now, cycles, downtime); got != 30 {
			t.Errorf("net = %v, want 30", got)
		}
	})
}

// Clocks fall back 03:00 CEST -> 02:00 CET on 2026-10-25.
func TestReconcile_FallBackDay(t *testing.T) {
	loc := amsterdam(t)
	d := time.Date(2026, 10, 25, 0, 0, 0, 0, loc)
	now := time.Date(2026, 10, 25, 12, 0, 0, 0, loc)

	cycles := []types.CookingCycle{localCycle("2026-10-25", "01:00", "04:00")}
	if got := Reconcile(d, now, cycles, nil); got != 240 {
		t.Errorf("net = %v, want 240 (one hour repeated)", got)
	}
	if got := types.MustTimeOfDay("09:30").On(d); got.Hour() != 9 || got.Minute() != 30 {
		t.Errorf("anchored 09:30 = %v", got)
	}
}
