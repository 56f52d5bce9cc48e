package compute

import (
	"math"
	"testing"
	"time"

	"github.com/renderworks/plantops/pkg/types"
)

// day is the fixed calendar day every test evaluates.
var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

// at returns day at the given HH:MM[:SS].
func at(hhmm string) time.Time {
	return types.MustTimeOfDay(hhmm).On(day)
}

func tod(hhmm string) *types.TimeOfDay {
	t := types.MustTimeOfDay(hhmm)
	return &t
}

func cycle(id, start, end string) types.CookingCycle {
	c := types.CookingCycle{ID: id, FactoryID: "f1", Date: types.DayOf(day), Start: types.MustTimeOfDay(start)}
	if end != "" {
		c.End = tod(end)
	}
	return c
}

func stop(id, start, end string) types.DowntimeInterval {
	s := at(start)
	d := types.DowntimeInterval{ID: id, FactoryID: "f1", Date: types.DayOf(day), Start: &s}
	if end != "" {
		e := at(end)
		d.End = &e
		d.DurationHours = e.Sub(s).Hours()
	}
	return d
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// --- Basic spans ---

func TestReconcile_NoCycles_Zero(t *testing.T) {
	got := Reconcile(day, at("12:00"), nil, []types.DowntimeInterval{stop("d", "10:00", "11:00")})
	if got != 0 {
		t.Errorf("no cycles: got %v, want 0", got)
	}
}

func TestReconcile_SingleClosedCycle(t *testing.T) {
	got := Reconcile(day, at("12:00"), []types.CookingCycle{cycle("c", "09:00", "11:00")}, nil)
	if got != 120 {
		t.Errorf("09:00-11:00: got %v, want 120", got)
	}
}

func TestReconcile_DowntimeInsideCycle(t *testing.T) {
	got := Reconcile(day, at("12:00"),
		[]types.CookingCycle{cycle("c", "09:00", "11:00")},
		[]types.DowntimeInterval{stop("d", "10:00", "10:30")},
	)
	if got != 90 {
		t.Errorf("with 30 min stop: got %v, want 90", got)
	}
}

func TestReconcile_OpenCycleAdvancesWithNow(t *testing.T) {
	now := at("14:00")
	cycles := []types.CookingCycle{cycle("c", "13:30", "")}

	if got := Reconcile(day, now, cycles, nil); got != 30 {
		t.Errorf("open 30 min: got %v, want 30", got)
	}
	if got := Reconcile(day, now.Add(10*time.Minute), cycles, nil); got != 40 {
		t.Errorf("10 min later: got %v, want 40", got)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	now := at("15:12:30")
	cycles := []types.CookingCycle{cycle("a", "06:00", "08:15"), cycle("b", "14:00", "")}
	downtime := []types.DowntimeInterval{stop("d1", "07:00", "07:20"), stop("d2", "15:00", "")}

	first := Reconcile(day, now, cycles, downtime)
	second := Reconcile(day, now, cycles, downtime)
	if first != second {
		t.Errorf("repeat call: got %v then %v", first, second)
	}
}

func TestReconcile_Monotonic(t *testing.T) {
	cycles := []types.CookingCycle{cycle("a", "06:00", "08:00"), cycle("b", "09:00", "")}
	downtime := []types.DowntimeInterval{stop("d1", "09:30", "09:45"), stop("d2", "10:30", "")}

	prev := -1.0
	for now := at("05:00"); now.Before(at("12:00")); now = now.Add(7 * time.Minute) {
		got := Reconcile(day, now, cycles, downtime)
		if got < prev {
			t.Fatalf("at %s: got %v, previous %v (decreased)", now.Format("15:04"), got, prev)
		}
		prev = got
	}
}

// --- Downtime variants ---

func TestReconcile_ManualDowntimeNotSubtracted(t *testing.T) {
	manual := types.DowntimeInterval{ID: "m", FactoryID: "f1", Date: types.DayOf(day), DurationHours: 1, Reason: "cleaning"}
	got := Reconcile(day, at("12:00"), []types.CookingCycle{cycle("c", "09:00", "11:00")}, []types.DowntimeInterval{manual})
	if got != 120 {
		t.Errorf("manual downtime: got %v, want 120", got)
	}
}

func TestReconcile_OpenDowntimeRunsToNow(t *testing.T) {
	cycles := []types.CookingCycle{cycle("c", "09:00", "")}
	downtime := []types.DowntimeInterval{stop("d", "09:40", "")}

	// 60 min of cycle, 20 min stopped.
	if got := Reconcile(day, at("10:00"), cycles, downtime); got != 40 {
		t.Errorf("open stop: got %v, want 40", got)
	}
	// Net time is frozen while the stop is ongoing.
	if got := Reconcile(day, at("10:30"), cycles, downtime); got != 40 {
		t.Errorf("open stop later: got %v, want 40", got)
	}
}

func TestReconcile_PartialOverlapClamped(t *testing.T) {
	tests := []struct {
		name string
		d    types.DowntimeInterval
		want float64
	}{
		{"starts before cycle", stop("d", "08:30", "09:30"), 90},
		{"ends after cycle", stop("d", "10:45", "12:00"), 105},
		{"covers cycle", stop("d", "08:00", "12:00"), 0},
		{"outside cycle", stop("d", "12:00", "12:30"), 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Reconcile(day, at("13:00"), []types.CookingCycle{cycle("c", "09:00", "11:00")}, []types.DowntimeInterval{tc.d})
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestReconcile_OverlappingDowntimeNotDoubleCounted(t *testing.T) {
	got := Reconcile(day, at("13:00"),
		[]types.CookingCycle{cycle("c", "09:00", "11:00")},
		[]types.DowntimeInterval{stop("d1", "09:30", "10:00"), stop("d2", "09:45", "10:15")},
	)
	if got != 75 {
		t.Errorf("overlapping stops: got %v, want 75", got)
	}
}

func TestReconcile_MultipleOpenDowntime_LatestWins(t *testing.T) {
	cycles := []types.CookingCycle{cycle("c", "08:00", "")}
	downtime := []types.DowntimeInterval{
		stop("old", "08:10", ""),
		stop("new", "09:30", ""),
	}
	// 120 min of cycle; only the 09:30 stop counts (30 min).
	if got := Reconcile(day, at("10:00"), cycles, downtime); got != 90 {
		t.Errorf("two open stops: got %v, want 90", got)
	}
}

func TestReconcile_FutureDowntimeIgnored(t *testing.T) {
	cycles := []types.CookingCycle{cycle("c", "08:00", "")}
	downtime := []types.DowntimeInterval{stop("later", "11:00", "")}
	if got := Reconcile(day, at("10:00"), cycles, downtime); got != 120 {
		t.Errorf("future stop: got %v, want 120", got)
	}
}

// --- Cycle selection ---

func TestReconcile_FutureCycleExcluded(t *testing.T) {
	cycles := []types.CookingCycle{cycle("now", "09:00", ""), cycle("skew", "10:30", "")}
	if got := Reconcile(day, at("10:00"), cycles, nil); got != 60 {
		t.Errorf("future start: got %v, want 60", got)
	}

	closedFuture := []types.CookingCycle{cycle("planned", "15:00", "16:00")}
	if got := Reconcile(day, at("10:00"), closedFuture, nil); got != 0 {
		t.Errorf("closed future cycle: got %v, want 0", got)
	}
}

func TestReconcile_OtherDaysIgnored(t *testing.T) {
	yesterday := cycle("y", "09:00", "11:00")
	yesterday.Date = types.DayOf(day.AddDate(0, 0, -1))
	got := Reconcile(day, at("12:00"), []types.CookingCycle{yesterday, cycle("c", "11:00", "11:30")}, nil)
	if got != 30 {
		t.Errorf("other day: got %v, want 30", got)
	}
}

func TestReconcile_OverlappingCyclesMerged(t *testing.T) {
	got := Reconcile(day, at("13:00"),
		[]types.CookingCycle{cycle("a", "09:00", "10:30"), cycle("b", "10:00", "11:00")}, nil)
	if got != 120 {
		t.Errorf("overlapping cycles: got %v, want 120", got)
	}
}

func TestReconcile_OpenCycleCappedAtEndOfDay(t *testing.T) {
	got := Reconcile(day, day.AddDate(0, 0, 1).Add(3*time.Hour), []types.CookingCycle{cycle("c", "23:00", "")}, nil)
	if got != 60 {
		t.Errorf("open past midnight: got %v, want 60", got)
	}
}

func TestReconcile_SecondsPrecision(t *testing.T) {
	got := Reconcile(day, at("12:00"), []types.CookingCycle{cycle("c", "09:00:00", "09:00:30")}, nil)
	if !almostEqual(got, 0.5, 1e-9) {
		t.Errorf("30 s cycle: got %v, want 0.5", got)
	}
}

// --- Timeline ---

func TestTimeline_Segments(t *testing.T) {
	segs := Timeline(day, at("12:00"),
		[]types.CookingCycle{cycle("c", "09:00", "11:00")},
		[]types.DowntimeInterval{stop("d", "10:00", "10:30")},
	)
	want := []Segment{
		{Start: at("09:00"), End: at("10:00"), Active: true},
		{Start: at("10:00"), End: at("10:30"), Active: false},
		{Start: at("10:30"), End: at("11:00"), Active: true},
	}
	if len(segs) != len(want) {
		t.Fatalf("segments: got %d, want %d (%+v)", len(segs), len(want), segs)
	}
	for i := range want {
		if !segs[i].Start.Equal(want[i].Start) || !segs[i].End.Equal(want[i].End) || segs[i].Active != want[i].Active {
			t.Errorf("segment %d: got %+v, want %+v", i, segs[i], want[i])
		}
	}
}

func TestTimeline_DowntimeSpanningTwoCycles(t *testing.T) {
	segs := Timeline(day, at("15:00"),
		[]types.CookingCycle{cycle("a", "09:00", "10:00"), cycle("b", "11:00", "12:00")},
		[]types.DowntimeInterval{stop("d", "09:30", "11:30")},
	)
	var active, stopped time.Duration
	for _, s := range segs {
		if s.Active {
			active += s.Duration()
		} else {
			stopped += s.Duration()
		}
	}
	if active != time.Hour || stopped != time.Hour {
		t.Errorf("active=%v stopped=%v, want 1h each", active, stopped)
	}
}

func TestOpenCycle_LatestStartWins(t *testing.T) {
	cycles := []types.CookingCycle{cycle("early", "06:00", ""), cycle("late", "08:00", ""), cycle("done", "09:00", "09:30")}
	c, ok := OpenCycle(day, at("10:00"), cycles)
	if !ok || c.ID != "late" {
		t.Errorf("OpenCycle: got %q (%v), want late", c.ID, ok)
	}
	if _, ok := OpenCycle(day, at("05:00"), cycles); ok {
		t.Error("OpenCycle before any start: expected none")
	}
}
