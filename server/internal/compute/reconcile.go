package compute

import (
	"sort"
	"time"

	"github.com/renderworks/plantops/pkg/types"
)

// Segment is a contiguous stretch of cooking time that is either active or
// stopped by downtime.
type Segment struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Active bool      `json:"active"`
}

// Duration returns the segment length.
func (s Segment) Duration() time.Duration { return s.End.Sub(s.Start) }

// span is a half-open [start, end) interval.
type span struct {
	start, end time.Time
}

// Reconcile returns the net active minutes of day evaluated at now: the union
// of the day's cooking-cycle spans minus the instant downtime falling inside
// them. The result is never negative.
func Reconcile(day, now time.Time, cycles []types.CookingCycle, downtime []types.DowntimeInterval) float64 {
	var active time.Duration
	for _, seg := range Timeline(day, now, cycles, downtime) {
		if seg.Active {
			active += seg.Duration()
		}
	}
	if active < 0 {
		return 0
	}
	return active.Minutes()
}

// Timeline splits the day's cooking time into ordered active and stopped
// segments. cycles and downtime may contain records of other days; only
// cycles dated day are used, and downtime only matters where it overlaps them.
func Timeline(day, now time.Time, cycles []types.CookingCycle, downtime []types.DowntimeInterval) []Segment {
	cook := merge(cycleSpans(day, now, cycles))
	if len(cook) == 0 {
		return nil
	}
	stops := merge(downtimeSpans(now, downtime))

	var out []Segment
	j := 0
	for _, c := range cook {
		cursor := c.start
		// Skip downtime that ended before this cycle span.
		for j < len(stops) && !stops[j].end.After(c.start) {
			j++
		}
		for k := j; k < len(stops) && stops[k].start.Before(c.end); k++ {
			s := clip(stops[k], c)
			if s.start.After(cursor) {
				out = append(out, Segment{Start: cursor, End: s.start, Active: true})
			}
			if s.end.After(s.start) {
				out = append(out, Segment{Start: s.start, End: s.end, Active: false})
			}
			if s.end.After(cursor) {
				cursor = s.end
			}
		}
		if c.end.After(cursor) {
			out = append(out, Segment{Start: cursor, End: c.end, Active: true})
		}
	}
	return out
}

// OpenCycle returns the authoritative open cycle of day at now: the most
// recently started open cycle whose start is not in the future. Other open
// cycles of the same day are ignored.
func OpenCycle(day, now time.Time, cycles []types.CookingCycle) (types.CookingCycle, bool) {
	date := types.DayOf(day)
	var (
		best  types.CookingCycle
		found bool
	)
	for _, c := range cycles {
		if c.Date != date || !c.Open() || c.Start.On(day).After(now) {
			continue
		}
		if !found || c.Start > best.Start {
			best, found = c, true
		}
	}
	return best, found
}

// OpenDowntime returns the authoritative open downtime at now: the most
// recently started one. Any other open records are ignored.
func OpenDowntime(now time.Time, downtime []types.DowntimeInterval) (types.DowntimeInterval, bool) {
	var (
		best  types.DowntimeInterval
		found bool
	)
	for _, d := range downtime {
		s, ok := d.Span().(types.InstantSpan)
		if !ok || s.End != nil || s.Start.After(now) {
			continue
		}
		if !found || s.Start.After(*best.Start) {
			best, found = d, true
		}
	}
	return best, found
}

// cycleSpans returns the wall-clock spans of day's cycles. An open cycle runs
// to now, capped at the end of day.
func cycleSpans(day, now time.Time, cycles []types.CookingCycle) []span {
	date := types.DayOf(day)
	var out []span
	for _, c := range cycles {
		if c.Date != date || c.Open() {
			continue
		}
		start := c.Start.On(day)
		if start.After(now) {
			continue
		}
		out = append(out, span{start: start, end: c.End.On(day)})
	}
	if open, ok := OpenCycle(day, now, cycles); ok {
		end := now
		if eod := types.TimeOfDay(0).On(day).AddDate(0, 0, 1); end.After(eod) {
			end = eod
		}
		out = append(out, span{start: open.Start.On(day), end: end})
	}
	return out
}

// downtimeSpans returns the spans of instant downtime. Manual duration-only
// records have no position in time and are skipped.
func downtimeSpans(now time.Time, downtime []types.DowntimeInterval) []span {
	var out []span
	for _, d := range downtime {
		switch s := d.Span().(type) {
		case types.InstantSpan:
			if s.End == nil || s.Start.After(now) {
				continue
			}
			out = append(out, span{start: s.Start, end: *s.End})
		case types.ManualSpan:
			// Already reflected by the operator's manual entry.
		}
	}
	if open, ok := OpenDowntime(now, downtime); ok {
		out = append(out, span{start: *open.Start, end: now})
	}
	return out
}

// merge sorts spans and joins the overlapping or touching ones. Empty spans
// are dropped.
func merge(in []span) []span {
	spans := make([]span, 0, len(in))
	for _, s := range in {
		if s.end.After(s.start) {
			spans = append(spans, s)
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start.Before(spans[j].start) })

	var out []span
	for _, s := range spans {
		if n := len(out); n > 0 && !s.start.After(out[n-1].end) {
			if s.end.After(out[n-1].end) {
				out[n-1].end = s.end
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// clip restricts s to bounds.
func clip(s, bounds span) span {
	if s.start.Before(bounds.start) {
		s.start = bounds.start
	}
	if s.end.After(bounds.end) {
		s.end = bounds.end
	}
	return s
}
