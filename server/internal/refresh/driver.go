// Package refresh drives periodic recomputation for one consuming view.
//
// A Driver owns a single timer. Each tick passes a fresh "now" to the
// caller's TickFunc, which recomputes everything from scratch and reports
// whether a cooking cycle is open; that answer picks the next interval
// (Active while a cycle runs, Idle otherwise). A change notification from the
// records source triggers an immediate tick. Cancelling the context stops the
// timer and returns from Run.
package refresh

import (
	"context"
	"time"
)

// Default cadences.
const (
	DefaultActive = time.Second
	DefaultIdle   = 60 * time.Second
)

// TickFunc recomputes at now and reports whether the live (active) cadence is needed.
type TickFunc func(now time.Time) (active bool)

// Driver produces successive "now" values for one view.
type Driver struct {
	// Active is the interval used while a cycle is open.
	Active time.Duration

	// Idle is the interval used otherwise.
	Idle time.Duration

	// Now is the time source. Defaults to time.Now.
	Now func() time.Time

	// Changes, when set, returns a channel that is closed on the next record
	// mutation. It is called again after every tick.
	Changes func() <-chan struct{}
}

// Cadence returns the interval to wait after a tick that reported active.
func (d *Driver) Cadence(active bool) time.Duration {
	if active {
		if d.Active > 0 {
			return d.Active
		}
		return DefaultActive
	}
	if d.Idle > 0 {
		return d.Idle
	}
	return DefaultIdle
}

// Run ticks immediately and then on the cadence until ctx is cancelled.
func (d *Driver) Run(ctx context.Context, fn TickFunc) {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	active := fn(now())
	timer := time.NewTimer(d.Cadence(active))
	defer timer.Stop()

	for {
		var changed <-chan struct{}
		if d.Changes != nil {
			changed = d.Changes()
		}

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-changed:
			// Reset below discards any pending expiry (Go 1.23 timer semantics).
		}

		active = fn(now())
		timer.Reset(d.Cadence(active))
	}
}
