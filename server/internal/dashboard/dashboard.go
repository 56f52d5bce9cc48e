// Package dashboard assembles the daily metrics view for one factory from the
// records store and the compute engine.
package dashboard

import (
	"time"

	"github.com/renderworks/plantops/server/internal/compute"
	"github.com/renderworks/plantops/server/internal/store"
)

// Source is the records source. *store.Store satisfies it.
type Source interface {
	Snapshot(factory string) store.Snapshot
	Changes() <-chan struct{}
}

// Service computes today's metrics in the plant's timezone.
type Service struct {
	src Source
	loc *time.Location
}

// New creates a Service. A nil loc means UTC.
func New(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc}
}

// Location returns the plant timezone.
func (s *Service) Location() *time.Location { return s.loc }

// Day returns local midnight of the calendar day containing now.
func (s *Service) Day(now time.Time) time.Time {
	local := now.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

// Today refetches the factory's records and recomputes the metrics at now.
func (s *Service) Today(factory string, now time.Time) compute.Output {
	snap := s.src.Snapshot(factory)
	return compute.Compute(compute.Input{
		FactoryID:  factory,
		Day:        s.Day(now),
		Now:        now.In(s.loc),
		Cycles:     snap.Cycles,
		Downtime:   snap.Downtime,
		Production: snap.Production,
		Receipts:   snap.Receipts,
	})
}

// Changes forwards the records source's change notification.
func (s *Service) Changes() <-chan struct{} { return s.src.Changes() }
