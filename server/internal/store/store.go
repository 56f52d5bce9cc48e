package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/renderworks/plantops/pkg/types"
)

var (
	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("store: record not found")

	// ErrOpenCycle is returned when a factory already has an open cycle that day.
	ErrOpenCycle = errors.New("store: an open cooking cycle already exists for this day")

	// ErrOpenDowntime is returned when a factory's line is already stopped.
	ErrOpenDowntime = errors.New("store: an open downtime already exists for this factory")

	// ErrClosed is returned when finishing a cycle or downtime that is already closed.
	ErrClosed = errors.New("store: record is already closed")
)

// Snapshot is a point-in-time copy of the records of one factory.
type Snapshot struct {
	Cycles     []types.CookingCycle
	Downtime   []types.DowntimeInterval
	Production []types.ProductionEntry
	Receipts   []types.MaterialReceipt
	Version    uint64
}

// Store is the thread-safe records store.
type Store struct {
	mu         sync.RWMutex
	cycles     map[string]types.CookingCycle
	downtime   map[string]types.DowntimeInterval
	production map[string]types.ProductionEntry
	receipts   map[string]types.MaterialReceipt
	version    uint64
	changed    chan struct{}

	backend   Backend       // nil means memory only
	retention time.Duration // zero disables eviction
	now       func() time.Time
	newID     func() string
}

// New creates a Store. backend may be nil. Records dated more than retention
// before now are dropped from memory by Run; zero keeps everything.
func New(backend Backend, retention time.Duration) *Store {
	return &Store{
		cycles:     make(map[string]types.CookingCycle),
		downtime:   make(map[string]types.DowntimeInterval),
		production: make(map[string]types.ProductionEntry),
		receipts:   make(map[string]types.MaterialReceipt),
		changed:    make(chan struct{}),
		backend:    backend,
		retention:  retention,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Load replaces the in-memory state with the backend's contents.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	snap, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range snap.Cycles {
		s.cycles[c.ID] = c
	}
	for _, d := range snap.Downtime {
		s.downtime[d.ID] = d
	}
	for _, p := range snap.Production {
		s.production[p.ID] = p
	}
	for _, r := range snap.Receipts {
		s.receipts[r.ID] = r
	}
	s.commit()
	slog.Info("store: loaded records",
		"cycles", len(snap.Cycles),
		"downtime", len(snap.Downtime),
		"production", len(snap.Production),
		"receipts", len(snap.Receipts),
	)
	return nil
}

// Snapshot returns copies of all records of factory, ordered by date. An
// empty factory returns every record.
func (s *Store) Snapshot(factory string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := Snapshot{Version: s.version}
	for _, c := range s.cycles {
		if factory == "" || c.FactoryID == factory {
			out.Cycles = append(out.Cycles, c)
		}
	}
	for _, d := range s.downtime {
		if factory == "" || d.FactoryID == factory {
			out.Downtime = append(out.Downtime, d)
		}
	}
	for _, p := range s.production {
		if factory == "" || p.FactoryID == factory {
			out.Production = append(out.Production, p)
		}
	}
	for _, r := range s.receipts {
		if factory == "" || r.FactoryID == factory {
			out.Receipts = append(out.Receipts, r)
		}
	}

	sort.Slice(out.Cycles, func(i, j int) bool {
		a, b := out.Cycles[i], out.Cycles[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.ID < b.ID
	})
	sort.Slice(out.Downtime, func(i, j int) bool {
		a, b := out.Downtime[i], out.Downtime[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.ID < b.ID
	})
	sort.Slice(out.Production, func(i, j int) bool {
		a, b := out.Production[i], out.Production[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.ID < b.ID
	})
	sort.Slice(out.Receipts, func(i, j int) bool {
		a, b := out.Receipts[i], out.Receipts[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		return a.ID < b.ID
	})
	return out
}

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Changes returns a channel that is closed by the next successful mutation.
func (s *Store) Changes() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.changed
}

// commit publishes a mutation. Callers must hold s.mu for writing.
func (s *Store) commit() {
	s.version++
	close(s.changed)
	s.changed = make(chan struct{})
}

// stamp fills in the ID and creation instant of a new record.
func (s *Store) stamp(id *string, createdAt **time.Time) {
	if *id == "" {
		*id = s.newID()
	}
	now := s.now()
	*createdAt = &now
}

// Evict removes records dated before now minus the retention period from
// memory. Persisted rows are kept. It returns the number of records removed.
func (s *Store) Evict(now time.Time) int {
	if s.retention <= 0 {
		return 0
	}
	cutoff := types.DayOf(now.Add(-s.retention))

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, c := range s.cycles {
		if c.Date < cutoff {
			delete(s.cycles, id)
			removed++
		}
	}
	for id, d := range s.downtime {
		if d.Date < cutoff && !d.Open() {
			delete(s.downtime, id)
			removed++
		}
	}
	for id, p := range s.production {
		if p.Date < cutoff {
			delete(s.production, id)
			removed++
		}
	}
	for id, r := range s.receipts {
		if r.Date < cutoff {
			delete(s.receipts, id)
			removed++
		}
	}
	if removed > 0 {
		s.commit()
	}
	return removed
}

// Run starts the background retention loop. It ticks hourly and blocks until
// ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	if s.retention <= 0 {
		<-ctx.Done()
		return
	}
	t := time.NewTicker(time.Hour)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted records past retention", "count", n)
			}
		}
	}
}
