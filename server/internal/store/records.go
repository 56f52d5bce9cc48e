package store

import (
	"context"
	"fmt"

	"github.com/renderworks/plantops/pkg/types"
)

// --- cooking cycles ---------------------------------------------------------

// Cycle returns the cycle with the given ID.
func (s *Store) Cycle(id string) (types.CookingCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cycles[id]
	if !ok {
		return types.CookingCycle{}, ErrNotFound
	}
	return c, nil
}

// AddCycle records a new cycle: an open one when c.End is nil (the operator
// pressed start), a completed one otherwise. A second open cycle for the same
// factory and day is rejected with ErrOpenCycle.
func (s *Store) AddCycle(ctx context.Context, c types.CookingCycle) (types.CookingCycle, error) {
	if err := c.Validate(); err != nil {
		return types.CookingCycle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Open() && s.hasOpenCycle(c.FactoryID, c.Date, "") {
		return types.CookingCycle{}, ErrOpenCycle
	}
	c.ID = ""
	s.stamp(&c.ID, &c.CreatedAt)
	if err := s.saveCycle(ctx, c); err != nil {
		return types.CookingCycle{}, err
	}
	return c, nil
}

// FinishCycle sets the end time of an open cycle.
func (s *Store) FinishCycle(ctx context.Context, id string, end types.TimeOfDay) (types.CookingCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cycles[id]
	if !ok {
		return types.CookingCycle{}, ErrNotFound
	}
	if !c.Open() {
		return types.CookingCycle{}, ErrClosed
	}
	c.End = &end
	if err := c.Validate(); err != nil {
		return types.CookingCycle{}, err
	}
	if err := s.saveCycle(ctx, c); err != nil {
		return types.CookingCycle{}, err
	}
	return c, nil
}

// UpdateCycle corrects the date and times of an existing cycle. The factory
// and creation instant are preserved. A finished cycle cannot be reopened
// (ErrClosed).
func (s *Store) UpdateCycle(ctx context.Context, c types.CookingCycle) (types.CookingCycle, error) {
	if err := c.Validate(); err != nil {
		return types.CookingCycle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.cycles[c.ID]
	if !ok {
		return types.CookingCycle{}, ErrNotFound
	}
	if !prev.Open() && c.Open() {
		return types.CookingCycle{}, ErrClosed
	}
	c.FactoryID = prev.FactoryID
	c.CreatedAt = prev.CreatedAt
	if c.Open() && s.hasOpenCycle(c.FactoryID, c.Date, c.ID) {
		return types.CookingCycle{}, ErrOpenCycle
	}
	if err := s.saveCycle(ctx, c); err != nil {
		return types.CookingCycle{}, err
	}
	return c, nil
}

// DeleteCycle removes a cycle.
func (s *Store) DeleteCycle(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cycles[id]; !ok {
		return ErrNotFound
	}
	if s.backend != nil {
		if err := s.backend.DeleteCycle(ctx, id); err != nil {
			return fmt.Errorf("store: delete cycle %s: %w", id, err)
		}
	}
	delete(s.cycles, id)
	s.commit()
	return nil
}

func (s *Store) hasOpenCycle(factory, date, exceptID string) bool {
	for id, c := range s.cycles {
		if id != exceptID && c.FactoryID == factory && c.Date == date && c.Open() {
			return true
		}
	}
	return false
}

func (s *Store) saveCycle(ctx context.Context, c types.CookingCycle) error {
	if s.backend != nil {
		if err := s.backend.SaveCycle(ctx, c); err != nil {
			return fmt.Errorf("store: save cycle %s: %w", c.ID, err)
		}
	}
	s.cycles[c.ID] = c
	s.commit()
	return nil
}

// --- downtime ---------------------------------------------------------------

// Downtime returns the downtime record with the given ID.
func (s *Store) Downtime(id string) (types.DowntimeInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.downtime[id]
	if !ok {
		return types.DowntimeInterval{}, ErrNotFound
	}
	return d, nil
}

// StartDowntime opens a downtime for factory starting now. A factory whose
// line is already stopped gets ErrOpenDowntime.
func (s *Store) StartDowntime(ctx context.Context, factory, date, reason string) (types.DowntimeInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.downtime {
		if d.FactoryID == factory && d.Open() {
			return types.DowntimeInterval{}, ErrOpenDowntime
		}
	}

	start := s.now()
	d := types.DowntimeInterval{FactoryID: factory, Date: date, Reason: reason, Start: &start}
	if err := d.Validate(); err != nil {
		return types.DowntimeInterval{}, err
	}
	s.stamp(&d.ID, &d.CreatedAt)
	if err := s.saveDowntime(ctx, d); err != nil {
		return types.DowntimeInterval{}, err
	}
	return d, nil
}

// StopDowntime closes an open downtime at the current instant.
func (s *Store) StopDowntime(ctx context.Context, id string) (types.DowntimeInterval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.downtime[id]
	if !ok {
		return types.DowntimeInterval{}, ErrNotFound
	}
	if !d.Open() {
		return types.DowntimeInterval{}, ErrClosed
	}
	if err := d.Close(s.now()); err != nil {
		return types.DowntimeInterval{}, err
	}
	if err := s.saveDowntime(ctx, d); err != nil {
		return types.DowntimeInterval{}, err
	}
	return d, nil
}

// LogDowntime records a downtime after the fact: either a manual duration or
// a closed start/end pair. Open downtime must go through StartDowntime.
func (s *Store) LogDowntime(ctx context.Context, d types.DowntimeInterval) (types.DowntimeInterval, error) {
	if err := d.Validate(); err != nil {
		return types.DowntimeInterval{}, err
	}
	if d.Open() {
		return types.DowntimeInterval{}, fmt.Errorf("%w: logged downtime needs an end time", types.ErrInvalid)
	}
	if span, ok := d.Span().(types.InstantSpan); ok {
		d.DurationHours = span.End.Sub(span.Start).Hours()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = ""
	s.stamp(&d.ID, &d.CreatedAt)
	if err := s.saveDowntime(ctx, d); err != nil {
		return types.DowntimeInterval{}, err
	}
	return d, nil
}

// DeleteDowntime removes a downtime record.
func (s *Store) DeleteDowntime(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.downtime[id]; !ok {
		return ErrNotFound
	}
	if s.backend != nil {
		if err := s.backend.DeleteDowntime(ctx, id); err != nil {
			return fmt.Errorf("store: delete downtime %s: %w", id, err)
		}
	}
	delete(s.downtime, id)
	s.commit()
	return nil
}

func (s *Store) saveDowntime(ctx context.Context, d types.DowntimeInterval) error {
	if s.backend != nil {
		if err := s.backend.SaveDowntime(ctx, d); err != nil {
			return fmt.Errorf("store: save downtime %s: %w", d.ID, err)
		}
	}
	s.downtime[d.ID] = d
	s.commit()
	return nil
}

// --- production and receipts --------------------------------------------------

// Production returns the production entry with the given ID.
func (s *Store) Production(id string) (types.ProductionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.production[id]
	if !ok {
		return types.ProductionEntry{}, ErrNotFound
	}
	return p, nil
}

// AddProduction records a production entry.
func (s *Store) AddProduction(ctx context.Context, p types.ProductionEntry) (types.ProductionEntry, error) {
	if err := p.Validate(); err != nil {
		return types.ProductionEntry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = ""
	s.stamp(&p.ID, &p.CreatedAt)
	if s.backend != nil {
		if err := s.backend.SaveProduction(ctx, p); err != nil {
			return types.ProductionEntry{}, fmt.Errorf("store: save production %s: %w", p.ID, err)
		}
	}
	s.production[p.ID] = p
	s.commit()
	return p, nil
}

// DeleteProduction removes a production entry.
func (s *Store) DeleteProduction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.production[id]; !ok {
		return ErrNotFound
	}
	if s.backend != nil {
		if err := s.backend.DeleteProduction(ctx, id); err != nil {
			return fmt.Errorf("store: delete production %s: %w", id, err)
		}
	}
	delete(s.production, id)
	s.commit()
	return nil
}

// Receipt returns the material receipt with the given ID.
func (s *Store) Receipt(id string) (types.MaterialReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return types.MaterialReceipt{}, ErrNotFound
	}
	return r, nil
}

// AddReceipt records a raw-material receipt.
func (s *Store) AddReceipt(ctx context.Context, r types.MaterialReceipt) (types.MaterialReceipt, error) {
	if err := r.Validate(); err != nil {
		return types.MaterialReceipt{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = ""
	s.stamp(&r.ID, &r.CreatedAt)
	if s.backend != nil {
		if err := s.backend.SaveReceipt(ctx, r); err != nil {
			return types.MaterialReceipt{}, fmt.Errorf("store: save receipt %s: %w", r.ID, err)
		}
	}
	s.receipts[r.ID] = r
	s.commit()
	return r, nil
}

// DeleteReceipt removes a material receipt.
func (s *Store) DeleteReceipt(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.receipts[id]; !ok {
		return ErrNotFound
	}
	if s.backend != nil {
		if err := s.backend.DeleteReceipt(ctx, id); err != nil {
			return fmt.Errorf("store: delete receipt %s: %w", id, err)
		}
	}
	delete(s.receipts, id)
	s.commit()
	return nil
}
