package types

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalid is wrapped by every Validate error.
var ErrInvalid = errors.New("invalid record")

// CookingCycle is one recorded digester run. End is nil while the cycle is open.
type CookingCycle struct {
	ID        string     `json:"id"`
	FactoryID string     `json:"factory_id"`
	Date      string     `json:"date"`
	Start     TimeOfDay  `json:"start_time"`
	End       *TimeOfDay `json:"end_time,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Open reports whether the cycle has not been finalized yet.
func (c CookingCycle) Open() bool { return c.End == nil }

// Stamp returns the record-creation instant used by the edit lock.
func (c CookingCycle) Stamp() *time.Time { return c.CreatedAt }

// Validate checks the cycle's date and that it does not wrap past midnight.
func (c CookingCycle) Validate() error {
	if _, err := time.Parse(DateLayout, c.Date); err != nil {
		return fmt.Errorf("%w: cycle date %q: want YYYY-MM-DD", ErrInvalid, c.Date)
	}
	if !c.Start.Valid() {
		return fmt.Errorf("%w: cycle start %d out of range", ErrInvalid, c.Start)
	}
	if c.End != nil {
		if !c.End.Valid() {
			return fmt.Errorf("%w: cycle end %d out of range", ErrInvalid, *c.End)
		}
		if *c.End < c.Start {
			return fmt.Errorf("%w: cycle end %s before start %s", ErrInvalid, c.End, c.Start)
		}
	}
	return nil
}

// DowntimeSpan is the tagged shape of a downtime record: InstantSpan or ManualSpan.
type DowntimeSpan interface {
	downtimeSpan()
}

// InstantSpan is downtime recorded with the stop/resume action. End is nil
// while the line is still stopped.
type InstantSpan struct {
	Start time.Time
	End   *time.Time
}

// ManualSpan is downtime entered after the fact as a plain duration. It has
// no position in time and is never subtracted from cycle spans.
type ManualSpan struct {
	DurationHours float64
}

func (InstantSpan) downtimeSpan() {}
func (ManualSpan) downtimeSpan()  {}

// DowntimeInterval is a recorded line stop.
type DowntimeInterval struct {
	ID            string     `json:"id"`
	FactoryID     string     `json:"factory_id"`
	Date          string     `json:"date"`
	Reason        string     `json:"reason"`
	Start         *time.Time `json:"start_time,omitempty"`
	End           *time.Time `json:"end_time,omitempty"`
	DurationHours float64    `json:"duration_hours"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// Span returns the record as its tagged variant.
func (d DowntimeInterval) Span() DowntimeSpan {
	if d.Start != nil {
		return InstantSpan{Start: *d.Start, End: d.End}
	}
	return ManualSpan{DurationHours: d.DurationHours}
}

// Open reports whether the line is still stopped under this record.
func (d DowntimeInterval) Open() bool { return d.Start != nil && d.End == nil }

// Stamp returns the record-creation instant used by the edit lock.
func (d DowntimeInterval) Stamp() *time.Time { return d.CreatedAt }

// Close ends an open instant downtime at and recomputes DurationHours.
func (d *DowntimeInterval) Close(at time.Time) error {
	if d.Start == nil {
		return fmt.Errorf("%w: downtime %s has no start instant", ErrInvalid, d.ID)
	}
	if at.Before(*d.Start) {
		return fmt.Errorf("%w: downtime end %s before start %s", ErrInvalid,
			at.Format(time.RFC3339), d.Start.Format(time.RFC3339))
	}
	end := at
	d.End = &end
	d.DurationHours = end.Sub(*d.Start).Hours()
	return nil
}

// Validate checks that the record is either instant-based or a positive manual duration.
func (d DowntimeInterval) Validate() error {
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return fmt.Errorf("%w: downtime date %q: want YYYY-MM-DD", ErrInvalid, d.Date)
	}
	switch s := d.Span().(type) {
	case InstantSpan:
		if s.End != nil && s.End.Before(s.Start) {
			return fmt.Errorf("%w: downtime end before start", ErrInvalid)
		}
	case ManualSpan:
		if d.End != nil {
			return fmt.Errorf("%w: downtime end set without a start", ErrInvalid)
		}
		if s.DurationHours <= 0 {
			return fmt.Errorf("%w: manual downtime needs a positive duration_hours", ErrInvalid)
		}
	}
	return nil
}

// ProductionEntry records material consumed (and meal produced) by a batch.
type ProductionEntry struct {
	ID        string     `json:"id"`
	FactoryID string     `json:"factory_id"`
	Date      string     `json:"date"`
	InputKg   float64    `json:"input_kg"`
	OutputKg  float64    `json:"output_kg"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (p ProductionEntry) Stamp() *time.Time { return p.CreatedAt }

func (p ProductionEntry) Validate() error {
	if _, err := time.Parse(DateLayout, p.Date); err != nil {
		return fmt.Errorf("%w: production date %q: want YYYY-MM-DD", ErrInvalid, p.Date)
	}
	if p.InputKg < 0 || p.OutputKg < 0 {
		return fmt.Errorf("%w: production quantities must not be negative", ErrInvalid)
	}
	return nil
}

// MaterialReceipt records raw material received at the plant.
type MaterialReceipt struct {
	ID         string     `json:"id"`
	FactoryID  string     `json:"factory_id"`
	Date       string     `json:"date"`
	Supplier   string     `json:"supplier"`
	QuantityKg float64    `json:"quantity_kg"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func (m MaterialReceipt) Stamp() *time.Time { return m.CreatedAt }

func (m MaterialReceipt) Validate() error {
	if _, err := time.Parse(DateLayout, m.Date); err != nil {
		return fmt.Errorf("%w: receipt date %q: want YYYY-MM-DD", ErrInvalid, m.Date)
	}
	if m.QuantityKg <= 0 {
		return fmt.Errorf("%w: receipt quantity_kg must be positive", ErrInvalid)
	}
	return nil
}
