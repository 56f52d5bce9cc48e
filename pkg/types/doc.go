// Package types defines the operational records shared by the store, the
// compute engine and the HTTP layer: cooking cycles, downtime intervals,
// production entries and raw-material receipts, plus the TimeOfDay value used
// for cycle start/end times.
//
// Downtime is modelled as a tagged variant. DowntimeInterval.Span returns
// either an InstantSpan (recorded with the start/stop action) or a ManualSpan
// (entered after the fact as a plain duration). Only instant spans are ever
// subtracted from cooking time.
package types
