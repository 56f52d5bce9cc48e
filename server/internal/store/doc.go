// Package store holds the plant's operational records (cooking cycles,
// downtime, production entries, material receipts) in a thread-safe in-memory
// store with optional SQLite persistence.
//
// The store is the records source for the compute engine: Snapshot returns
// copies of everything for a factory, and every successful mutation bumps the
// version and closes the channel returned by Changes so that live views
// refetch before their next recomputation. The single-open-record rules
// (one open cycle per factory and day, one open downtime per factory) are
// enforced here, at the boundary.
package store
