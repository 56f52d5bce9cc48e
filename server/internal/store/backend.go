package store

import (
	"context"

	"github.com/renderworks/plantops/pkg/types"
)

// Backend persists records behind the in-memory store. The store calls it
// before applying a mutation in memory, so a failed write leaves the store
// unchanged.
type Backend interface {
	Load(ctx context.Context) (*Snapshot, error)

	SaveCycle(ctx context.Context, c types.CookingCycle) error
	DeleteCycle(ctx context.Context, id string) error

	SaveDowntime(ctx context.Context, d types.DowntimeInterval) error
	DeleteDowntime(ctx context.Context, id string) error

	SaveProduction(ctx context.Context, p types.ProductionEntry) error
	DeleteProduction(ctx context.Context, id string) error

	SaveReceipt(ctx context.Context, r types.MaterialReceipt) error
	DeleteReceipt(ctx context.Context, id string) error

	Close() error
}
