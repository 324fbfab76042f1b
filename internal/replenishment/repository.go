package replenishment

import (
	"context"
	"errors"

	"github.com/projectsentry/replenishment-service/internal/model"
)

// ErrStatusConflict is returned by Transition when the stored status no
// longer matches the expected one: another caller won the race. The
// conditional update is the authoritative precondition check.
var ErrStatusConflict = errors.New("order status changed concurrently")

// ErrEffectConflict is returned when the paired inventory adjustment could
// not be applied (guard clause matched no row); the whole transition rolls
// back.
var ErrEffectConflict = errors.New("inventory effect could not be applied")

// ErrOrderBusy is returned when the per-order lock could not be acquired
// within the configured retry window.
var ErrOrderBusy = errors.New("order is locked by another operation")

type EffectKind int

const (
	EffectNone EffectKind = iota
	// EffectReserve: warehouse available -= q, reserved += q.
	EffectReserve
	// EffectCommitShipment: warehouse reserved -= q, total -= q.
	EffectCommitShipment
	// EffectRelease: warehouse reserved -= q, available += q.
	EffectRelease
	// EffectReceive: store current_stock += q (floored at zero). The
	// repository records the resulting level in the order's
	// new_stock_level before persisting it. A missing store record is
	// tolerated: the order still completes and new_stock_level falls back
	// to the received quantity.
	EffectReceive
)

// InventoryEffect is the ledger adjustment applied in the same transaction
// as an order transition, so neither is ever persisted without the other.
type InventoryEffect struct {
	Kind        EffectKind
	WarehouseID string
	StoreID     string
	ProductID   string
	Quantity    int
}

// Repository stores replenishment orders. Lookups return (nil, nil) when no
// order exists.
type Repository interface {
	Insert(ctx context.Context, order *model.ReplenishmentOrder) error
	FindByID(ctx context.Context, replenishmentID string) (*model.ReplenishmentOrder, error)
	FindByStore(ctx context.Context, storeID string, status *model.OrderStatus) ([]model.ReplenishmentOrder, error)
	FindActive(ctx context.Context) ([]model.ReplenishmentOrder, error)
	SearchByText(ctx context.Context, query string, limit int) ([]model.ReplenishmentOrder, error)

	// Transition persists the order's new state only if its stored status
	// still equals expected, applying effect atomically alongside it.
	// Returns ErrStatusConflict or ErrEffectConflict on the respective
	// guard failures; in either case nothing is written.
	Transition(ctx context.Context, order *model.ReplenishmentOrder, expected model.OrderStatus, effect *InventoryEffect) error
}
