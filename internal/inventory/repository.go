package inventory

import (
	"context"

	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

// Repository is the ledger's storage contract. Stock-mutating methods are
// single atomic read-modify-writes against one keyed record: concurrent
// callers never observe a half-applied adjustment. Lookups return (nil, nil)
// when no record exists.
type Repository interface {
	// Store side
	GetStoreInventory(ctx context.Context, storeID, productID string) (*model.StoreInventory, error)
	FindStoreInventory(ctx context.Context, f *dto.InventoryFilters) ([]model.StoreInventory, int, error)
	UpsertStoreInventory(ctx context.Context, inv *model.StoreInventory) error
	// AdjustStoreStock applies current_stock = max(0, current_stock + delta)
	// and returns the updated record.
	AdjustStoreStock(ctx context.Context, storeID, productID string, delta int) (*model.StoreInventory, error)
	SetStoreStock(ctx context.Context, storeID, productID string, quantity int) (*model.StoreInventory, error)

	// Warehouse side
	GetWarehouseInventory(ctx context.Context, warehouseID, productID string) (*model.WarehouseInventory, error)
	ListWarehouseInventory(ctx context.Context, warehouseID string) ([]model.WarehouseInventory, error)
	// ReserveWarehouseStock moves quantity from available to reserved; it
	// returns (nil, nil) when the record is missing or availability dropped
	// below quantity since the caller's read.
	ReserveWarehouseStock(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error)
	// CommitWarehouseShipment removes quantity from reserved and total;
	// available is untouched (it was decremented at reservation time).
	CommitWarehouseShipment(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error)
	// ReleaseWarehouseReservation undoes a reservation (administrative
	// cancel path).
	ReleaseWarehouseReservation(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error)

	// Entity listings (records are created administratively)
	ListStores(ctx context.Context) ([]model.Store, error)
	ListWarehouses(ctx context.Context) ([]model.Warehouse, error)
}
