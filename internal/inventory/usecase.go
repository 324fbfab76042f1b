package inventory

import (
	"context"

	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

type UseCase interface {
	GetStoreInventory(ctx context.Context, storeID, productID string) (*model.StoreInventory, error)
	ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.StoreInventory, int, error)
	ListLowStock(ctx context.Context, storeID string) ([]model.StoreInventory, int, error)
	UpsertStoreInventory(ctx context.Context, input *dto.UpsertInventoryInput) (*model.StoreInventory, error)
	// UpdateStock applies an add/subtract/set operation and reports whether
	// the record still needs replenishment afterwards.
	UpdateStock(ctx context.Context, storeID, productID string, input *dto.UpdateStockInput) (*model.StoreInventory, bool, error)
	AdjustStoreStock(ctx context.Context, storeID, productID string, delta int) (*model.StoreInventory, bool, error)

	GetWarehouseInventory(ctx context.Context, warehouseID, productID string) (*model.WarehouseInventory, error)
	ListWarehouseInventory(ctx context.Context, warehouseID string) ([]model.WarehouseInventory, error)
	// ReserveWarehouseStock reserves min(requested, available) and returns
	// the quantity actually reserved. A zero-availability warehouse is the
	// only failure case.
	ReserveWarehouseStock(ctx context.Context, warehouseID, productID string, requested int) (*model.WarehouseInventory, int, error)
	CommitWarehouseShipment(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error)
	ReleaseWarehouseReservation(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error)

	ListStores(ctx context.Context) ([]model.Store, error)
	ListWarehouses(ctx context.Context) ([]model.Warehouse, error)
}
