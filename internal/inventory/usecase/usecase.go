package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/internal/inventory"
	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	logger *zap.Logger
}

func NewInventoryUseCase(repo inventory.Repository, log *zap.Logger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		logger: log,
	}
}

func (uc *inventoryUseCase) GetStoreInventory(ctx context.Context, storeID, productID string) (*model.StoreInventory, error) {
	inv, err := uc.repo.GetStoreInventory(ctx, storeID, productID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "get store inventory", Err: err}
	}
	if inv == nil {
		return nil, &model.NotFoundError{Kind: "store inventory", Key: storeID + "/" + productID}
	}
	return inv, nil
}

func (uc *inventoryUseCase) ListInventory(ctx context.Context, filters *dto.InventoryFilters) ([]model.StoreInventory, int, error) {
	items, total, err := uc.repo.FindStoreInventory(ctx, filters)
	if err != nil {
		return nil, 0, &model.PersistenceError{Op: "list store inventory", Err: err}
	}
	return items, total, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, storeID string) ([]model.StoreInventory, int, error) {
	return uc.ListInventory(ctx, &dto.InventoryFilters{StoreID: storeID, LowStock: true})
}

func (uc *inventoryUseCase) UpsertStoreInventory(ctx context.Context, input *dto.UpsertInventoryInput) (*model.StoreInventory, error) {
	if input.CurrentStock < 0 {
		return nil, &model.ValidationError{Field: "current_stock", Message: "must be >= 0"}
	}
	if input.ReorderThreshold < 0 {
		return nil, &model.ValidationError{Field: "reorder_threshold", Message: "must be >= 0"}
	}
	if input.MaxStockLevel < 0 {
		return nil, &model.ValidationError{Field: "max_stock_level", Message: "must be >= 0"}
	}
	if input.UnitCost < 0 {
		return nil, &model.ValidationError{Field: "unit_cost", Message: "must be >= 0"}
	}

	now := time.Now()
	inv := &model.StoreInventory{
		StoreID:          input.StoreID,
		ProductID:        input.ProductID,
		ProductName:      input.ProductName,
		ProductCategory:  input.ProductCategory,
		CurrentStock:     input.CurrentStock,
		ReorderThreshold: input.ReorderThreshold,
		MaxStockLevel:    input.MaxStockLevel,
		UnitCost:         input.UnitCost,
		LastStockUpdate:  now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := uc.repo.UpsertStoreInventory(ctx, inv); err != nil {
		return nil, &model.PersistenceError{Op: "upsert store inventory", Err: err}
	}
	return inv, nil
}

func (uc *inventoryUseCase) UpdateStock(ctx context.Context, storeID, productID string, input *dto.UpdateStockInput) (*model.StoreInventory, bool, error) {
	switch input.Operation {
	case "", "add":
		return uc.AdjustStoreStock(ctx, storeID, productID, input.Quantity)
	case "subtract":
		return uc.AdjustStoreStock(ctx, storeID, productID, -input.Quantity)
	case "set":
		if input.Quantity < 0 {
			return nil, false, &model.ValidationError{Field: "quantity", Message: "must be >= 0 for set"}
		}
		inv, err := uc.repo.SetStoreStock(ctx, storeID, productID, input.Quantity)
		if err != nil {
			return nil, false, &model.PersistenceError{Op: "set store stock", Err: err}
		}
		if inv == nil {
			return nil, false, &model.NotFoundError{Kind: "store inventory", Key: storeID + "/" + productID}
		}
		return inv, inv.NeedsReplenishment(), nil
	default:
		return nil, false, &model.ValidationError{Field: "operation", Message: fmt.Sprintf("unknown operation %q", input.Operation)}
	}
}

func (uc *inventoryUseCase) AdjustStoreStock(ctx context.Context, storeID, productID string, delta int) (*model.StoreInventory, bool, error) {
	inv, err := uc.repo.AdjustStoreStock(ctx, storeID, productID, delta)
	if err != nil {
		return nil, false, &model.PersistenceError{Op: "adjust store stock", Err: err}
	}
	if inv == nil {
		return nil, false, &model.NotFoundError{Kind: "store inventory", Key: storeID + "/" + productID}
	}
	if inv.NeedsReplenishment() {
		uc.logger.Info("store stock at or below reorder threshold",
			zap.String("store_id", storeID),
			zap.String("product_id", productID),
			zap.Int("current_stock", inv.CurrentStock),
			zap.Int("reorder_threshold", inv.ReorderThreshold),
		)
	}
	return inv, inv.NeedsReplenishment(), nil
}

func (uc *inventoryUseCase) GetWarehouseInventory(ctx context.Context, warehouseID, productID string) (*model.WarehouseInventory, error) {
	inv, err := uc.repo.GetWarehouseInventory(ctx, warehouseID, productID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "get warehouse inventory", Err: err}
	}
	if inv == nil {
		return nil, &model.NotFoundError{Kind: "warehouse inventory", Key: warehouseID + "/" + productID}
	}
	return inv, nil
}

func (uc *inventoryUseCase) ListWarehouseInventory(ctx context.Context, warehouseID string) ([]model.WarehouseInventory, error) {
	items, err := uc.repo.ListWarehouseInventory(ctx, warehouseID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list warehouse inventory", Err: err}
	}
	return items, nil
}

// ReserveWarehouseStock earmarks min(requested, available) for an order.
// Zero availability is the only error; anything short of the request is
// clamped, not rejected.
func (uc *inventoryUseCase) ReserveWarehouseStock(ctx context.Context, warehouseID, productID string, requested int) (*model.WarehouseInventory, int, error) {
	if requested < 1 {
		return nil, 0, &model.ValidationError{Field: "quantity", Message: "must be >= 1"}
	}

	current, err := uc.repo.GetWarehouseInventory(ctx, warehouseID, productID)
	if err != nil {
		return nil, 0, &model.PersistenceError{Op: "read warehouse inventory", Err: err}
	}
	if current == nil || current.AvailableStock == 0 {
		return nil, 0, &model.InsufficientStockError{WarehouseID: warehouseID, ProductID: productID, Requested: requested}
	}

	quantity := requested
	if current.AvailableStock < quantity {
		quantity = current.AvailableStock
		uc.logger.Warn("partial fulfillment: clamping reservation to available stock",
			zap.String("warehouse_id", warehouseID),
			zap.String("product_id", productID),
			zap.Int("requested", requested),
			zap.Int("reserved", quantity),
		)
	}

	inv, err := uc.repo.ReserveWarehouseStock(ctx, warehouseID, productID, quantity)
	if err != nil {
		return nil, 0, &model.PersistenceError{Op: "reserve warehouse stock", Err: err}
	}
	if inv == nil {
		// Availability dropped between the read and the guarded update.
		return nil, 0, &model.InsufficientStockError{WarehouseID: warehouseID, ProductID: productID, Requested: requested}
	}
	return inv, quantity, nil
}

func (uc *inventoryUseCase) CommitWarehouseShipment(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	inv, err := uc.repo.CommitWarehouseShipment(ctx, warehouseID, productID, quantity)
	if err != nil {
		return nil, &model.PersistenceError{Op: "commit warehouse shipment", Err: err}
	}
	if inv == nil {
		return nil, &model.NotFoundError{Kind: "warehouse reservation", Key: warehouseID + "/" + productID}
	}
	return inv, nil
}

func (uc *inventoryUseCase) ReleaseWarehouseReservation(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	inv, err := uc.repo.ReleaseWarehouseReservation(ctx, warehouseID, productID, quantity)
	if err != nil {
		return nil, &model.PersistenceError{Op: "release warehouse reservation", Err: err}
	}
	if inv == nil {
		return nil, &model.NotFoundError{Kind: "warehouse reservation", Key: warehouseID + "/" + productID}
	}
	return inv, nil
}

func (uc *inventoryUseCase) ListStores(ctx context.Context) ([]model.Store, error) {
	stores, err := uc.repo.ListStores(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list stores", Err: err}
	}
	return stores, nil
}

func (uc *inventoryUseCase) ListWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	warehouses, err := uc.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "list warehouses", Err: err}
	}
	return warehouses, nil
}
