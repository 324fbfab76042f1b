package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

// MemoryRepository implements the ledger contract over process memory,
// mirroring the single-statement atomicity of the Postgres queries with a
// mutex. Used by tests and local development.
type MemoryRepository struct {
	mu         sync.Mutex
	store      map[recordKey]*model.StoreInventory
	warehouse  map[recordKey]*model.WarehouseInventory
	stores     map[string]*model.Store
	warehouses map[string]*model.Warehouse
}

type recordKey struct {
	Owner   string // store or warehouse id
	Product string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		store:      make(map[recordKey]*model.StoreInventory),
		warehouse:  make(map[recordKey]*model.WarehouseInventory),
		stores:     make(map[string]*model.Store),
		warehouses: make(map[string]*model.Warehouse),
	}
}

// SeedWarehouse installs a warehouse record directly, as the administrative
// provisioning path would.
func (m *MemoryRepository) SeedWarehouse(inv model.WarehouseInventory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warehouse[recordKey{inv.WarehouseID, inv.ProductID}] = &inv
}

func (m *MemoryRepository) SeedStore(inv model.StoreInventory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[recordKey{inv.StoreID, inv.ProductID}] = &inv
}

func (m *MemoryRepository) GetStoreInventory(_ context.Context, storeID, productID string) (*model.StoreInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[recordKey{storeID, productID}]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) FindStoreInventory(_ context.Context, f *dto.InventoryFilters) ([]model.StoreInventory, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []model.StoreInventory
	for _, inv := range m.store {
		if f.StoreID != "" && inv.StoreID != f.StoreID {
			continue
		}
		if f.ProductID != "" && inv.ProductID != f.ProductID {
			continue
		}
		if f.Category != "" && inv.ProductCategory != f.Category {
			continue
		}
		if f.LowStock && !inv.NeedsReplenishment() {
			continue
		}
		items = append(items, *inv)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CurrentStock != items[j].CurrentStock {
			return items[i].CurrentStock < items[j].CurrentStock
		}
		return items[i].StoreID < items[j].StoreID
	})
	total := len(items)
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * f.PageSize
		if start > len(items) {
			start = len(items)
		}
		end := start + f.PageSize
		if end > len(items) {
			end = len(items)
		}
		items = items[start:end]
	}
	return items, total, nil
}

func (m *MemoryRepository) UpsertStoreInventory(_ context.Context, inv *model.StoreInventory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *inv
	m.store[recordKey{inv.StoreID, inv.ProductID}] = &cp
	return nil
}

func (m *MemoryRepository) AdjustStoreStock(_ context.Context, storeID, productID string, delta int) (*model.StoreInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[recordKey{storeID, productID}]
	if !ok {
		return nil, nil
	}
	inv.CurrentStock += delta
	if inv.CurrentStock < 0 {
		inv.CurrentStock = 0
	}
	inv.LastStockUpdate = time.Now()
	inv.UpdatedAt = inv.LastStockUpdate
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) SetStoreStock(_ context.Context, storeID, productID string, quantity int) (*model.StoreInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.store[recordKey{storeID, productID}]
	if !ok {
		return nil, nil
	}
	if quantity < 0 {
		quantity = 0
	}
	inv.CurrentStock = quantity
	inv.LastStockUpdate = time.Now()
	inv.UpdatedAt = inv.LastStockUpdate
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) GetWarehouseInventory(_ context.Context, warehouseID, productID string) (*model.WarehouseInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.warehouse[recordKey{warehouseID, productID}]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) ListWarehouseInventory(_ context.Context, warehouseID string) ([]model.WarehouseInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []model.WarehouseInventory
	for _, inv := range m.warehouse {
		if inv.WarehouseID == warehouseID {
			items = append(items, *inv)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items, nil
}

func (m *MemoryRepository) ReserveWarehouseStock(_ context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.warehouse[recordKey{warehouseID, productID}]
	if !ok || inv.AvailableStock < quantity {
		return nil, nil
	}
	inv.AvailableStock -= quantity
	inv.ReservedStock += quantity
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) CommitWarehouseShipment(_ context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.warehouse[recordKey{warehouseID, productID}]
	if !ok || inv.ReservedStock < quantity {
		return nil, nil
	}
	inv.ReservedStock -= quantity
	inv.TotalStock -= quantity
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) ReleaseWarehouseReservation(_ context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.warehouse[recordKey{warehouseID, productID}]
	if !ok || inv.ReservedStock < quantity {
		return nil, nil
	}
	inv.ReservedStock -= quantity
	inv.AvailableStock += quantity
	inv.UpdatedAt = time.Now()
	cp := *inv
	return &cp, nil
}

func (m *MemoryRepository) ListStores(_ context.Context) ([]model.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var stores []model.Store
	for _, s := range m.stores {
		stores = append(stores, *s)
	}
	sort.Slice(stores, func(i, j int) bool { return stores[i].StoreID < stores[j].StoreID })
	return stores, nil
}

func (m *MemoryRepository) ListWarehouses(_ context.Context) ([]model.Warehouse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var warehouses []model.Warehouse
	for _, w := range m.warehouses {
		warehouses = append(warehouses, *w)
	}
	sort.Slice(warehouses, func(i, j int) bool { return warehouses[i].WarehouseID < warehouses[j].WarehouseID })
	return warehouses, nil
}
