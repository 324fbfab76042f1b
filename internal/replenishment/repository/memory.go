package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	invrepo "github.com/projectsentry/replenishment-service/internal/inventory/repository"
	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
)

// MemoryRepository keeps orders in process memory, delegating inventory
// effects to the in-memory ledger so tests exercise the same pairing the
// Postgres transaction provides.
type MemoryRepository struct {
	mu        sync.Mutex
	orders    map[string]*model.ReplenishmentOrder
	inventory *invrepo.MemoryRepository
}

func NewMemoryRepository(inventory *invrepo.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{
		orders:    make(map[string]*model.ReplenishmentOrder),
		inventory: inventory,
	}
}

func cloneOrder(o *model.ReplenishmentOrder) *model.ReplenishmentOrder {
	cp := *o
	cp.StatusHistory = append(model.StatusHistory(nil), o.StatusHistory...)
	return &cp
}

func (m *MemoryRepository) Insert(_ context.Context, order *model.ReplenishmentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ReplenishmentID] = cloneOrder(order)
	return nil
}

func (m *MemoryRepository) FindByID(_ context.Context, replenishmentID string) (*model.ReplenishmentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[replenishmentID]
	if !ok {
		return nil, nil
	}
	return cloneOrder(order), nil
}

func (m *MemoryRepository) FindByStore(_ context.Context, storeID string, status *model.OrderStatus) ([]model.ReplenishmentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.ReplenishmentOrder
	for _, o := range m.orders {
		if o.StoreID != storeID {
			continue
		}
		if status != nil && o.Status != *status {
			continue
		}
		orders = append(orders, *cloneOrder(o))
	}
	sortByCreatedDesc(orders)
	return orders, nil
}

func (m *MemoryRepository) FindActive(_ context.Context) ([]model.ReplenishmentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.ReplenishmentOrder
	for _, o := range m.orders {
		if !o.Status.Terminal() {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sortByCreatedDesc(orders)
	return orders, nil
}

func (m *MemoryRepository) SearchByText(_ context.Context, query string, limit int) ([]model.ReplenishmentOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	q := strings.ToLower(query)
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []model.ReplenishmentOrder
	for _, o := range m.orders {
		if strings.Contains(strings.ToLower(o.ProductName), q) ||
			strings.Contains(strings.ToLower(o.ProductID), q) ||
			strings.Contains(strings.ToLower(o.ReplenishmentID), q) ||
			strings.Contains(strings.ToLower(o.StoreID), q) {
			orders = append(orders, *cloneOrder(o))
		}
	}
	sortByCreatedDesc(orders)
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (m *MemoryRepository) Transition(ctx context.Context, order *model.ReplenishmentOrder, expected model.OrderStatus, effect *replenishment.InventoryEffect) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.orders[order.ReplenishmentID]
	if !ok || stored.Status != expected {
		return replenishment.ErrStatusConflict
	}

	if effect != nil {
		if err := m.applyEffect(ctx, order, effect); err != nil {
			return err
		}
	}

	m.orders[order.ReplenishmentID] = cloneOrder(order)
	return nil
}

func (m *MemoryRepository) applyEffect(ctx context.Context, order *model.ReplenishmentOrder, effect *replenishment.InventoryEffect) error {
	switch effect.Kind {
	case replenishment.EffectNone:
		return nil
	case replenishment.EffectReserve:
		inv, err := m.inventory.ReserveWarehouseStock(ctx, effect.WarehouseID, effect.ProductID, effect.Quantity)
		if err != nil {
			return err
		}
		if inv == nil {
			return replenishment.ErrEffectConflict
		}
		return nil
	case replenishment.EffectCommitShipment:
		inv, err := m.inventory.CommitWarehouseShipment(ctx, effect.WarehouseID, effect.ProductID, effect.Quantity)
		if err != nil {
			return err
		}
		if inv == nil {
			return replenishment.ErrEffectConflict
		}
		return nil
	case replenishment.EffectRelease:
		inv, err := m.inventory.ReleaseWarehouseReservation(ctx, effect.WarehouseID, effect.ProductID, effect.Quantity)
		if err != nil {
			return err
		}
		if inv == nil {
			return replenishment.ErrEffectConflict
		}
		return nil
	case replenishment.EffectReceive:
		inv, err := m.inventory.AdjustStoreStock(ctx, effect.StoreID, effect.ProductID, effect.Quantity)
		if err != nil {
			return err
		}
		newStock := effect.Quantity
		if inv != nil {
			newStock = inv.CurrentStock
		}
		order.NewStockLevel = &newStock
		return nil
	default:
		return replenishment.ErrEffectConflict
	}
}

func sortByCreatedDesc(orders []model.ReplenishmentOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ReplenishmentID > orders[j].ReplenishmentID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
