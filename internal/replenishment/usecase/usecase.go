package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/internal/inventory"
	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
	"github.com/projectsentry/replenishment-service/internal/replenishment/dto"
	"github.com/projectsentry/replenishment-service/internal/search"
)

// OrdersIndex is the search index holding one document per order, keyed by
// replenishment id. Indexing is best-effort and never blocks a transition.
const OrdersIndex = "replenishment-orders"

const OrdersIndexMapping = `{
	"mappings": {
		"properties": {
			"replenishment_id": {"type": "keyword"},
			"store_id": {"type": "keyword"},
			"product_id": {"type": "keyword"},
			"product_name": {"type": "text"},
			"status": {"type": "keyword"},
			"created_at": {"type": "date"},
			"updated_at": {"type": "date"}
		}
	}
}`

const (
	actorPOS       = "POS_SYSTEM"
	actorSystem    = "SYSTEM"
	actorWarehouse = "WAREHOUSE_OPERATOR"
	actorStore     = "STORE_EMPLOYEE"
)

type replenishmentUseCase struct {
	cfg       replenishment.Config
	repo      replenishment.Repository
	invRepo   inventory.Repository
	publisher replenishment.EventPublisher
	locker    replenishment.Locker
	search    *search.Client
	logger    *zap.Logger
}

// NewReplenishmentUseCase wires the workflow engine. publisher, locker and
// searchClient may be nil; the engine degrades to unlocked, silent operation
// so the core workflow keeps working when those backends are down.
func NewReplenishmentUseCase(
	cfg replenishment.Config,
	repo replenishment.Repository,
	invRepo inventory.Repository,
	publisher replenishment.EventPublisher,
	locker replenishment.Locker,
	searchClient *search.Client,
	logger *zap.Logger,
) replenishment.UseCase {
	if cfg.DefaultWarehouseID == "" {
		cfg.DefaultWarehouseID = "WH-CENTRAL-001"
	}
	if cfg.DefaultCarrier == "" {
		cfg.DefaultCarrier = "UPS"
	}
	if cfg.DefaultDeliveryDays < 1 {
		cfg.DefaultDeliveryDays = 2
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	if cfg.LockRetryInterval <= 0 {
		cfg.LockRetryInterval = 50 * time.Millisecond
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	if cfg.Topics == (replenishment.Topics{}) {
		cfg.Topics = replenishment.TopicsFor("")
	}
	return &replenishmentUseCase{
		cfg:       cfg,
		repo:      repo,
		invRepo:   invRepo,
		publisher: publisher,
		locker:    locker,
		search:    searchClient,
		logger:    logger,
	}
}

func idSuffix(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:n]
}

func newReplenishmentID() string {
	return fmt.Sprintf("REP-%d-%s", time.Now().UnixMilli(), idSuffix(8))
}

func newTransferOrderID() string {
	return fmt.Sprintf("TO-%d-%s", time.Now().UnixMilli(), idSuffix(6))
}

func newShipmentID() string {
	return fmt.Sprintf("SHP-%d-%s", time.Now().UnixMilli(), idSuffix(6))
}

func newTrackingNumber() string {
	return "1Z" + idSuffix(12)
}

// withOrderLock serializes workflow mutations per order id. The lock is an
// optimization for contention; the repository's conditional update remains
// the authoritative guard.
func (uc *replenishmentUseCase) withOrderLock(ctx context.Context, replenishmentID string, fn func() error) error {
	if uc.locker == nil {
		return fn()
	}

	key := "lock:replenishment:" + replenishmentID
	value := uuid.NewString()

	acquired := false
	for attempt := 0; attempt <= uc.cfg.LockRetries; attempt++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, uc.cfg.LockTTL)
		if err != nil {
			return &model.PersistenceError{Op: "acquire order lock", Err: err}
		}
		if ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(uc.cfg.LockRetryInterval):
		}
	}
	if !acquired {
		return replenishment.ErrOrderBusy
	}

	defer func() {
		if err := uc.locker.ReleaseLock(context.Background(), key, value); err != nil {
			uc.logger.Warn("failed to release order lock",
				zap.String("replenishment_id", replenishmentID), zap.Error(err))
		}
	}()
	return fn()
}

// safePublish emits a workflow event and swallows any failure: the broker
// being down must never fail or roll back a committed transition.
func (uc *replenishmentUseCase) safePublish(topic, key string, payload interface{}) {
	if uc.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), uc.cfg.PublishTimeout)
	defer cancel()
	if err := uc.publisher.Publish(ctx, topic, key, payload); err != nil {
		uc.logger.Warn("event publish failed",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (uc *replenishmentUseCase) syncToSearch(order *model.ReplenishmentOrder) {
	if uc.search == nil {
		return
	}
	doc := *order
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := uc.search.Index(ctx, OrdersIndex, doc.ReplenishmentID, doc); err != nil {
			uc.logger.Warn("failed to index order",
				zap.String("replenishment_id", doc.ReplenishmentID), zap.Error(err))
		}
	}()
}

func (uc *replenishmentUseCase) loadOrder(ctx context.Context, replenishmentID string) (*model.ReplenishmentOrder, error) {
	order, err := uc.repo.FindByID(ctx, replenishmentID)
	if err != nil {
		return nil, &model.PersistenceError{Op: "find order", Err: err}
	}
	if order == nil {
		return nil, &model.NotFoundError{Kind: "replenishment order", Key: replenishmentID}
	}
	return order, nil
}

// statusConflict re-reads the order after a lost race so the caller gets the
// same typed error a plain precondition failure would have produced.
func (uc *replenishmentUseCase) statusConflict(ctx context.Context, replenishmentID string, required, target model.OrderStatus) error {
	current := model.OrderStatus("")
	if fresh, err := uc.repo.FindByID(ctx, replenishmentID); err == nil && fresh != nil {
		current = fresh.Status
	}
	return &model.InvalidStateTransitionError{
		ReplenishmentID: replenishmentID,
		Current:         current,
		Required:        required,
		Target:          target,
	}
}

func (uc *replenishmentUseCase) CreateLowStockAlert(ctx context.Context, input *dto.LowStockAlertInput) (*model.ReplenishmentOrder, error) {
	if input.CurrentStock < 0 {
		return nil, &model.ValidationError{Field: "current_stock", Message: "must be >= 0"}
	}
	if input.ReorderThreshold < 0 {
		return nil, &model.ValidationError{Field: "reorder_threshold", Message: "must be >= 0"}
	}

	// Default request: restock to twice the threshold, never less than one.
	requested := 2*input.ReorderThreshold - input.CurrentStock
	if input.RequestedQuantity != nil {
		if *input.RequestedQuantity < 1 {
			return nil, &model.ValidationError{Field: "requested_quantity", Message: "must be >= 1"}
		}
		requested = *input.RequestedQuantity
	}
	if requested < 1 {
		requested = 1
	}

	triggeredBy := input.TriggeredBy
	if triggeredBy == "" {
		triggeredBy = actorPOS
	}

	now := time.Now().UTC()
	order := &model.ReplenishmentOrder{
		ReplenishmentID:   newReplenishmentID(),
		StoreID:           input.StoreID,
		ProductID:         input.ProductID,
		ProductName:       input.ProductName,
		CurrentStock:      input.CurrentStock,
		ReorderThreshold:  input.ReorderThreshold,
		RequestedQuantity: requested,
		AlertTriggeredAt:  now,
		AlertTriggeredBy:  triggeredBy,
		Status:            model.StatusAlertRaised,
		StatusHistory: model.StatusHistory{{
			Status:    model.StatusAlertRaised,
			Timestamp: now,
			UpdatedBy: triggeredBy,
			Notes: fmt.Sprintf("Low stock alert raised: %d in stock, threshold %d.",
				input.CurrentStock, input.ReorderThreshold),
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Insert(ctx, order); err != nil {
		return nil, &model.PersistenceError{Op: "insert order", Err: err}
	}

	uc.logger.Info("low stock alert raised",
		zap.String("replenishment_id", order.ReplenishmentID),
		zap.String("store_id", order.StoreID),
		zap.String("product_id", order.ProductID),
		zap.Int("requested_quantity", order.RequestedQuantity),
	)

	uc.safePublish(uc.cfg.Topics.LowStockAlert, order.ReplenishmentID, replenishment.LowStockAlertEvent{
		ReplenishmentID:   order.ReplenishmentID,
		StoreID:           order.StoreID,
		ProductID:         order.ProductID,
		ProductName:       order.ProductName,
		CurrentStock:      order.CurrentStock,
		RequestedQuantity: order.RequestedQuantity,
		Stage:             replenishment.StageLowStockAlert,
	})
	uc.syncToSearch(order)
	return order, nil
}

func (uc *replenishmentUseCase) CreateTransferOrder(ctx context.Context, input *dto.TransferOrderInput) (*model.ReplenishmentOrder, error) {
	warehouseID := input.WarehouseID
	if warehouseID == "" {
		warehouseID = uc.cfg.DefaultWarehouseID
	}

	var order *model.ReplenishmentOrder
	err := uc.withOrderLock(ctx, input.ReplenishmentID, func() error {
		var err error
		order, err = uc.loadOrder(ctx, input.ReplenishmentID)
		if err != nil {
			return err
		}
		if err := order.CheckTransition(model.StatusPendingPicking); err != nil {
			return err
		}

		wh, err := uc.invRepo.GetWarehouseInventory(ctx, warehouseID, order.ProductID)
		if err != nil {
			return &model.PersistenceError{Op: "read warehouse inventory", Err: err}
		}
		if wh == nil || wh.AvailableStock == 0 {
			return &model.InsufficientStockError{
				WarehouseID: warehouseID,
				ProductID:   order.ProductID,
				Requested:   order.RequestedQuantity,
			}
		}

		quantity := order.RequestedQuantity
		if wh.AvailableStock < quantity {
			quantity = wh.AvailableStock
			uc.logger.Warn("partial fulfillment: clamping transfer to available stock",
				zap.String("replenishment_id", order.ReplenishmentID),
				zap.String("warehouse_id", warehouseID),
				zap.Int("requested", order.RequestedQuantity),
				zap.Int("transfer_quantity", quantity),
			)
		}

		now := time.Now().UTC()
		transferOrderID := newTransferOrderID()
		available := wh.AvailableStock
		order.TransferOrderID = &transferOrderID
		order.WarehouseID = &warehouseID
		order.WarehouseAvailableStock = &available
		order.TransferQuantity = &quantity
		order.TransferOrderCreatedAt = &now
		order.ApplyTransition(model.StatusPendingPicking, actorSystem,
			fmt.Sprintf("Transfer order %s created: %d units from %s.", transferOrderID, quantity, warehouseID), now)

		err = uc.repo.Transition(ctx, order, model.StatusAlertRaised, &replenishment.InventoryEffect{
			Kind:        replenishment.EffectReserve,
			WarehouseID: warehouseID,
			ProductID:   order.ProductID,
			Quantity:    quantity,
		})
		switch err {
		case nil:
			return nil
		case replenishment.ErrStatusConflict:
			return uc.statusConflict(ctx, order.ReplenishmentID, model.StatusAlertRaised, model.StatusPendingPicking)
		case replenishment.ErrEffectConflict:
			return &model.InsufficientStockError{
				WarehouseID: warehouseID,
				ProductID:   order.ProductID,
				Requested:   quantity,
			}
		default:
			return &model.PersistenceError{Op: "create transfer order", Err: err}
		}
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("transfer order created",
		zap.String("replenishment_id", order.ReplenishmentID),
		zap.String("transfer_order_id", *order.TransferOrderID),
		zap.Int("transfer_quantity", *order.TransferQuantity),
	)

	uc.safePublish(uc.cfg.Topics.TransferOrderCreated, order.ReplenishmentID, replenishment.TransferOrderCreatedEvent{
		ReplenishmentID:  order.ReplenishmentID,
		TransferOrderID:  *order.TransferOrderID,
		WarehouseID:      *order.WarehouseID,
		ProductID:        order.ProductID,
		TransferQuantity: *order.TransferQuantity,
		Stage:            replenishment.StageTransferOrderCreated,
	})
	uc.syncToSearch(order)
	return order, nil
}

func (uc *replenishmentUseCase) CreateShipment(ctx context.Context, input *dto.ShipmentInput) (*model.ReplenishmentOrder, error) {
	carrier := input.Carrier
	if carrier == "" {
		carrier = uc.cfg.DefaultCarrier
	}
	deliveryDays := uc.cfg.DefaultDeliveryDays
	if input.EstimatedDeliveryDays != nil {
		if *input.EstimatedDeliveryDays < 1 {
			return nil, &model.ValidationError{Field: "estimated_delivery_days", Message: "must be >= 1"}
		}
		deliveryDays = *input.EstimatedDeliveryDays
	}

	var order *model.ReplenishmentOrder
	err := uc.withOrderLock(ctx, input.ReplenishmentID, func() error {
		var err error
		order, err = uc.loadOrder(ctx, input.ReplenishmentID)
		if err != nil {
			return err
		}
		if err := order.CheckTransition(model.StatusInTransit); err != nil {
			return err
		}

		now := time.Now().UTC()
		shipmentID := newShipmentID()
		tracking := newTrackingNumber()
		estimated := now.AddDate(0, 0, deliveryDays)
		quantity := *order.TransferQuantity
		order.ShipmentID = &shipmentID
		order.TrackingNumber = &tracking
		order.Carrier = &carrier
		order.EstimatedDelivery = &estimated
		order.ShippedAt = &now
		order.ShippedQuantity = &quantity
		order.ApplyTransition(model.StatusInTransit, actorWarehouse,
			fmt.Sprintf("Shipment %s dispatched via %s, tracking %s.", shipmentID, carrier, tracking), now)

		err = uc.repo.Transition(ctx, order, model.StatusPendingPicking, &replenishment.InventoryEffect{
			Kind:        replenishment.EffectCommitShipment,
			WarehouseID: *order.WarehouseID,
			ProductID:   order.ProductID,
			Quantity:    quantity,
		})
		switch err {
		case nil:
			return nil
		case replenishment.ErrStatusConflict:
			return uc.statusConflict(ctx, order.ReplenishmentID, model.StatusPendingPicking, model.StatusInTransit)
		case replenishment.ErrEffectConflict:
			return &model.PersistenceError{Op: "commit warehouse shipment",
				Err: fmt.Errorf("reservation missing for %s/%s", *order.WarehouseID, order.ProductID)}
		default:
			return &model.PersistenceError{Op: "create shipment", Err: err}
		}
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("shipment dispatched",
		zap.String("replenishment_id", order.ReplenishmentID),
		zap.String("shipment_id", *order.ShipmentID),
		zap.String("tracking_number", *order.TrackingNumber),
	)

	uc.safePublish(uc.cfg.Topics.ShipmentDispatched, order.ReplenishmentID, replenishment.ShipmentDispatchedEvent{
		ReplenishmentID:       order.ReplenishmentID,
		ShipmentID:            *order.ShipmentID,
		TrackingNumber:        *order.TrackingNumber,
		Carrier:               *order.Carrier,
		EstimatedDeliveryDate: order.EstimatedDelivery.Format(time.RFC3339),
		ShippedQuantity:       *order.ShippedQuantity,
		Stage:                 replenishment.StageShipmentDispatched,
	})
	uc.syncToSearch(order)
	return order, nil
}

func (uc *replenishmentUseCase) ConfirmDelivery(ctx context.Context, input *dto.DeliveryInput) (*model.ReplenishmentOrder, error) {
	if input.ReceivedQuantity != nil && *input.ReceivedQuantity < 0 {
		return nil, &model.ValidationError{Field: "received_quantity", Message: "must be >= 0"}
	}
	receivedBy := input.ReceivedBy
	if receivedBy == "" {
		receivedBy = actorStore
	}

	var order *model.ReplenishmentOrder
	err := uc.withOrderLock(ctx, input.ReplenishmentID, func() error {
		var err error
		order, err = uc.loadOrder(ctx, input.ReplenishmentID)
		if err != nil {
			return err
		}
		if err := order.CheckTransition(model.StatusCompleted); err != nil {
			return err
		}

		received := *order.ShippedQuantity
		if input.ReceivedQuantity != nil {
			received = *input.ReceivedQuantity
		}

		now := time.Now().UTC()
		order.ReceivedAt = &now
		order.ReceivedBy = &receivedBy
		order.ReceivedQuantity = &received
		order.ApplyTransition(model.StatusCompleted, receivedBy,
			fmt.Sprintf("Stock received: %d units.", received), now)

		err = uc.repo.Transition(ctx, order, model.StatusInTransit, &replenishment.InventoryEffect{
			Kind:      replenishment.EffectReceive,
			StoreID:   order.StoreID,
			ProductID: order.ProductID,
			Quantity:  received,
		})
		switch err {
		case nil:
			return nil
		case replenishment.ErrStatusConflict:
			return uc.statusConflict(ctx, order.ReplenishmentID, model.StatusInTransit, model.StatusCompleted)
		default:
			return &model.PersistenceError{Op: "confirm delivery", Err: err}
		}
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock received",
		zap.String("replenishment_id", order.ReplenishmentID),
		zap.String("store_id", order.StoreID),
		zap.Int("received_quantity", *order.ReceivedQuantity),
		zap.Int("new_stock_level", *order.NewStockLevel),
	)

	uc.safePublish(uc.cfg.Topics.StockReceived, order.ReplenishmentID, replenishment.StockReceivedEvent{
		ReplenishmentID:  order.ReplenishmentID,
		ReceivedQuantity: *order.ReceivedQuantity,
		NewStockLevel:    *order.NewStockLevel,
		Stage:            replenishment.StageStockReceived,
	})
	uc.syncToSearch(order)
	return order, nil
}

func (uc *replenishmentUseCase) CancelOrder(ctx context.Context, replenishmentID string, input *dto.TerminateInput) (*model.ReplenishmentOrder, error) {
	return uc.terminate(ctx, replenishmentID, model.StatusCancelled, input)
}

func (uc *replenishmentUseCase) FailOrder(ctx context.Context, replenishmentID string, input *dto.TerminateInput) (*model.ReplenishmentOrder, error) {
	return uc.terminate(ctx, replenishmentID, model.StatusFailed, input)
}

func (uc *replenishmentUseCase) terminate(ctx context.Context, replenishmentID string, target model.OrderStatus, input *dto.TerminateInput) (*model.ReplenishmentOrder, error) {
	actor := actorSystem
	reason := fmt.Sprintf("Order marked %s by administrator.", target)
	if input != nil {
		if input.Actor != "" {
			actor = input.Actor
		}
		if input.Reason != "" {
			reason = input.Reason
		}
	}

	var order *model.ReplenishmentOrder
	err := uc.withOrderLock(ctx, replenishmentID, func() error {
		var err error
		order, err = uc.loadOrder(ctx, replenishmentID)
		if err != nil {
			return err
		}
		if err := order.CheckAdminTransition(target); err != nil {
			return err
		}

		// A standing reservation is returned to the warehouse pool. Stock
		// already in transit stays committed; the ledger cannot know where
		// those units ended up.
		effect := &replenishment.InventoryEffect{Kind: replenishment.EffectNone}
		if order.Status == model.StatusPendingPicking {
			effect = &replenishment.InventoryEffect{
				Kind:        replenishment.EffectRelease,
				WarehouseID: *order.WarehouseID,
				ProductID:   order.ProductID,
				Quantity:    *order.TransferQuantity,
			}
		}

		expected := order.Status
		order.ApplyTransition(target, actor, reason, time.Now().UTC())

		err = uc.repo.Transition(ctx, order, expected, effect)
		switch err {
		case nil:
			return nil
		case replenishment.ErrStatusConflict:
			return uc.statusConflict(ctx, order.ReplenishmentID, expected, target)
		case replenishment.ErrEffectConflict:
			return &model.PersistenceError{Op: "release warehouse reservation",
				Err: fmt.Errorf("reservation missing for order %s", replenishmentID)}
		default:
			return &model.PersistenceError{Op: "terminate order", Err: err}
		}
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order terminated",
		zap.String("replenishment_id", order.ReplenishmentID),
		zap.String("status", string(order.Status)),
		zap.String("actor", actor),
	)
	uc.syncToSearch(order)
	return order, nil
}

func (uc *replenishmentUseCase) GetOrder(ctx context.Context, replenishmentID string) (*model.ReplenishmentOrder, error) {
	return uc.loadOrder(ctx, replenishmentID)
}

func (uc *replenishmentUseCase) GetOrderHistory(ctx context.Context, replenishmentID string) (model.StatusHistory, error) {
	order, err := uc.loadOrder(ctx, replenishmentID)
	if err != nil {
		return nil, err
	}
	return order.StatusHistory, nil
}

func (uc *replenishmentUseCase) GetOrdersByStore(ctx context.Context, storeID, status string) ([]model.ReplenishmentOrder, error) {
	var filter *model.OrderStatus
	if status != "" {
		s := model.OrderStatus(strings.ToUpper(status))
		if !s.Valid() {
			return nil, &model.ValidationError{Field: "status", Message: "unknown status " + status}
		}
		filter = &s
	}
	orders, err := uc.repo.FindByStore(ctx, storeID, filter)
	if err != nil {
		return nil, &model.PersistenceError{Op: "find orders by store", Err: err}
	}
	return orders, nil
}

func (uc *replenishmentUseCase) GetActiveOrders(ctx context.Context) ([]model.ReplenishmentOrder, error) {
	orders, err := uc.repo.FindActive(ctx)
	if err != nil {
		return nil, &model.PersistenceError{Op: "find active orders", Err: err}
	}
	return orders, nil
}

// SearchOrders prefers the search index and falls back to the database when
// the index is unavailable.
func (uc *replenishmentUseCase) SearchOrders(ctx context.Context, query string, limit int) ([]model.ReplenishmentOrder, error) {
	if strings.TrimSpace(query) == "" {
		return nil, &model.ValidationError{Field: "q", Message: "must not be empty"}
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if uc.search != nil {
		orders, err := uc.searchIndex(ctx, query, limit)
		if err == nil {
			return orders, nil
		}
		uc.logger.Warn("index search failed, falling back to database",
			zap.String("query", query), zap.Error(err))
	}

	orders, err := uc.repo.SearchByText(ctx, query, limit)
	if err != nil {
		return nil, &model.PersistenceError{Op: "search orders", Err: err}
	}
	return orders, nil
}

func (uc *replenishmentUseCase) searchIndex(ctx context.Context, query string, limit int) ([]model.ReplenishmentOrder, error) {
	result, err := uc.search.Search(ctx, OrdersIndex, map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"product_name^2", "product_id", "replenishment_id", "store_id"},
			},
		},
	})
	if err != nil {
		return nil, err
	}

	orders := make([]model.ReplenishmentOrder, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var order model.ReplenishmentOrder
		if err := json.Unmarshal(hit.Source, &order); err != nil {
			continue
		}
		orders = append(orders, order)
	}
	return orders, nil
}
