package usecase_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invrepo "github.com/projectsentry/replenishment-service/internal/inventory/repository"
	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
	"github.com/projectsentry/replenishment-service/internal/replenishment/dto"
	reprepo "github.com/projectsentry/replenishment-service/internal/replenishment/repository"
	"github.com/projectsentry/replenishment-service/internal/replenishment/usecase"
)

const (
	testStore     = "ST-001"
	testProduct   = "PROD-1001"
	testWarehouse = "WH-CENTRAL-001"
)

type publishedEvent struct {
	Topic   string
	Key     string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Topic: topic, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) recorded() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}

// localLocker is an in-process stand-in for the redis lock.
type localLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func newLocalLocker() *localLocker {
	return &localLocker{held: make(map[string]string)}
}

func (l *localLocker) AcquireLock(_ context.Context, key, value string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return false, nil
	}
	l.held[key] = value
	return true, nil
}

func (l *localLocker) ReleaseLock(_ context.Context, key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == value {
		delete(l.held, key)
	}
	return nil
}

type testEnv struct {
	uc        replenishment.UseCase
	inventory *invrepo.MemoryRepository
	publisher *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	inventory := invrepo.NewMemoryRepository()
	inventory.SeedStore(model.StoreInventory{
		StoreID:          testStore,
		ProductID:        testProduct,
		ProductName:      "Organic Whole Milk 1L",
		CurrentStock:     5,
		ReorderThreshold: 10,
	})
	inventory.SeedWarehouse(model.WarehouseInventory{
		WarehouseID:    testWarehouse,
		ProductID:      testProduct,
		ProductName:    "Organic Whole Milk 1L",
		AvailableStock: 100,
		ReservedStock:  0,
		TotalStock:     100,
	})

	publisher := &recordingPublisher{}
	uc := usecase.NewReplenishmentUseCase(
		replenishment.Config{
			Topics:      replenishment.TopicsFor("sentry"),
			LockRetries: 3,
		},
		reprepo.NewMemoryRepository(inventory),
		inventory,
		publisher,
		newLocalLocker(),
		nil,
		zap.NewNop(),
	)
	return &testEnv{uc: uc, inventory: inventory, publisher: publisher}
}

func (e *testEnv) raiseAlert(t *testing.T) *model.ReplenishmentOrder {
	t.Helper()
	order, err := e.uc.CreateLowStockAlert(context.Background(), &dto.LowStockAlertInput{
		StoreID:          testStore,
		ProductID:        testProduct,
		ProductName:      "Organic Whole Milk 1L",
		CurrentStock:     5,
		ReorderThreshold: 10,
	})
	require.NoError(t, err)
	return order
}

func (e *testEnv) warehouseStock(t *testing.T) *model.WarehouseInventory {
	t.Helper()
	inv, err := e.inventory.GetWarehouseInventory(context.Background(), testWarehouse, testProduct)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv
}

func TestCreateLowStockAlert_DefaultQuantity(t *testing.T) {
	env := newTestEnv(t)

	order := env.raiseAlert(t)

	// Restock target is twice the threshold: 2*10 - 5 = 15.
	assert.Equal(t, 15, order.RequestedQuantity)
	assert.Equal(t, model.StatusAlertRaised, order.Status)
	assert.Equal(t, "POS_SYSTEM", order.AlertTriggeredBy)
	assert.Regexp(t, regexp.MustCompile(`^REP-\d+-[0-9A-F]{8}$`), order.ReplenishmentID)

	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, model.StatusAlertRaised, order.StatusHistory[0].Status)
}

func TestCreateLowStockAlert_ExplicitQuantity(t *testing.T) {
	env := newTestEnv(t)
	qty := 42

	order, err := env.uc.CreateLowStockAlert(context.Background(), &dto.LowStockAlertInput{
		StoreID:           testStore,
		ProductID:         testProduct,
		ProductName:       "Organic Whole Milk 1L",
		CurrentStock:      5,
		ReorderThreshold:  10,
		RequestedQuantity: &qty,
		TriggeredBy:       "WAREHOUSE_OPERATOR",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, order.RequestedQuantity)
	assert.Equal(t, "WAREHOUSE_OPERATOR", order.AlertTriggeredBy)
}

func TestCreateLowStockAlert_MinimumQuantityIsOne(t *testing.T) {
	env := newTestEnv(t)

	order, err := env.uc.CreateLowStockAlert(context.Background(), &dto.LowStockAlertInput{
		StoreID:          testStore,
		ProductID:        testProduct,
		ProductName:      "Organic Whole Milk 1L",
		CurrentStock:     50,
		ReorderThreshold: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, order.RequestedQuantity)
}

func TestFullWorkflow_HappyPath(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingPicking, order.Status)
	require.NotNil(t, order.TransferOrderID)
	assert.Regexp(t, regexp.MustCompile(`^TO-\d+-[0-9A-F]{6}$`), *order.TransferOrderID)
	assert.Equal(t, testWarehouse, *order.WarehouseID)
	assert.Equal(t, 15, *order.TransferQuantity)
	assert.Equal(t, 100, *order.WarehouseAvailableStock)

	wh := env.warehouseStock(t)
	assert.Equal(t, 85, wh.AvailableStock)
	assert.Equal(t, 15, wh.ReservedStock)
	assert.Equal(t, 100, wh.TotalStock)

	order, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInTransit, order.Status)
	assert.Regexp(t, regexp.MustCompile(`^SHP-\d+-[0-9A-F]{6}$`), *order.ShipmentID)
	assert.Regexp(t, regexp.MustCompile(`^1Z[0-9A-F]{12}$`), *order.TrackingNumber)
	assert.Equal(t, "UPS", *order.Carrier)
	assert.Equal(t, 15, *order.ShippedQuantity)

	wh = env.warehouseStock(t)
	assert.Equal(t, 85, wh.AvailableStock)
	assert.Equal(t, 0, wh.ReservedStock)
	assert.Equal(t, 85, wh.TotalStock)

	order, err = env.uc.ConfirmDelivery(ctx, &dto.DeliveryInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, order.Status)
	assert.Equal(t, 15, *order.ReceivedQuantity)
	assert.Equal(t, 20, *order.NewStockLevel)
	assert.Equal(t, "STORE_EMPLOYEE", *order.ReceivedBy)

	store, err := env.inventory.GetStoreInventory(ctx, testStore, testProduct)
	require.NoError(t, err)
	assert.Equal(t, 20, store.CurrentStock)

	require.Len(t, order.StatusHistory, 4)
	assert.Equal(t, order.Status, order.StatusHistory[3].Status)

	events := env.publisher.recorded()
	require.Len(t, events, 4)
	topics := replenishment.TopicsFor("sentry")
	assert.Equal(t, topics.LowStockAlert, events[0].Topic)
	assert.Equal(t, topics.TransferOrderCreated, events[1].Topic)
	assert.Equal(t, topics.ShipmentDispatched, events[2].Topic)
	assert.Equal(t, topics.StockReceived, events[3].Topic)
	for _, ev := range events {
		assert.Equal(t, order.ReplenishmentID, ev.Key)
	}
}

func TestCreateTransferOrder_Replay_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	_, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	_, err = env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	var transitionErr *model.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, model.StatusPendingPicking, transitionErr.Current)

	// The reservation was applied exactly once.
	wh := env.warehouseStock(t)
	assert.Equal(t, 85, wh.AvailableStock)
	assert.Equal(t, 15, wh.ReservedStock)
}

func TestCreateShipment_SkippingStage_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	_, err := env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	var transitionErr *model.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)

	// The failed attempt left the order untouched.
	fresh, err := env.uc.GetOrder(ctx, order.ReplenishmentID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAlertRaised, fresh.Status)
	assert.Len(t, fresh.StatusHistory, 1)
}

func TestConfirmDelivery_OnAlertRaised_Rejected(t *testing.T) {
	env := newTestEnv(t)
	order := env.raiseAlert(t)

	_, err := env.uc.ConfirmDelivery(context.Background(), &dto.DeliveryInput{ReplenishmentID: order.ReplenishmentID})
	var transitionErr *model.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestCreateTransferOrder_UnknownOrder_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.uc.CreateTransferOrder(context.Background(), &dto.TransferOrderInput{ReplenishmentID: "REP-0-DEADBEEF"})
	var notFoundErr *model.NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestCreateTransferOrder_ZeroAvailability_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.inventory.SeedWarehouse(model.WarehouseInventory{
		WarehouseID:    testWarehouse,
		ProductID:      testProduct,
		AvailableStock: 0,
		ReservedStock:  40,
		TotalStock:     40,
	})
	order := env.raiseAlert(t)

	_, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	var stockErr *model.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)

	// The order stays at the first stage and can be retried later.
	fresh, err := env.uc.GetOrder(ctx, order.ReplenishmentID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAlertRaised, fresh.Status)

	wh := env.warehouseStock(t)
	assert.Equal(t, 0, wh.AvailableStock)
	assert.Equal(t, 40, wh.ReservedStock)
}

func TestCreateTransferOrder_PartialAvailability_Clamped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.inventory.SeedWarehouse(model.WarehouseInventory{
		WarehouseID:    testWarehouse,
		ProductID:      testProduct,
		AvailableStock: 10,
		ReservedStock:  0,
		TotalStock:     10,
	})
	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	assert.Equal(t, 15, order.RequestedQuantity)
	assert.Equal(t, 10, *order.TransferQuantity)

	wh := env.warehouseStock(t)
	assert.Equal(t, 0, wh.AvailableStock)
	assert.Equal(t, 10, wh.ReservedStock)
}

func TestPublisherFailure_DoesNotFailWorkflow(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.err = errors.New("broker unreachable")

	order := env.raiseAlert(t)
	assert.Equal(t, model.StatusAlertRaised, order.Status)

	order, err := env.uc.CreateTransferOrder(context.Background(), &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPendingPicking, order.Status)
}

func TestConfirmDelivery_ExplicitReceivedQuantity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	received := 12
	order, err = env.uc.ConfirmDelivery(ctx, &dto.DeliveryInput{
		ReplenishmentID:  order.ReplenishmentID,
		ReceivedQuantity: &received,
		ReceivedBy:       "jane.doe",
	})
	require.NoError(t, err)
	assert.Equal(t, 12, *order.ReceivedQuantity)
	assert.Equal(t, 17, *order.NewStockLevel)
	assert.Equal(t, "jane.doe", *order.ReceivedBy)
}

func TestConfirmDelivery_MissingStoreRecord_Tolerated(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.uc.CreateLowStockAlert(ctx, &dto.LowStockAlertInput{
		StoreID:          "ST-UNKNOWN",
		ProductID:        testProduct,
		ProductName:      "Organic Whole Milk 1L",
		CurrentStock:     0,
		ReorderThreshold: 5,
	})
	require.NoError(t, err)

	order, err = env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.ConfirmDelivery(ctx, &dto.DeliveryInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	assert.Equal(t, model.StatusCompleted, order.Status)
	assert.Equal(t, *order.ReceivedQuantity, *order.NewStockLevel)
}

func TestCancelOrder_ReleasesReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	order, err = env.uc.CancelOrder(ctx, order.ReplenishmentID, &dto.TerminateInput{
		Actor:  "admin",
		Reason: "Duplicate alert",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, order.Status)

	wh := env.warehouseStock(t)
	assert.Equal(t, 100, wh.AvailableStock)
	assert.Equal(t, 0, wh.ReservedStock)
	assert.Equal(t, 100, wh.TotalStock)

	last := order.StatusHistory[len(order.StatusHistory)-1]
	assert.Equal(t, model.StatusCancelled, last.Status)
	assert.Equal(t, "admin", last.UpdatedBy)
	assert.Contains(t, last.Notes, "Duplicate alert")
}

func TestCancelOrder_Completed_Rejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.ConfirmDelivery(ctx, &dto.DeliveryInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	_, err = env.uc.CancelOrder(ctx, order.ReplenishmentID, nil)
	var transitionErr *model.InvalidStateTransitionError
	require.ErrorAs(t, err, &transitionErr)
}

func TestFailOrder_InTransit_NoRelease(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	order, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	order, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	order, err = env.uc.FailOrder(ctx, order.ReplenishmentID, &dto.TerminateInput{Reason: "Truck accident"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, order.Status)

	// Shipped stock is already out of the warehouse; nothing comes back.
	wh := env.warehouseStock(t)
	assert.Equal(t, 85, wh.AvailableStock)
	assert.Equal(t, 0, wh.ReservedStock)
	assert.Equal(t, 85, wh.TotalStock)
}

func TestConcurrentTransferOrders_OnlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		var transitionErr *model.InvalidStateTransitionError
		assert.True(t, errors.As(err, &transitionErr) || errors.Is(err, replenishment.ErrOrderBusy),
			"unexpected error: %v", err)
	}
	require.Equal(t, 1, succeeded)

	wh := env.warehouseStock(t)
	assert.Equal(t, 85, wh.AvailableStock)
	assert.Equal(t, 15, wh.ReservedStock)
	assert.Equal(t, 100, wh.TotalStock)
}

func TestGetOrdersByStore_FiltersAndValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.raiseAlert(t)

	_, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: first.ReplenishmentID})
	require.NoError(t, err)
	env.raiseAlert(t)

	all, err := env.uc.GetOrdersByStore(ctx, testStore, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := env.uc.GetOrdersByStore(ctx, testStore, "PENDING_PICKING")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ReplenishmentID, pending[0].ReplenishmentID)

	_, err = env.uc.GetOrdersByStore(ctx, testStore, "NOT_A_STATUS")
	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestGetActiveOrders_ExcludesTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.raiseAlert(t)
	second := env.raiseAlert(t)

	_, err := env.uc.CancelOrder(ctx, second.ReplenishmentID, nil)
	require.NoError(t, err)

	active, err := env.uc.GetActiveOrders(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ReplenishmentID, active[0].ReplenishmentID)
}

func TestGetOrderHistory_TracksEveryTransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	_, err := env.uc.CreateTransferOrder(ctx, &dto.TransferOrderInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)
	_, err = env.uc.CreateShipment(ctx, &dto.ShipmentInput{ReplenishmentID: order.ReplenishmentID})
	require.NoError(t, err)

	history, err := env.uc.GetOrderHistory(ctx, order.ReplenishmentID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, model.StatusAlertRaised, history[0].Status)
	assert.Equal(t, model.StatusPendingPicking, history[1].Status)
	assert.Equal(t, model.StatusInTransit, history[2].Status)
	for i := 1; i < len(history); i++ {
		assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
	}
}

func TestSearchOrders_DatabaseFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := env.raiseAlert(t)

	results, err := env.uc.SearchOrders(ctx, "milk", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, order.ReplenishmentID, results[0].ReplenishmentID)

	_, err = env.uc.SearchOrders(ctx, "   ", 10)
	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
