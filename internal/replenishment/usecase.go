package replenishment

import (
	"context"
	"time"

	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment/dto"
)

// Locker serializes workflow operations against the same order. The redis
// client satisfies this in production; tests use a process-local one.
type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

// Config carries the workflow defaults and operational knobs.
type Config struct {
	Topics             Topics
	DefaultWarehouseID string
	DefaultCarrier     string
	DefaultDeliveryDays int
	LockTTL            time.Duration
	LockRetries        int
	LockRetryInterval  time.Duration
	PublishTimeout     time.Duration
}

// UseCase is the replenishment workflow engine: the only component allowed
// to mutate order status and, through its repository, the inventory records
// tied to a transition.
type UseCase interface {
	// The four workflow stages, strictly in order per order id.
	CreateLowStockAlert(ctx context.Context, input *dto.LowStockAlertInput) (*model.ReplenishmentOrder, error)
	CreateTransferOrder(ctx context.Context, input *dto.TransferOrderInput) (*model.ReplenishmentOrder, error)
	CreateShipment(ctx context.Context, input *dto.ShipmentInput) (*model.ReplenishmentOrder, error)
	ConfirmDelivery(ctx context.Context, input *dto.DeliveryInput) (*model.ReplenishmentOrder, error)

	// Administrative out-of-band terminations.
	CancelOrder(ctx context.Context, replenishmentID string, input *dto.TerminateInput) (*model.ReplenishmentOrder, error)
	FailOrder(ctx context.Context, replenishmentID string, input *dto.TerminateInput) (*model.ReplenishmentOrder, error)

	// Read-only queries; safe to run concurrently with mutations.
	GetOrder(ctx context.Context, replenishmentID string) (*model.ReplenishmentOrder, error)
	GetOrderHistory(ctx context.Context, replenishmentID string) (model.StatusHistory, error)
	GetOrdersByStore(ctx context.Context, storeID, status string) ([]model.ReplenishmentOrder, error)
	GetActiveOrders(ctx context.Context) ([]model.ReplenishmentOrder, error)
	SearchOrders(ctx context.Context, query string, limit int) ([]model.ReplenishmentOrder, error)
}
