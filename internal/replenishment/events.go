package replenishment

import "context"

// Stage tags carried in every event payload.
const (
	StageLowStockAlert        = "LOW_STOCK_ALERT"
	StageTransferOrderCreated = "TRANSFER_ORDER_CREATED"
	StageShipmentDispatched   = "SHIPMENT_DISPATCHED"
	StageStockReceived        = "STOCK_RECEIVED"
)

// Topics holds the four stage topics. Downstream consumers depend on these
// names; only the prefix is configurable.
type Topics struct {
	LowStockAlert        string
	TransferOrderCreated string
	ShipmentDispatched   string
	StockReceived        string
}

func TopicsFor(prefix string) Topics {
	if prefix == "" {
		prefix = "sentry"
	}
	return Topics{
		LowStockAlert:        prefix + ".low-stock-alert",
		TransferOrderCreated: prefix + ".transfer-order-created",
		ShipmentDispatched:   prefix + ".shipment-dispatched",
		StockReceived:        prefix + ".stock-received",
	}
}

func (t Topics) All() []string {
	return []string{t.LowStockAlert, t.TransferOrderCreated, t.ShipmentDispatched, t.StockReceived}
}

// EventPublisher is the outbound bus contract. Publishing is best-effort
// from the workflow's perspective; see the usecase's safePublish.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

type LowStockAlertEvent struct {
	ReplenishmentID   string `json:"replenishment_id"`
	StoreID           string `json:"store_id"`
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name"`
	CurrentStock      int    `json:"current_stock"`
	RequestedQuantity int    `json:"requested_quantity"`
	Stage             string `json:"stage"`
}

type TransferOrderCreatedEvent struct {
	ReplenishmentID  string `json:"replenishment_id"`
	TransferOrderID  string `json:"transfer_order_id"`
	WarehouseID      string `json:"warehouse_id"`
	ProductID        string `json:"product_id"`
	TransferQuantity int    `json:"transfer_quantity"`
	Stage            string `json:"stage"`
}

type ShipmentDispatchedEvent struct {
	ReplenishmentID       string `json:"replenishment_id"`
	ShipmentID            string `json:"shipment_id"`
	TrackingNumber        string `json:"tracking_number"`
	Carrier               string `json:"carrier"`
	EstimatedDeliveryDate string `json:"estimated_delivery_date"`
	ShippedQuantity       int    `json:"shipped_quantity"`
	Stage                 string `json:"stage"`
}

type StockReceivedEvent struct {
	ReplenishmentID  string `json:"replenishment_id"`
	ReceivedQuantity int    `json:"received_quantity"`
	NewStockLevel    int    `json:"new_stock_level"`
	Stage            string `json:"stage"`
}
