package dto

type LowStockAlertInput struct {
	StoreID           string `json:"store_id" binding:"required"`
	ProductID         string `json:"product_id" binding:"required"`
	ProductName       string `json:"product_name" binding:"required"`
	CurrentStock      int    `json:"current_stock"`
	ReorderThreshold  int    `json:"reorder_threshold"`
	RequestedQuantity *int   `json:"requested_quantity,omitempty"`
	TriggeredBy       string `json:"triggered_by,omitempty"`
}

type TransferOrderInput struct {
	ReplenishmentID string `json:"replenishment_id" binding:"required"`
	WarehouseID     string `json:"warehouse_id,omitempty"`
}

type ShipmentInput struct {
	ReplenishmentID       string `json:"replenishment_id" binding:"required"`
	Carrier               string `json:"carrier,omitempty"`
	EstimatedDeliveryDays *int   `json:"estimated_delivery_days,omitempty"`
}

type DeliveryInput struct {
	ReplenishmentID  string `json:"replenishment_id" binding:"required"`
	ReceivedQuantity *int   `json:"received_quantity,omitempty"`
	ReceivedBy       string `json:"received_by,omitempty"`
}

// TerminateInput drives the administrative cancel/fail path.
type TerminateInput struct {
	Actor  string `json:"actor,omitempty"`
	Reason string `json:"reason,omitempty"`
}
