package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type OrderStatus string

const (
	StatusAlertRaised    OrderStatus = "ALERT_RAISED"
	StatusPendingPicking OrderStatus = "PENDING_PICKING"
	StatusInTransit      OrderStatus = "IN_TRANSIT"
	StatusCompleted      OrderStatus = "COMPLETED"
	StatusCancelled      OrderStatus = "CANCELLED"
	StatusFailed         OrderStatus = "FAILED"
)

// requiredPredecessor maps each forward stage to the only status it may be
// entered from. CANCELLED and FAILED are not listed here; they are reachable
// from any non-terminal status through the administrative path.
var requiredPredecessor = map[OrderStatus]OrderStatus{
	StatusPendingPicking: StatusAlertRaised,
	StatusInTransit:      StatusPendingPicking,
	StatusCompleted:      StatusInTransit,
}

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusAlertRaised, StatusPendingPicking, StatusInTransit,
		StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusFailed
}

// StatusHistoryEntry is one line of the order's audit trail. Entries record
// the post-transition status, so the last entry always matches the order's
// current status.
type StatusHistoryEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	UpdatedBy string      `json:"updated_by"`
	Notes     string      `json:"notes"`
}

// StatusHistory is stored as a single JSONB column; the trail is only ever
// appended to as part of an order update, never edited row-by-row.
type StatusHistory []StatusHistoryEntry

func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	case nil:
		*h = StatusHistory{}
		return nil
	}
	return fmt.Errorf("cannot scan status history from %T", src)
}

// ReplenishmentOrder is the digital thread of one replenishment: a single
// record accumulating fields stage by stage as it moves through the workflow.
type ReplenishmentOrder struct {
	ReplenishmentID string `db:"replenishment_id" json:"replenishment_id"`

	// Stage 1: low-stock alert
	StoreID           string    `db:"store_id" json:"store_id"`
	ProductID         string    `db:"product_id" json:"product_id"`
	ProductName       string    `db:"product_name" json:"product_name"`
	CurrentStock      int       `db:"current_stock" json:"current_stock"`
	ReorderThreshold  int       `db:"reorder_threshold" json:"reorder_threshold"`
	RequestedQuantity int       `db:"requested_quantity" json:"requested_quantity"`
	AlertTriggeredAt  time.Time `db:"alert_triggered_at" json:"alert_triggered_at"`
	AlertTriggeredBy  string    `db:"alert_triggered_by" json:"alert_triggered_by"`

	// Stage 2: transfer order
	TransferOrderID         *string    `db:"transfer_order_id" json:"transfer_order_id,omitempty"`
	WarehouseID             *string    `db:"warehouse_id" json:"warehouse_id,omitempty"`
	WarehouseAvailableStock *int       `db:"warehouse_available_stock" json:"warehouse_available_stock,omitempty"`
	TransferQuantity        *int       `db:"transfer_quantity" json:"transfer_quantity,omitempty"`
	TransferOrderCreatedAt  *time.Time `db:"transfer_order_created_at" json:"transfer_order_created_at,omitempty"`

	// Stage 3: shipment
	ShipmentID        *string    `db:"shipment_id" json:"shipment_id,omitempty"`
	TrackingNumber    *string    `db:"tracking_number" json:"tracking_number,omitempty"`
	Carrier           *string    `db:"carrier" json:"carrier,omitempty"`
	EstimatedDelivery *time.Time `db:"estimated_delivery_date" json:"estimated_delivery_date,omitempty"`
	ShippedAt         *time.Time `db:"shipped_at" json:"shipped_at,omitempty"`
	ShippedQuantity   *int       `db:"shipped_quantity" json:"shipped_quantity,omitempty"`

	// Stage 4: delivery
	ReceivedAt       *time.Time `db:"received_at" json:"received_at,omitempty"`
	ReceivedBy       *string    `db:"received_by" json:"received_by,omitempty"`
	ReceivedQuantity *int       `db:"received_quantity" json:"received_quantity,omitempty"`
	NewStockLevel    *int       `db:"new_stock_level" json:"new_stock_level,omitempty"`

	Status        OrderStatus   `db:"status" json:"status"`
	StatusHistory StatusHistory `db:"status_history" json:"status_history"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CheckTransition reports whether the order may move to target from its
// current status along the standard workflow.
func (o *ReplenishmentOrder) CheckTransition(target OrderStatus) error {
	required, ok := requiredPredecessor[target]
	if !ok || o.Status != required {
		return &InvalidStateTransitionError{
			ReplenishmentID: o.ReplenishmentID,
			Current:         o.Status,
			Required:        required,
			Target:          target,
		}
	}
	return nil
}

// CheckAdminTransition validates the out-of-band path to CANCELLED or FAILED.
func (o *ReplenishmentOrder) CheckAdminTransition(target OrderStatus) error {
	if target != StatusCancelled && target != StatusFailed {
		return &ValidationError{Field: "status", Message: fmt.Sprintf("%s is not an administrative status", target)}
	}
	if o.Status.Terminal() {
		return &InvalidStateTransitionError{
			ReplenishmentID: o.ReplenishmentID,
			Current:         o.Status,
			Target:          target,
		}
	}
	return nil
}

// ApplyTransition advances the order and appends the audit entry. Callers
// must have validated the move with CheckTransition or CheckAdminTransition.
func (o *ReplenishmentOrder) ApplyTransition(target OrderStatus, actor, notes string, now time.Time) {
	note := fmt.Sprintf("Status changed from %s to %s.", o.Status, target)
	if notes != "" {
		note += " " + notes
	}
	o.Status = target
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		Status:    target,
		Timestamp: now,
		UpdatedBy: actor,
		Notes:     note,
	})
	o.UpdatedAt = now
}

// ActiveStatuses are the statuses of orders still moving through the workflow.
var ActiveStatuses = []OrderStatus{StatusAlertRaised, StatusPendingPicking, StatusInTransit}
