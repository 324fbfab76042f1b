package model

import "fmt"

// NotFoundError reports a missing order or inventory record.
type NotFoundError struct {
	Kind string // "replenishment order", "store inventory", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// InvalidStateTransitionError reports a workflow precondition violation:
// the order is not in the status the attempted stage requires.
type InvalidStateTransitionError struct {
	ReplenishmentID string
	Current         OrderStatus
	Required        OrderStatus
	Target          OrderStatus
}

func (e *InvalidStateTransitionError) Error() string {
	if e.Required != "" {
		return fmt.Sprintf("invalid state transition for %s: status is %s, %s requires %s",
			e.ReplenishmentID, e.Current, e.Target, e.Required)
	}
	return fmt.Sprintf("invalid state transition for %s: cannot move from %s to %s",
		e.ReplenishmentID, e.Current, e.Target)
}

// InsufficientStockError is returned only when warehouse availability is
// exactly zero at reservation time. Partial availability is not an error;
// the requested quantity is clamped instead.
type InsufficientStockError struct {
	WarehouseID string
	ProductID   string
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("no stock available in warehouse %s for product %s (requested %d)",
		e.WarehouseID, e.ProductID, e.Requested)
}

// ValidationError rejects malformed input before any mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// PersistenceError wraps a storage failure that aborted an operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
