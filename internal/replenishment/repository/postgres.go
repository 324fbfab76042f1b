package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Insert(ctx context.Context, order *model.ReplenishmentOrder) error {
	query := `
        INSERT INTO replenishment_orders (
            replenishment_id, store_id, product_id, product_name,
            current_stock, reorder_threshold, requested_quantity,
            alert_triggered_at, alert_triggered_by,
            transfer_order_id, warehouse_id, warehouse_available_stock,
            transfer_quantity, transfer_order_created_at,
            shipment_id, tracking_number, carrier, estimated_delivery_date,
            shipped_at, shipped_quantity,
            received_at, received_by, received_quantity, new_stock_level,
            status, status_history, created_at, updated_at
        )
        VALUES (
            :replenishment_id, :store_id, :product_id, :product_name,
            :current_stock, :reorder_threshold, :requested_quantity,
            :alert_triggered_at, :alert_triggered_by,
            :transfer_order_id, :warehouse_id, :warehouse_available_stock,
            :transfer_quantity, :transfer_order_created_at,
            :shipment_id, :tracking_number, :carrier, :estimated_delivery_date,
            :shipped_at, :shipped_quantity,
            :received_at, :received_by, :received_quantity, :new_stock_level,
            :status, :status_history, :created_at, :updated_at
        )
    `
	_, err := r.DB.NamedExecContext(ctx, query, order)
	return err
}

func (r *PGRepository) FindByID(ctx context.Context, replenishmentID string) (*model.ReplenishmentOrder, error) {
	var order model.ReplenishmentOrder
	query := `SELECT * FROM replenishment_orders WHERE replenishment_id = $1`
	err := r.DB.GetContext(ctx, &order, query, replenishmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *PGRepository) FindByStore(ctx context.Context, storeID string, status *model.OrderStatus) ([]model.ReplenishmentOrder, error) {
	var orders []model.ReplenishmentOrder
	if status != nil {
		query := `SELECT * FROM replenishment_orders WHERE store_id = $1 AND status = $2 ORDER BY created_at DESC`
		err := r.DB.SelectContext(ctx, &orders, query, storeID, *status)
		return orders, err
	}
	query := `SELECT * FROM replenishment_orders WHERE store_id = $1 ORDER BY created_at DESC`
	err := r.DB.SelectContext(ctx, &orders, query, storeID)
	return orders, err
}

func (r *PGRepository) FindActive(ctx context.Context) ([]model.ReplenishmentOrder, error) {
	query, args, err := sqlx.In(
		`SELECT * FROM replenishment_orders WHERE status IN (?) ORDER BY created_at DESC`,
		model.ActiveStatuses,
	)
	if err != nil {
		return nil, err
	}
	query = r.DB.Rebind(query)

	var orders []model.ReplenishmentOrder
	err = r.DB.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

func (r *PGRepository) SearchByText(ctx context.Context, search string, limit int) ([]model.ReplenishmentOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	var orders []model.ReplenishmentOrder
	query := `
        SELECT * FROM replenishment_orders
        WHERE product_name ILIKE $1 OR product_id ILIKE $1 OR replenishment_id ILIKE $1 OR store_id ILIKE $1
        ORDER BY created_at DESC
        LIMIT $2
    `
	err := r.DB.SelectContext(ctx, &orders, query, "%"+search+"%", limit)
	return orders, err
}

// transitionRecord widens the order with the status the row must still hold
// for the conditional update to match.
type transitionRecord struct {
	*model.ReplenishmentOrder
	ExpectedStatus model.OrderStatus `db:"expected_status"`
}

// Transition applies the inventory effect and the conditional order update
// in one transaction: a guard failure on either side rolls back both.
func (r *PGRepository) Transition(ctx context.Context, order *model.ReplenishmentOrder, expected model.OrderStatus, effect *replenishment.InventoryEffect) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if effect != nil {
		if err := r.applyEffect(ctx, tx, order, effect); err != nil {
			return err
		}
	}

	query := `
        UPDATE replenishment_orders
        SET transfer_order_id = :transfer_order_id,
            warehouse_id = :warehouse_id,
            warehouse_available_stock = :warehouse_available_stock,
            transfer_quantity = :transfer_quantity,
            transfer_order_created_at = :transfer_order_created_at,
            shipment_id = :shipment_id,
            tracking_number = :tracking_number,
            carrier = :carrier,
            estimated_delivery_date = :estimated_delivery_date,
            shipped_at = :shipped_at,
            shipped_quantity = :shipped_quantity,
            received_at = :received_at,
            received_by = :received_by,
            received_quantity = :received_quantity,
            new_stock_level = :new_stock_level,
            status = :status,
            status_history = :status_history,
            updated_at = :updated_at
        WHERE replenishment_id = :replenishment_id AND status = :expected_status
    `
	res, err := tx.NamedExecContext(ctx, query, &transitionRecord{
		ReplenishmentOrder: order,
		ExpectedStatus:     expected,
	})
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return replenishment.ErrStatusConflict
	}

	return tx.Commit()
}

func (r *PGRepository) applyEffect(ctx context.Context, tx *sqlx.Tx, order *model.ReplenishmentOrder, effect *replenishment.InventoryEffect) error {
	switch effect.Kind {
	case replenishment.EffectNone:
		return nil

	case replenishment.EffectReserve:
		res, err := tx.ExecContext(ctx, `
            UPDATE warehouse_inventory
            SET available_stock = available_stock - $3,
                reserved_stock = reserved_stock + $3,
                updated_at = now()
            WHERE warehouse_id = $1 AND product_id = $2 AND available_stock >= $3
        `, effect.WarehouseID, effect.ProductID, effect.Quantity)
		return guardResult(res, err)

	case replenishment.EffectCommitShipment:
		res, err := tx.ExecContext(ctx, `
            UPDATE warehouse_inventory
            SET reserved_stock = reserved_stock - $3,
                total_stock = total_stock - $3,
                updated_at = now()
            WHERE warehouse_id = $1 AND product_id = $2 AND reserved_stock >= $3
        `, effect.WarehouseID, effect.ProductID, effect.Quantity)
		return guardResult(res, err)

	case replenishment.EffectRelease:
		res, err := tx.ExecContext(ctx, `
            UPDATE warehouse_inventory
            SET reserved_stock = reserved_stock - $3,
                available_stock = available_stock + $3,
                updated_at = now()
            WHERE warehouse_id = $1 AND product_id = $2 AND reserved_stock >= $3
        `, effect.WarehouseID, effect.ProductID, effect.Quantity)
		return guardResult(res, err)

	case replenishment.EffectReceive:
		var newStock int
		err := tx.GetContext(ctx, &newStock, `
            UPDATE store_inventory
            SET current_stock = GREATEST(0, current_stock + $3),
                last_stock_update = now(),
                last_replenishment_at = now(),
                updated_at = now()
            WHERE store_id = $1 AND product_id = $2
            RETURNING current_stock
        `, effect.StoreID, effect.ProductID, effect.Quantity)
		if errors.Is(err, sql.ErrNoRows) {
			// No store record: the order still completes; the stock level
			// falls back to what was received.
			newStock = effect.Quantity
			err = nil
		}
		if err != nil {
			return err
		}
		order.NewStockLevel = &newStock
		return nil

	default:
		return fmt.Errorf("unknown inventory effect kind %d", effect.Kind)
	}
}

func guardResult(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return replenishment.ErrEffectConflict
	}
	return nil
}
