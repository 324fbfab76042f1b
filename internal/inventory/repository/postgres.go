package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetStoreInventory(ctx context.Context, storeID, productID string) (*model.StoreInventory, error) {
	var inv model.StoreInventory
	query := `SELECT * FROM store_inventory WHERE store_id = $1 AND product_id = $2`
	err := r.DB.GetContext(ctx, &inv, query, storeID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) FindStoreInventory(ctx context.Context, f *dto.InventoryFilters) ([]model.StoreInventory, int, error) {
	var items []model.StoreInventory
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.StoreID != "" {
		conditions = append(conditions, "store_id = :store_id")
		args["store_id"] = f.StoreID
	}
	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.Category != "" {
		conditions = append(conditions, "product_category = :category")
		args["category"] = f.Category
	}
	if f.LowStock {
		conditions = append(conditions, "current_stock <= reorder_threshold")
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT count(*) FROM store_inventory" + whereClause
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&count)
	}

	query := "SELECT * FROM store_inventory" + whereClause + " ORDER BY current_stock ASC, store_id ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) UpsertStoreInventory(ctx context.Context, inv *model.StoreInventory) error {
	query := `
        INSERT INTO store_inventory (
            store_id, product_id, product_name, product_category,
            current_stock, reorder_threshold, max_stock_level, unit_cost,
            last_stock_update, created_at, updated_at
        )
        VALUES (
            :store_id, :product_id, :product_name, :product_category,
            :current_stock, :reorder_threshold, :max_stock_level, :unit_cost,
            :last_stock_update, :created_at, :updated_at
        )
        ON CONFLICT (store_id, product_id)
        DO UPDATE SET
            product_name = EXCLUDED.product_name,
            product_category = EXCLUDED.product_category,
            current_stock = EXCLUDED.current_stock,
            reorder_threshold = EXCLUDED.reorder_threshold,
            max_stock_level = EXCLUDED.max_stock_level,
            unit_cost = EXCLUDED.unit_cost,
            last_stock_update = EXCLUDED.last_stock_update,
            updated_at = EXCLUDED.updated_at
    `
	_, err := r.DB.NamedExecContext(ctx, query, inv)
	return err
}

func (r *PGRepository) AdjustStoreStock(ctx context.Context, storeID, productID string, delta int) (*model.StoreInventory, error) {
	var inv model.StoreInventory
	query := `
        UPDATE store_inventory
        SET current_stock = GREATEST(0, current_stock + $3),
            last_stock_update = now(),
            updated_at = now()
        WHERE store_id = $1 AND product_id = $2
        RETURNING *
    `
	err := r.DB.GetContext(ctx, &inv, query, storeID, productID, delta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) SetStoreStock(ctx context.Context, storeID, productID string, quantity int) (*model.StoreInventory, error) {
	var inv model.StoreInventory
	query := `
        UPDATE store_inventory
        SET current_stock = GREATEST(0, $3),
            last_stock_update = now(),
            updated_at = now()
        WHERE store_id = $1 AND product_id = $2
        RETURNING *
    `
	err := r.DB.GetContext(ctx, &inv, query, storeID, productID, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) GetWarehouseInventory(ctx context.Context, warehouseID, productID string) (*model.WarehouseInventory, error) {
	var inv model.WarehouseInventory
	query := `SELECT * FROM warehouse_inventory WHERE warehouse_id = $1 AND product_id = $2`
	err := r.DB.GetContext(ctx, &inv, query, warehouseID, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) ListWarehouseInventory(ctx context.Context, warehouseID string) ([]model.WarehouseInventory, error) {
	var items []model.WarehouseInventory
	query := `SELECT * FROM warehouse_inventory WHERE warehouse_id = $1 ORDER BY product_id`
	err := r.DB.SelectContext(ctx, &items, query, warehouseID)
	return items, err
}

// The available_stock >= $3 guard makes the reserve atomic: two concurrent
// reservations cannot both succeed past what is actually available.
func (r *PGRepository) ReserveWarehouseStock(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	var inv model.WarehouseInventory
	query := `
        UPDATE warehouse_inventory
        SET available_stock = available_stock - $3,
            reserved_stock = reserved_stock + $3,
            updated_at = now()
        WHERE warehouse_id = $1 AND product_id = $2 AND available_stock >= $3
        RETURNING *
    `
	err := r.DB.GetContext(ctx, &inv, query, warehouseID, productID, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) CommitWarehouseShipment(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	var inv model.WarehouseInventory
	query := `
        UPDATE warehouse_inventory
        SET reserved_stock = reserved_stock - $3,
            total_stock = total_stock - $3,
            updated_at = now()
        WHERE warehouse_id = $1 AND product_id = $2 AND reserved_stock >= $3
        RETURNING *
    `
	err := r.DB.GetContext(ctx, &inv, query, warehouseID, productID, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) ReleaseWarehouseReservation(ctx context.Context, warehouseID, productID string, quantity int) (*model.WarehouseInventory, error) {
	var inv model.WarehouseInventory
	query := `
        UPDATE warehouse_inventory
        SET available_stock = available_stock + $3,
            reserved_stock = reserved_stock - $3,
            updated_at = now()
        WHERE warehouse_id = $1 AND product_id = $2 AND reserved_stock >= $3
        RETURNING *
    `
	err := r.DB.GetContext(ctx, &inv, query, warehouseID, productID, quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

func (r *PGRepository) ListStores(ctx context.Context) ([]model.Store, error) {
	var stores []model.Store
	err := r.DB.SelectContext(ctx, &stores, `SELECT * FROM stores ORDER BY store_id`)
	return stores, err
}

func (r *PGRepository) ListWarehouses(ctx context.Context) ([]model.Warehouse, error) {
	var warehouses []model.Warehouse
	err := r.DB.SelectContext(ctx, &warehouses, `SELECT * FROM warehouses ORDER BY warehouse_id`)
	return warehouses, err
}
