package model

import "time"

// StoreInventory is one (store, product) stock record. The pair is unique;
// current_stock never goes below zero.
type StoreInventory struct {
	StoreID             string     `db:"store_id" json:"store_id"`
	ProductID           string     `db:"product_id" json:"product_id"`
	ProductName         string     `db:"product_name" json:"product_name"`
	ProductCategory     string     `db:"product_category" json:"product_category"`
	CurrentStock        int        `db:"current_stock" json:"current_stock"`
	ReorderThreshold    int        `db:"reorder_threshold" json:"reorder_threshold"`
	MaxStockLevel       int        `db:"max_stock_level" json:"max_stock_level"`
	UnitCost            float64    `db:"unit_cost" json:"unit_cost"`
	LastStockUpdate     time.Time  `db:"last_stock_update" json:"last_stock_update"`
	LastReplenishmentAt *time.Time `db:"last_replenishment_at" json:"last_replenishment_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// NeedsReplenishment reports whether the record sits at or below its
// reorder threshold.
func (s *StoreInventory) NeedsReplenishment() bool {
	return s.CurrentStock <= s.ReorderThreshold
}

// WarehouseInventory is one (warehouse, product) stock record. At rest the
// three counters satisfy total_stock == available_stock + reserved_stock.
type WarehouseInventory struct {
	WarehouseID    string     `db:"warehouse_id" json:"warehouse_id"`
	ProductID      string     `db:"product_id" json:"product_id"`
	ProductName    string     `db:"product_name" json:"product_name"`
	AvailableStock int        `db:"available_stock" json:"available_stock"`
	ReservedStock  int        `db:"reserved_stock" json:"reserved_stock"`
	TotalStock     int        `db:"total_stock" json:"total_stock"`
	UnitCost       float64    `db:"unit_cost" json:"unit_cost"`
	LastRestocked  *time.Time `db:"last_restocked" json:"last_restocked,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

type Store struct {
	StoreID      string    `db:"store_id" json:"store_id"`
	StoreName    string    `db:"store_name" json:"store_name"`
	City         string    `db:"city" json:"city"`
	State        string    `db:"state" json:"state"`
	ManagerName  string    `db:"manager_name" json:"manager_name"`
	ContactEmail string    `db:"contact_email" json:"contact_email"`
	Status       string    `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type Warehouse struct {
	WarehouseID        string    `db:"warehouse_id" json:"warehouse_id"`
	WarehouseName      string    `db:"warehouse_name" json:"warehouse_name"`
	City               string    `db:"city" json:"city"`
	State              string    `db:"state" json:"state"`
	Capacity           int       `db:"capacity" json:"capacity"`
	CurrentUtilization int       `db:"current_utilization" json:"current_utilization"`
	Status             string    `db:"status" json:"status"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}
