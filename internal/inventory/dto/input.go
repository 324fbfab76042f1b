package dto

type InventoryFilters struct {
	StoreID   string `form:"store_id"`
	ProductID string `form:"product_id"`
	Category  string `form:"category"`
	LowStock  bool   `form:"low_stock"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
}

type UpsertInventoryInput struct {
	StoreID          string  `json:"store_id" binding:"required"`
	ProductID        string  `json:"product_id" binding:"required"`
	ProductName      string  `json:"product_name" binding:"required"`
	ProductCategory  string  `json:"product_category"`
	CurrentStock     int     `json:"current_stock"`
	ReorderThreshold int     `json:"reorder_threshold"`
	MaxStockLevel    int     `json:"max_stock_level"`
	UnitCost         float64 `json:"unit_cost"`
}

// UpdateStockInput drives the store stock endpoint. Operation is one of
// add, subtract, set; it defaults to add.
type UpdateStockInput struct {
	Quantity  int    `json:"quantity" binding:"required"`
	Operation string `json:"operation"`
}
