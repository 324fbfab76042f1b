package dto

import "github.com/projectsentry/replenishment-service/internal/model"

type InventoryListResponse struct {
	Items []model.StoreInventory `json:"items"`
	Total int                    `json:"total"`
}

type StockUpdateResponse struct {
	Inventory         *model.StoreInventory `json:"inventory"`
	NeedsReplenishment bool                 `json:"needs_replenishment"`
}
