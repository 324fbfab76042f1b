package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/internal/inventory"
	"github.com/projectsentry/replenishment-service/internal/inventory/dto"
	"github.com/projectsentry/replenishment-service/internal/model"
)

type InventoryHandler struct {
	uc     inventory.UseCase
	logger *zap.Logger
}

func NewInventoryHandler(uc inventory.UseCase, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{uc: uc, logger: logger}
}

func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListInventory)
	rg.GET("/low-stock", h.ListLowStock)
	rg.GET("/stores", h.ListStores)
	rg.GET("/warehouses", h.ListWarehouses)
	rg.GET("/warehouse/:warehouseId", h.ListWarehouseInventory)
	rg.GET("/warehouse/:warehouseId/:productId", h.GetWarehouseInventory)
	rg.PUT("", h.UpsertInventory)
	rg.GET("/:storeId/:productId", h.GetStoreInventory)
	rg.PATCH("/:storeId/:productId/stock", h.UpdateStock)
}

func (h *InventoryHandler) writeError(c *gin.Context, err error) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("inventory request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func (h *InventoryHandler) ListInventory(c *gin.Context) {
	var filters dto.InventoryFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid query: " + err.Error()})
		return
	}

	items, total, err := h.uc.ListInventory(c.Request.Context(), &filters)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.InventoryListResponse{Items: items, Total: total})
}

func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	items, total, err := h.uc.ListLowStock(c.Request.Context(), c.Query("store_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.InventoryListResponse{Items: items, Total: total})
}

func (h *InventoryHandler) GetStoreInventory(c *gin.Context) {
	inv, err := h.uc.GetStoreInventory(c.Request.Context(), c.Param("storeId"), c.Param("productId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InventoryHandler) UpsertInventory(c *gin.Context) {
	var input dto.UpsertInventoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	inv, err := h.uc.UpsertStoreInventory(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	var input dto.UpdateStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	inv, needsReplenishment, err := h.uc.UpdateStock(c.Request.Context(), c.Param("storeId"), c.Param("productId"), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.StockUpdateResponse{Inventory: inv, NeedsReplenishment: needsReplenishment})
}

func (h *InventoryHandler) GetWarehouseInventory(c *gin.Context) {
	inv, err := h.uc.GetWarehouseInventory(c.Request.Context(), c.Param("warehouseId"), c.Param("productId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InventoryHandler) ListWarehouseInventory(c *gin.Context) {
	items, err := h.uc.ListWarehouseInventory(c.Request.Context(), c.Param("warehouseId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (h *InventoryHandler) ListStores(c *gin.Context) {
	stores, err := h.uc.ListStores(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores, "total": len(stores)})
}

func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	warehouses, err := h.uc.ListWarehouses(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warehouses": warehouses, "total": len(warehouses)})
}
