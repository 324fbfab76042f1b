package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
	"github.com/projectsentry/replenishment-service/internal/replenishment/dto"
)

type ReplenishmentHandler struct {
	uc     replenishment.UseCase
	logger *zap.Logger
}

func NewReplenishmentHandler(uc replenishment.UseCase, logger *zap.Logger) *ReplenishmentHandler {
	return &ReplenishmentHandler{uc: uc, logger: logger}
}

func (h *ReplenishmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/low-stock-alert", h.CreateLowStockAlert)
	rg.POST("/transfer-order", h.CreateTransferOrder)
	rg.POST("/shipment", h.CreateShipment)
	rg.POST("/delivery", h.ConfirmDelivery)

	rg.GET("/orders/active", h.GetActiveOrders)
	rg.GET("/orders/search", h.SearchOrders)
	rg.GET("/orders/store/:storeId", h.GetOrdersByStore)
	rg.GET("/orders/:replenishmentId", h.GetOrder)
	rg.GET("/orders/:replenishmentId/history", h.GetOrderHistory)
	rg.POST("/orders/:replenishmentId/cancel", h.CancelOrder)
	rg.POST("/orders/:replenishmentId/fail", h.FailOrder)
}

// stageFor maps an order status to the workflow stage tag reported alongside
// it, mirroring the tags carried in the published events.
func stageFor(status model.OrderStatus) (stage, next string) {
	switch status {
	case model.StatusAlertRaised:
		return replenishment.StageLowStockAlert, replenishment.StageTransferOrderCreated
	case model.StatusPendingPicking:
		return replenishment.StageTransferOrderCreated, replenishment.StageShipmentDispatched
	case model.StatusInTransit:
		return replenishment.StageShipmentDispatched, replenishment.StageStockReceived
	case model.StatusCompleted:
		return replenishment.StageStockReceived, ""
	}
	return "", ""
}

func (h *ReplenishmentHandler) writeError(c *gin.Context, err error) {
	var (
		validationErr *model.ValidationError
		notFoundErr   *model.NotFoundError
		transitionErr *model.InvalidStateTransitionError
		stockErr      *model.InsufficientStockError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, replenishment.ErrOrderBusy):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	default:
		h.logger.Error("replenishment request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
	}
}

func (h *ReplenishmentHandler) writeOrder(c *gin.Context, status int, message string, order *model.ReplenishmentOrder) {
	stage, next := stageFor(order.Status)
	c.JSON(status, dto.OrderResponse{
		Success:   true,
		Message:   message,
		Data:      order,
		Stage:     stage,
		NextStage: next,
	})
}

func (h *ReplenishmentHandler) CreateLowStockAlert(c *gin.Context) {
	var input dto.LowStockAlertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	order, err := h.uc.CreateLowStockAlert(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusCreated, "Low stock alert raised", order)
}

func (h *ReplenishmentHandler) CreateTransferOrder(c *gin.Context) {
	var input dto.TransferOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	order, err := h.uc.CreateTransferOrder(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusCreated, "Transfer order created", order)
}

func (h *ReplenishmentHandler) CreateShipment(c *gin.Context) {
	var input dto.ShipmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	order, err := h.uc.CreateShipment(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusCreated, "Shipment dispatched", order)
}

func (h *ReplenishmentHandler) ConfirmDelivery(c *gin.Context) {
	var input dto.DeliveryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
		return
	}

	order, err := h.uc.ConfirmDelivery(c.Request.Context(), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusOK, "Delivery confirmed", order)
}

func (h *ReplenishmentHandler) CancelOrder(c *gin.Context) {
	h.terminate(c, h.uc.CancelOrder, "Order cancelled")
}

func (h *ReplenishmentHandler) FailOrder(c *gin.Context) {
	h.terminate(c, h.uc.FailOrder, "Order marked as failed")
}

func (h *ReplenishmentHandler) terminate(
	c *gin.Context,
	op func(ctx context.Context, replenishmentID string, input *dto.TerminateInput) (*model.ReplenishmentOrder, error),
	message string,
) {
	var input dto.TerminateInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body: " + err.Error()})
			return
		}
	}

	order, err := op(c.Request.Context(), c.Param("replenishmentId"), &input)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusOK, message, order)
}

func (h *ReplenishmentHandler) GetOrder(c *gin.Context) {
	order, err := h.uc.GetOrder(c.Request.Context(), c.Param("replenishmentId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeOrder(c, http.StatusOK, "", order)
}

func (h *ReplenishmentHandler) GetOrderHistory(c *gin.Context) {
	replenishmentID := c.Param("replenishmentId")
	history, err := h.uc.GetOrderHistory(c.Request.Context(), replenishmentID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.HistoryResponse{
		Success:         true,
		ReplenishmentID: replenishmentID,
		History:         history,
	})
}

func (h *ReplenishmentHandler) GetOrdersByStore(c *gin.Context) {
	orders, err := h.uc.GetOrdersByStore(c.Request.Context(), c.Param("storeId"), c.Query("status"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Success: true, Orders: orders, Total: len(orders)})
}

func (h *ReplenishmentHandler) GetActiveOrders(c *gin.Context) {
	orders, err := h.uc.GetActiveOrders(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Success: true, Orders: orders, Total: len(orders)})
}

func (h *ReplenishmentHandler) SearchOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	orders, err := h.uc.SearchOrders(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.OrderListResponse{Success: true, Orders: orders, Total: len(orders)})
}
