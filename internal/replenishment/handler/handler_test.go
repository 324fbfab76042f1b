package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	invrepo "github.com/projectsentry/replenishment-service/internal/inventory/repository"
	"github.com/projectsentry/replenishment-service/internal/model"
	"github.com/projectsentry/replenishment-service/internal/replenishment"
	"github.com/projectsentry/replenishment-service/internal/replenishment/dto"
	"github.com/projectsentry/replenishment-service/internal/replenishment/handler"
	reprepo "github.com/projectsentry/replenishment-service/internal/replenishment/repository"
	"github.com/projectsentry/replenishment-service/internal/replenishment/usecase"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	inventory := invrepo.NewMemoryRepository()
	inventory.SeedStore(model.StoreInventory{
		StoreID:          "ST-001",
		ProductID:        "PROD-1001",
		ProductName:      "Organic Whole Milk 1L",
		CurrentStock:     5,
		ReorderThreshold: 10,
	})
	inventory.SeedWarehouse(model.WarehouseInventory{
		WarehouseID:    "WH-CENTRAL-001",
		ProductID:      "PROD-1001",
		AvailableStock: 100,
		TotalStock:     100,
	})

	uc := usecase.NewReplenishmentUseCase(
		replenishment.Config{},
		reprepo.NewMemoryRepository(inventory),
		inventory,
		nil,
		nil,
		nil,
		zap.NewNop(),
	)

	router := gin.New()
	handler.NewReplenishmentHandler(uc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1/replenishment"))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func raiseAlertHTTP(t *testing.T, router *gin.Engine) dto.OrderResponse {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/replenishment/low-stock-alert",
		`{"store_id":"ST-001","product_id":"PROD-1001","product_name":"Organic Whole Milk 1L","current_stock":5,"reorder_threshold":10}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Data)
	return resp
}

func TestLowStockAlertEndpoint(t *testing.T) {
	router := newTestRouter(t)

	resp := raiseAlertHTTP(t, router)
	assert.True(t, resp.Success)
	assert.Equal(t, model.StatusAlertRaised, resp.Data.Status)
	assert.Equal(t, replenishment.StageLowStockAlert, resp.Stage)
	assert.Equal(t, replenishment.StageTransferOrderCreated, resp.NextStage)
	assert.Equal(t, 15, resp.Data.RequestedQuantity)
}

func TestLowStockAlertEndpoint_MissingFields(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/replenishment/low-stock-alert",
		`{"store_id":"ST-001"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkflowEndpoints_FullPath(t *testing.T) {
	router := newTestRouter(t)
	id := raiseAlertHTTP(t, router).Data.ReplenishmentID

	rec := doJSON(t, router, http.MethodPost, "/api/v1/replenishment/transfer-order",
		`{"replenishment_id":"`+id+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/replenishment/shipment",
		`{"replenishment_id":"`+id+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, router, http.MethodPost, "/api/v1/replenishment/delivery",
		`{"replenishment_id":"`+id+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusCompleted, resp.Data.Status)
	assert.Equal(t, replenishment.StageStockReceived, resp.Stage)
	assert.Empty(t, resp.NextStage)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/replenishment/orders/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history dto.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.History, 4)
}

func TestSkippedStage_Returns409(t *testing.T) {
	router := newTestRouter(t)
	id := raiseAlertHTTP(t, router).Data.ReplenishmentID

	rec := doJSON(t, router, http.MethodPost, "/api/v1/replenishment/shipment",
		`{"replenishment_id":"`+id+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUnknownOrder_Returns404(t *testing.T) {
	router := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/replenishment/orders/REP-0-DEADBEEF", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	router := newTestRouter(t)
	id := raiseAlertHTTP(t, router).Data.ReplenishmentID

	rec := doJSON(t, router, http.MethodPost, "/api/v1/replenishment/orders/"+id+"/cancel",
		`{"actor":"admin","reason":"Duplicate alert"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dto.OrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.StatusCancelled, resp.Data.Status)

	// Terminal orders reject further stage calls.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/replenishment/transfer-order",
		`{"replenishment_id":"`+id+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestActiveOrdersEndpoint(t *testing.T) {
	router := newTestRouter(t)
	raiseAlertHTTP(t, router)
	raiseAlertHTTP(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/replenishment/orders/active", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.OrderListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
}

func TestSearchEndpoint_RequiresQuery(t *testing.T) {
	router := newTestRouter(t)
	raiseAlertHTTP(t, router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/replenishment/orders/search?q=milk", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.OrderListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/replenishment/orders/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
