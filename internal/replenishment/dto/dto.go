package dto

import "github.com/projectsentry/replenishment-service/internal/model"

type OrderResponse struct {
	Success   bool                      `json:"success"`
	Message   string                    `json:"message,omitempty"`
	Data      *model.ReplenishmentOrder `json:"data"`
	Stage     string                    `json:"stage,omitempty"`
	NextStage string                    `json:"next_stage,omitempty"`
}

type OrderListResponse struct {
	Success bool                       `json:"success"`
	Orders  []model.ReplenishmentOrder `json:"orders"`
	Total   int                        `json:"total"`
}

type HistoryResponse struct {
	Success         bool                `json:"success"`
	ReplenishmentID string              `json:"replenishment_id"`
	History         model.StatusHistory `json:"history"`
}
