package dto

import (
	"time"

	"lab-scheduler/internal/domain/material"

	"github.com/google/uuid"
)

type ConsumptionResponse struct {
	ID               uuid.UUID  `json:"id"`
	MaterialID       uuid.UUID  `json:"material_id"`
	TaskID           uuid.UUID  `json:"task_id"`
	QuantityConsumed float64    `json:"quantity_consumed"`
	UnitPrice        *float64   `json:"unit_price"`
	TotalCost        *float64   `json:"total_cost"`
	Status           string     `json:"status"`
	VoidReason       *string    `json:"void_reason"`
	ConsumedAt       time.Time  `json:"consumed_at"`
	VoidedAt         *time.Time `json:"voided_at"`
}

func NewConsumptionResponse(c material.Consumption) ConsumptionResponse {
	return ConsumptionResponse{
		ID:               c.ID,
		MaterialID:       c.MaterialID,
		TaskID:           c.TaskID,
		QuantityConsumed: c.QuantityConsumed.InexactFloat64(),
		UnitPrice:        c.UnitPrice,
		TotalCost:        c.TotalCost,
		Status:           string(c.Status),
		VoidReason:       c.VoidReason,
		ConsumedAt:       c.ConsumedAt,
		VoidedAt:         c.VoidedAt,
	}
}

func NewConsumptionResponses(cs []material.Consumption) []ConsumptionResponse {
	out := make([]ConsumptionResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewConsumptionResponse(c))
	}
	return out
}
