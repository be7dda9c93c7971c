package dto

import (
	"time"

	"lab-scheduler/internal/domain/priority"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
)

type PriorityResponse struct {
	Score      float64   `json:"score"`
	Level      int       `json:"level"`
	Overdue    bool      `json:"overdue"`
	ComputedAt time.Time `json:"computed_at"`
}

func NewPriorityResponse(r priority.Result, at time.Time) PriorityResponse {
	return PriorityResponse{Score: r.Score, Level: r.Level, Overdue: r.Overdue, ComputedAt: at}
}

type WorkOrderResponse struct {
	ID                   uuid.UUID        `json:"id"`
	Code                 string           `json:"code"`
	SLADeadline          *time.Time       `json:"sla_deadline"`
	SourceCategoryWeight float64          `json:"source_category_weight"`
	ClientPriorityWeight float64          `json:"client_priority_weight"`
	Status               string           `json:"status"`
	Priority             PriorityResponse `json:"priority"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

func NewWorkOrderResponse(v usecase.WorkOrderView) WorkOrderResponse {
	wo := v.WorkOrder
	return WorkOrderResponse{
		ID:                   wo.ID,
		Code:                 wo.Code,
		SLADeadline:          wo.SLADeadline,
		SourceCategoryWeight: wo.SourceCategoryWeight,
		ClientPriorityWeight: wo.ClientPriorityWeight,
		Status:               string(wo.Status),
		Priority:             NewPriorityResponse(v.Priority, v.ComputedAt),
		CreatedAt:            wo.CreatedAt,
		UpdatedAt:            wo.UpdatedAt,
	}
}
