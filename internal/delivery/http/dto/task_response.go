package dto

import (
	"time"

	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
)

type RequiredSkillResponse struct {
	SkillID               uuid.UUID `json:"skill_id"`
	MinProficiency        string    `json:"min_proficiency"`
	CertificationRequired bool      `json:"certification_required"`
}

type TaskResponse struct {
	ID                   uuid.UUID               `json:"id"`
	WorkOrderID          uuid.UUID               `json:"work_order_id"`
	Title                string                  `json:"title"`
	RequiredEquipmentID  *uuid.UUID              `json:"required_equipment_id"`
	RequiredCapacity     *int                    `json:"required_capacity"`
	RequiredSkills       []RequiredSkillResponse `json:"required_skills"`
	Status               string                  `json:"status"`
	AssignedTechnicianID *uuid.UUID              `json:"assigned_technician_id"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

func NewTaskResponse(t task.Task) TaskResponse {
	reqs := make([]RequiredSkillResponse, 0, len(t.RequiredSkills))
	for _, r := range t.RequiredSkills {
		reqs = append(reqs, RequiredSkillResponse{
			SkillID:               r.SkillID,
			MinProficiency:        r.MinProficiency.String(),
			CertificationRequired: r.CertificationRequired,
		})
	}
	return TaskResponse{
		ID:                   t.ID,
		WorkOrderID:          t.WorkOrderID,
		Title:                t.Title,
		RequiredEquipmentID:  t.RequiredEquipmentID,
		RequiredCapacity:     t.RequiredCapacity,
		RequiredSkills:       reqs,
		Status:               string(t.Status),
		AssignedTechnicianID: t.AssignedTechnicianID,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

// StepError describes a failed step of a coordinated submission.
type StepError struct {
	Message   string      `json:"message"`
	Retryable bool        `json:"retryable"`
	Detail    interface{} `json:"detail,omitempty"`
}

type SubmitTaskResponse struct {
	Task             TaskResponse          `json:"task"`
	Reservation      *ReservationResponse  `json:"reservation"`
	Allocation       *AllocationResponse   `json:"allocation"`
	Consumptions     []ConsumptionResponse `json:"consumptions"`
	ReservationError *StepError            `json:"reservation_error"`
	ConsumptionError *StepError            `json:"consumption_error"`
}

type TaskStatusResponse struct {
	Task                TaskResponse          `json:"task"`
	Reservations        []ReservationResponse `json:"reservations"`
	ReleasedAllocations []AllocationResponse  `json:"released_allocations"`
	SideEffectErrors    []string              `json:"side_effect_errors"`
}

func NewTaskStatusResponse(sc usecase.StatusChange) TaskStatusResponse {
	res := make([]ReservationResponse, 0, len(sc.Reservations))
	for _, r := range sc.Reservations {
		res = append(res, NewReservationResponse(r))
	}
	allocs := make([]AllocationResponse, 0, len(sc.ReleasedAllocations))
	for _, a := range sc.ReleasedAllocations {
		allocs = append(allocs, NewAllocationResponse(a))
	}
	errs := sc.SideEffectErrors
	if errs == nil {
		errs = []string{}
	}
	return TaskStatusResponse{
		Task:                NewTaskResponse(sc.Task),
		Reservations:        res,
		ReleasedAllocations: allocs,
		SideEffectErrors:    errs,
	}
}

type QueuedTaskResponse struct {
	Task          TaskResponse     `json:"task"`
	WorkOrderCode string           `json:"work_order_code"`
	Priority      PriorityResponse `json:"priority"`
}
