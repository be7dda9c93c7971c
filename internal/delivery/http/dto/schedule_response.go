package dto

import (
	"time"

	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	ID          uuid.UUID `json:"id"`
	EquipmentID uuid.UUID `json:"equipment_id"`
	TaskID      uuid.UUID `json:"task_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewReservationResponse(r schedule.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:          r.ID,
		EquipmentID: r.EquipmentID,
		TaskID:      r.TaskID,
		StartTime:   r.Interval.Start,
		EndTime:     r.Interval.End,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type TimelineResponse struct {
	EquipmentID  uuid.UUID             `json:"equipment_id"`
	From         time.Time             `json:"from"`
	To           time.Time             `json:"to"`
	Reservations []ReservationResponse `json:"reservations"`
}

type AllocationResponse struct {
	ID          uuid.UUID `json:"id"`
	EquipmentID uuid.UUID `json:"equipment_id"`
	TaskID      uuid.UUID `json:"task_id"`
	Slots       int       `json:"slots"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewAllocationResponse(a capacity.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:          a.ID,
		EquipmentID: a.EquipmentID,
		TaskID:      a.TaskID,
		Slots:       a.Slots,
		StartTime:   a.Interval.Start,
		EndTime:     a.Interval.End,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

type CapacityResponse struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Total       int       `json:"total"`
	InUse       int       `json:"in_use"`
	Available   int       `json:"available"`
}

func NewCapacityResponse(r usecase.CapacityReport) CapacityResponse {
	return CapacityResponse{
		EquipmentID: r.EquipmentID,
		From:        r.Window.Start,
		To:          r.Window.End,
		Total:       r.Total,
		InUse:       r.InUse,
		Available:   r.Available,
	}
}
