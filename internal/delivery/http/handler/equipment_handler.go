package handler

import (
	"time"

	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/pkg/response"
	"lab-scheduler/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// EquipmentHandler serves the per-equipment views: the reservation timeline
// of critical equipment and the capacity ledger of the rest.
type EquipmentHandler struct {
	scheduling usecase.SchedulingUsecase
	capacity   usecase.CapacityUsecase
}

type allocateRequest struct {
	TaskID    uuid.UUID `json:"task_id"`
	Slots     *int      `json:"slots"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Enforce   bool      `json:"enforce"`
}

func NewEquipmentHandler(scheduling usecase.SchedulingUsecase, capacity usecase.CapacityUsecase) *EquipmentHandler {
	return &EquipmentHandler{scheduling: scheduling, capacity: capacity}
}

func (h *EquipmentHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/equipment")
	grp.Get("/:id/reservations", h.Timeline)
	grp.Get("/:id/capacity", h.Capacity)
	grp.Post("/:id/allocations", h.Allocate)

	alloc := r.Group("/allocations")
	alloc.Post("/:id/release", h.Release)
}

func (h *EquipmentHandler) Timeline(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	from, to, err := parseWindowQuery(c)
	if err != nil {
		return err
	}

	items, err := h.scheduling.Timeline(c.Context(), id, usecase.TimelineParams{
		From:             from,
		To:               to,
		IncludeCancelled: c.Query("include_cancelled") == "true",
	})
	if err != nil {
		return mapDomainError(err)
	}

	res := dto.TimelineResponse{
		EquipmentID:  id,
		From:         from.UTC(),
		To:           to.UTC(),
		Reservations: make([]dto.ReservationResponse, 0, len(items)),
	}
	for _, it := range items {
		res.Reservations = append(res.Reservations, dto.NewReservationResponse(it))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func (h *EquipmentHandler) Capacity(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	from, to, err := parseWindowQuery(c)
	if err != nil {
		return err
	}

	report, err := h.capacity.CheckCapacity(c.Context(), id, from, to)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewCapacityResponse(report))
}

func (h *EquipmentHandler) Allocate(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req allocateRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	a, err := h.capacity.Allocate(c.Context(), usecase.AllocateInput{
		EquipmentID: id,
		TaskID:      req.TaskID,
		Slots:       req.Slots,
		Start:       req.StartTime,
		End:         req.EndTime,
		Enforce:     req.Enforce,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return response.Created(c, dto.NewAllocationResponse(a))
}

func (h *EquipmentHandler) Release(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	a, err := h.capacity.Release(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewAllocationResponse(a))
}
