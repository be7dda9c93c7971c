package handler

import (
	"context"
	"time"

	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/pkg/response"
	"lab-scheduler/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ReservationHandler struct {
	uc usecase.SchedulingUsecase
}

type reserveRequest struct {
	EquipmentID uuid.UUID `json:"equipment_id"`
	TaskID      uuid.UUID `json:"task_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

type rescheduleRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

func NewReservationHandler(uc usecase.SchedulingUsecase) *ReservationHandler {
	return &ReservationHandler{uc: uc}
}

func (h *ReservationHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/reservations")
	grp.Post("/", h.Reserve)
	grp.Get("/:id", h.Get)
	grp.Put("/:id", h.Reschedule)
	grp.Post("/:id/start", h.transition(h.uc.Start))
	grp.Post("/:id/complete", h.transition(h.uc.Complete))
	grp.Post("/:id/cancel", h.transition(h.uc.Cancel))
}

func (h *ReservationHandler) Reserve(c fiber.Ctx) error {
	var req reserveRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	res, err := h.uc.Reserve(c.Context(), usecase.ReserveInput{
		EquipmentID: req.EquipmentID,
		TaskID:      req.TaskID,
		Start:       req.StartTime,
		End:         req.EndTime,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return response.Created(c, dto.NewReservationResponse(res))
}

func (h *ReservationHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	res, err := h.uc.GetReservation(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewReservationResponse(res))
}

func (h *ReservationHandler) Reschedule(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req rescheduleRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	res, err := h.uc.Reschedule(c.Context(), id, req.StartTime, req.EndTime)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewReservationResponse(res))
}

func (h *ReservationHandler) transition(fn func(context.Context, uuid.UUID) (schedule.Reservation, error)) fiber.Handler {
	return func(c fiber.Ctx) error {
		id, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		res, err := fn(c.Context(), id)
		if err != nil {
			return mapDomainError(err)
		}
		return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewReservationResponse(res))
	}
}
