package handler

import (
	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/pkg/response"
	"lab-scheduler/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type ConsumptionHandler struct {
	uc usecase.ConsumptionUsecase
}

type registerConsumptionsRequest struct {
	Items []consumptionItemRequest `json:"items"`
}

type voidConsumptionRequest struct {
	Reason string `json:"reason"`
}

func NewConsumptionHandler(uc usecase.ConsumptionUsecase) *ConsumptionHandler {
	return &ConsumptionHandler{uc: uc}
}

func (h *ConsumptionHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	tasks := r.Group("/tasks")
	tasks.Get("/:id/consumptions", h.ListByTask)
	tasks.Post("/:id/consumptions", h.Register)

	grp := r.Group("/consumptions")
	grp.Get("/:id", h.Get)
	grp.Post("/:id/void", h.Void)
}

func (h *ConsumptionHandler) Register(c fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req registerConsumptionsRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	created, err := h.uc.RegisterConsumptions(c.Context(), taskID, toItems(req.Items))
	if err != nil {
		return mapDomainError(err)
	}
	return response.Created(c, dto.NewConsumptionResponses(created))
}

func (h *ConsumptionHandler) ListByTask(c fiber.Ctx) error {
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	items, err := h.uc.ListByTask(c.Context(), taskID)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewConsumptionResponses(items))
}

func (h *ConsumptionHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	item, err := h.uc.GetConsumption(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewConsumptionResponse(item))
}

func (h *ConsumptionHandler) Void(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req voidConsumptionRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	voided, err := h.uc.VoidConsumption(c.Context(), id, req.Reason)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewConsumptionResponse(voided))
}
