package handler

import (
	"time"

	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/pkg/response"
	"lab-scheduler/internal/usecase"

	"github.com/gofiber/fiber/v3"
)

type WorkOrderHandler struct {
	uc usecase.WorkOrderUsecase
}

type createWorkOrderRequest struct {
	Code                 string     `json:"code"`
	SLADeadline          *time.Time `json:"sla_deadline"`
	SourceCategoryWeight float64    `json:"source_category_weight"`
	ClientPriorityWeight float64    `json:"client_priority_weight"`
}

// updateSLARequest replaces the deadline as sent; a null or missing
// sla_deadline clears it. Omitted weights keep their current value.
type updateSLARequest struct {
	SLADeadline          *time.Time `json:"sla_deadline"`
	SourceCategoryWeight *float64   `json:"source_category_weight"`
	ClientPriorityWeight *float64   `json:"client_priority_weight"`
}

func NewWorkOrderHandler(uc usecase.WorkOrderUsecase) *WorkOrderHandler {
	return &WorkOrderHandler{uc: uc}
}

func (h *WorkOrderHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/work-orders")
	grp.Post("/", h.Create)
	grp.Get("/queue", h.Queue)
	grp.Get("/:id", h.Get)
	grp.Put("/:id/sla", h.UpdateSLA)
}

func (h *WorkOrderHandler) Create(c fiber.Ctx) error {
	var req createWorkOrderRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	view, err := h.uc.Create(c.Context(), usecase.CreateWorkOrderInput{
		Code:                 req.Code,
		SLADeadline:          req.SLADeadline,
		SourceCategoryWeight: req.SourceCategoryWeight,
		ClientPriorityWeight: req.ClientPriorityWeight,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return response.Created(c, dto.NewWorkOrderResponse(view))
}

func (h *WorkOrderHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	view, err := h.uc.Get(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewWorkOrderResponse(view))
}

func (h *WorkOrderHandler) UpdateSLA(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateSLARequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	view, err := h.uc.UpdateSLA(c.Context(), id, usecase.UpdateSLAInput{
		SLADeadline:          req.SLADeadline,
		SourceCategoryWeight: req.SourceCategoryWeight,
		ClientPriorityWeight: req.ClientPriorityWeight,
	})
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewWorkOrderResponse(view))
}

func (h *WorkOrderHandler) Queue(c fiber.Ctx) error {
	views, err := h.uc.Queue(c.Context())
	if err != nil {
		return mapDomainError(err)
	}

	res := make([]dto.WorkOrderResponse, 0, len(views))
	for _, v := range views {
		res = append(res, dto.NewWorkOrderResponse(v))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}
