package handler

import (
	"strconv"
	"time"

	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/pkg/response"
	"lab-scheduler/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultTaskQueueLimit = 50

type TaskHandler struct {
	uc       usecase.TaskUsecase
	matching usecase.MatchingUsecase
}

type requiredSkillRequest struct {
	SkillID               uuid.UUID `json:"skill_id"`
	MinProficiency        string    `json:"min_proficiency"`
	CertificationRequired bool      `json:"certification_required"`
}

type bookingRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type consumptionItemRequest struct {
	MaterialID       uuid.UUID       `json:"material_id"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	UnitPrice        *float64        `json:"unit_price"`
}

type submitTaskRequest struct {
	WorkOrderID         uuid.UUID                `json:"work_order_id"`
	Title               string                   `json:"title"`
	RequiredEquipmentID *uuid.UUID               `json:"required_equipment_id"`
	RequiredCapacity    *int                     `json:"required_capacity"`
	RequiredSkills      []requiredSkillRequest   `json:"required_skills"`
	Booking             *bookingRequest          `json:"booking"`
	EnforceCapacity     bool                     `json:"enforce_capacity"`
	Consumptions        []consumptionItemRequest `json:"consumptions"`
}

type assignTaskRequest struct {
	TechnicianID uuid.UUID `json:"technician_id"`
}

type updateTaskStatusRequest struct {
	Status string `json:"status"`
}

func NewTaskHandler(uc usecase.TaskUsecase, matching usecase.MatchingUsecase) *TaskHandler {
	return &TaskHandler{uc: uc, matching: matching}
}

func (h *TaskHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}

	grp := r.Group("/tasks")
	grp.Post("/", h.Submit)
	grp.Get("/queue", h.Queue)
	grp.Get("/:id", h.Get)
	grp.Get("/:id/eligible-technicians", h.EligibleTechnicians)
	grp.Post("/:id/assign", h.Assign)
	grp.Post("/:id/status", h.UpdateStatus)
}

func (h *TaskHandler) Submit(c fiber.Ctx) error {
	var req submitTaskRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	reqs, err := toRequirements(req.RequiredSkills)
	if err != nil {
		return mapDomainError(err)
	}

	in := usecase.SubmitTaskInput{
		WorkOrderID:         req.WorkOrderID,
		Title:               req.Title,
		RequiredEquipmentID: req.RequiredEquipmentID,
		RequiredCapacity:    req.RequiredCapacity,
		RequiredSkills:      reqs,
		EnforceCapacity:     req.EnforceCapacity,
		Consumptions:        toItems(req.Consumptions),
	}
	if req.Booking != nil {
		in.Booking = &usecase.Window{Start: req.Booking.StartTime, End: req.Booking.EndTime}
	}

	out, err := h.uc.Submit(c.Context(), in)
	if err != nil {
		return mapDomainError(err)
	}

	res := dto.SubmitTaskResponse{
		Task:             dto.NewTaskResponse(out.Task),
		Consumptions:     dto.NewConsumptionResponses(out.Consumptions),
		ReservationError: stepError(out.ReservationError),
		ConsumptionError: stepError(out.ConsumptionError),
	}
	if out.Reservation != nil {
		r := dto.NewReservationResponse(*out.Reservation)
		res.Reservation = &r
	}
	if out.Allocation != nil {
		a := dto.NewAllocationResponse(*out.Allocation)
		res.Allocation = &a
	}
	return response.Created(c, res)
}

func (h *TaskHandler) Get(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	t, err := h.uc.GetTask(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewTaskResponse(t))
}

func (h *TaskHandler) EligibleTechnicians(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	out, err := h.matching.FindEligibleTechnicians(c.Context(), id)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewEligibleTechniciansResponse(out))
}

func (h *TaskHandler) Assign(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req assignTaskRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	t, err := h.uc.Assign(c.Context(), id, req.TechnicianID)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewTaskResponse(t))
}

func (h *TaskHandler) UpdateStatus(c fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req updateTaskStatusRequest
	if err := c.Bind().Body(&req); err != nil {
		return badRequest(err)
	}

	to := task.Status(req.Status)
	if !to.Valid() {
		return mapDomainError(domain.Invalid("status", "unknown task status"))
	}

	out, err := h.uc.UpdateStatus(c.Context(), id, to)
	if err != nil {
		return mapDomainError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewTaskStatusResponse(out))
}

func (h *TaskHandler) Queue(c fiber.Ctx) error {
	limit := defaultTaskQueueLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return mapDomainError(domain.Invalid("limit", "must be a positive integer"))
		}
		limit = n
	}

	items, err := h.uc.Queue(c.Context(), limit)
	if err != nil {
		return mapDomainError(err)
	}

	res := make([]dto.QueuedTaskResponse, 0, len(items))
	for _, it := range items {
		res = append(res, dto.QueuedTaskResponse{
			Task:          dto.NewTaskResponse(it.Task),
			WorkOrderCode: it.WorkOrderCode,
			Priority:      dto.NewPriorityResponse(it.Priority, it.ComputedAt),
		})
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, res)
}

func toRequirements(in []requiredSkillRequest) ([]skill.Requirement, error) {
	out := make([]skill.Requirement, 0, len(in))
	for _, r := range in {
		p, err := skill.ParseProficiency(r.MinProficiency)
		if err != nil {
			return nil, domain.Invalid("min_proficiency", err.Error())
		}
		out = append(out, skill.Requirement{
			SkillID:               r.SkillID,
			MinProficiency:        p,
			CertificationRequired: r.CertificationRequired,
		})
	}
	return out, nil
}

func toItems(in []consumptionItemRequest) []material.Item {
	if len(in) == 0 {
		return nil
	}
	out := make([]material.Item, 0, len(in))
	for _, it := range in {
		out = append(out, material.Item{
			MaterialID:       it.MaterialID,
			QuantityConsumed: it.QuantityConsumed,
			UnitPrice:        it.UnitPrice,
		})
	}
	return out
}
