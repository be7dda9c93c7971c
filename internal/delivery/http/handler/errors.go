package handler

import (
	"errors"
	"time"

	"lab-scheduler/internal/delivery/http/dto"
	"lab-scheduler/internal/delivery/http/middleware"
	"lab-scheduler/internal/domain"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type validationData struct {
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

type conflictData struct {
	Retryable      bool                     `json:"retryable"`
	EquipmentID    uuid.UUID                `json:"equipment_id"`
	RequestedStart time.Time                `json:"requested_start"`
	RequestedEnd   time.Time                `json:"requested_end"`
	Conflicts      []domain.ConflictingSlot `json:"conflicts"`
}

type capacityData struct {
	Retryable   bool      `json:"retryable"`
	EquipmentID uuid.UUID `json:"equipment_id"`
	Total       int       `json:"total"`
	Available   int       `json:"available"`
	Requested   int       `json:"requested"`
}

type shortageData struct {
	MaterialID uuid.UUID `json:"material_id"`
	Requested  float64   `json:"requested"`
	Available  float64   `json:"available"`
}

type stockData struct {
	Retryable bool           `json:"retryable"`
	Shortages []shortageData `json:"shortages"`
}

func newStockData(shortages []domain.Shortage) stockData {
	out := make([]shortageData, 0, len(shortages))
	for _, s := range shortages {
		out = append(out, shortageData{
			MaterialID: s.MaterialID,
			Requested:  s.Requested.InexactFloat64(),
			Available:  s.Available.InexactFloat64(),
		})
	}
	return stockData{Retryable: true, Shortages: out}
}

type stateData struct {
	Retryable bool   `json:"retryable"`
	Current   string `json:"current,omitempty"`
	Action    string `json:"action,omitempty"`
}

// detailOf renders the payload of a domain error. The second result is false
// for errors outside the domain taxonomy.
func detailOf(err error) (int, string, interface{}, bool) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusBadRequest, ve.Error(), validationData{Field: ve.Field, Reason: ve.Reason}, true
	}

	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return fiber.StatusNotFound, nf.Error(), nil, true
	}

	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		slots := ce.Conflicts
		if slots == nil {
			slots = []domain.ConflictingSlot{}
		}
		return fiber.StatusConflict, ce.Error(), conflictData{
			Retryable:      true,
			EquipmentID:    ce.EquipmentID,
			RequestedStart: ce.RequestedStart,
			RequestedEnd:   ce.RequestedEnd,
			Conflicts:      slots,
		}, true
	}

	var cpe *domain.CapacityError
	if errors.As(err, &cpe) {
		return fiber.StatusConflict, cpe.Error(), capacityData{
			Retryable:   true,
			EquipmentID: cpe.EquipmentID,
			Total:       cpe.Total,
			Available:   cpe.Available,
			Requested:   cpe.Requested,
		}, true
	}

	var se *domain.StockError
	if errors.As(err, &se) {
		return fiber.StatusUnprocessableEntity, se.Error(), newStockData(se.Shortages), true
	}

	var ste *domain.StateError
	if errors.As(err, &ste) {
		return fiber.StatusConflict, ste.Error(), stateData{Retryable: false, Current: ste.Current, Action: ste.Action}, true
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, err.Error(), validationData{Reason: err.Error()}, true
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, err.Error(), nil, true
	case errors.Is(err, domain.ErrScheduleConflict), errors.Is(err, domain.ErrCapacityExceeded):
		return fiber.StatusConflict, err.Error(), stateData{Retryable: true}, true
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusUnprocessableEntity, err.Error(), newStockData(nil), true
	case errors.Is(err, domain.ErrInvalidState):
		return fiber.StatusConflict, err.Error(), stateData{Retryable: false}, true
	}
	return 0, "", nil, false
}

func mapDomainError(err error) error {
	if err == nil {
		return nil
	}
	status, msg, data, ok := detailOf(err)
	if !ok {
		return middleware.NewAppError(fiber.StatusInternalServerError, "Internal server error", nil, err)
	}
	return middleware.NewAppError(status, msg, data, err)
}

// stepError renders a failed submission step for the response body.
func stepError(err error) *dto.StepError {
	if err == nil {
		return nil
	}
	_, msg, data, ok := detailOf(err)
	if !ok {
		return &dto.StepError{Message: "internal server error", Retryable: false}
	}
	return &dto.StepError{Message: msg, Retryable: domain.Retryable(err), Detail: data}
}

func badRequest(err error) error {
	return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
}

func parseIDParam(c fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, middleware.NewAppError(fiber.StatusBadRequest, "Bad request", validationData{Field: name, Reason: "must be a uuid"}, err)
	}
	return id, nil
}

// parseWindowQuery reads RFC 3339 from/to query parameters. Both are required.
func parseWindowQuery(c fiber.Ctx) (time.Time, time.Time, error) {
	from, err := parseTimeQuery(c, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseTimeQuery(c, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func parseTimeQuery(c fiber.Ctx, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, middleware.NewAppError(fiber.StatusBadRequest, "Bad request", validationData{Field: name, Reason: "required"}, nil)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, middleware.NewAppError(fiber.StatusBadRequest, "Bad request", validationData{Field: name, Reason: "must be RFC 3339"}, err)
	}
	return t, nil
}
