package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation error")
	ErrScheduleConflict  = errors.New("schedule conflict")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidState      = errors.New("invalid state")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
)

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func NotFound(resource string, id uuid.UUID) error {
	return &NotFoundError{Resource: resource, ID: id}
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

type StateError struct {
	Resource string
	ID       uuid.UUID
	Current  string
	Action   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in status %s", e.Action, e.Resource, e.ID, e.Current)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// ConflictingSlot is an active reservation that blocks a requested interval.
type ConflictingSlot struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	TaskID        uuid.UUID `json:"task_id"`
	Start         time.Time `json:"start_time"`
	End           time.Time `json:"end_time"`
	Status        string    `json:"status"`
}

type ConflictError struct {
	EquipmentID    uuid.UUID
	RequestedStart time.Time
	RequestedEnd   time.Time
	Conflicts      []ConflictingSlot
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("[%s, %s)", c.Start.UTC().Format(time.RFC3339), c.End.UTC().Format(time.RFC3339)))
	}
	return fmt.Sprintf("schedule conflict on equipment %s for [%s, %s): overlaps %s",
		e.EquipmentID,
		e.RequestedStart.UTC().Format(time.RFC3339),
		e.RequestedEnd.UTC().Format(time.RFC3339),
		strings.Join(parts, ", "),
	)
}

func (e *ConflictError) Unwrap() error { return ErrScheduleConflict }

type Shortage struct {
	MaterialID uuid.UUID       `json:"material_id"`
	Requested  decimal.Decimal `json:"requested"`
	Available  decimal.Decimal `json:"available"`
}

type StockError struct {
	Shortages []Shortage
}

func (e *StockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("material %s requested=%s available=%s", s.MaterialID, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

type CapacityError struct {
	EquipmentID uuid.UUID
	Total       int
	Available   int
	Requested   int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("capacity exceeded on equipment %s: requested=%d available=%d total=%d", e.EquipmentID, e.Requested, e.Available, e.Total)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// Retryable reports whether the caller can succeed by changing its request
// (another time window, smaller quantity) rather than fixing its input.
func Retryable(err error) bool {
	return errors.Is(err, ErrScheduleConflict) || errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrInsufficientStock)
}
