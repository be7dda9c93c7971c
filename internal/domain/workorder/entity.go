package workorder

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// WorkOrder carries the inputs of the priority score and its last cached value.
// PriorityScore and PriorityLevel are never written by callers.
type WorkOrder struct {
	ID                   uuid.UUID
	Code                 string
	SLADeadline          *time.Time
	SourceCategoryWeight float64
	ClientPriorityWeight float64
	Status               Status

	PriorityScore      *float64
	PriorityLevel      *int
	PriorityComputedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
