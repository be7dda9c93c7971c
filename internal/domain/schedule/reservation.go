package schedule

import (
	"sort"
	"time"

	"lab-scheduler/internal/domain"

	"github.com/google/uuid"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if start.IsZero() {
		return Interval{}, domain.Invalid("start_time", "required")
	}
	if end.IsZero() {
		return Interval{}, domain.Invalid("end_time", "required")
	}
	if !start.Before(end) {
		return Interval{}, domain.Invalid("end_time", "must be after start_time")
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps treats touching endpoints as disjoint.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) Active() bool {
	return s == StatusScheduled || s == StatusInProgress
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusScheduled:  {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Reservation struct {
	ID          uuid.UUID
	EquipmentID uuid.UUID
	TaskID      uuid.UUID
	Interval    Interval
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Conflicts returns the active reservations in existing that overlap want,
// ignoring the reservation with id exclude. Results are ordered by start time.
func Conflicts(existing []Reservation, want Interval, exclude uuid.UUID) []Reservation {
	out := make([]Reservation, 0)
	for _, r := range existing {
		if r.ID == exclude && exclude != uuid.Nil {
			continue
		}
		if !r.Status.Active() {
			continue
		}
		if r.Interval.Overlaps(want) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Interval.Start.Before(out[j].Interval.Start) })
	return out
}

func ConflictError(equipmentID uuid.UUID, want Interval, conflicts []Reservation) error {
	slots := make([]domain.ConflictingSlot, 0, len(conflicts))
	for _, c := range conflicts {
		slots = append(slots, domain.ConflictingSlot{
			ReservationID: c.ID,
			TaskID:        c.TaskID,
			Start:         c.Interval.Start,
			End:           c.Interval.End,
			Status:        string(c.Status),
		})
	}
	return &domain.ConflictError{
		EquipmentID:    equipmentID,
		RequestedStart: want.Start,
		RequestedEnd:   want.End,
		Conflicts:      slots,
	}
}

// Advance checks moving r to status to. Cancelling a cancelled reservation is a
// no-op (changed is false); any other move outside the state machine fails.
func Advance(r Reservation, to Status) (changed bool, err error) {
	if r.Status == to && to == StatusCancelled {
		return false, nil
	}
	if !CanTransition(r.Status, to) {
		return false, &domain.StateError{Resource: "reservation", ID: r.ID, Current: string(r.Status), Action: actionFor(to)}
	}
	return true, nil
}

func actionFor(to Status) string {
	switch to {
	case StatusInProgress:
		return "start"
	case StatusCompleted:
		return "complete"
	case StatusCancelled:
		return "cancel"
	default:
		return "move to " + string(to)
	}
}
