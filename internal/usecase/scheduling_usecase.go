package usecase

import (
	"context"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ReserveInput struct {
	EquipmentID uuid.UUID
	TaskID      uuid.UUID
	Start       time.Time
	End         time.Time
}

type TimelineParams struct {
	From             time.Time
	To               time.Time
	IncludeCancelled bool
}

type SchedulingUsecase interface {
	Reserve(ctx context.Context, in ReserveInput) (schedule.Reservation, error)
	Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (schedule.Reservation, error)
	Start(ctx context.Context, id uuid.UUID) (schedule.Reservation, error)
	Complete(ctx context.Context, id uuid.UUID) (schedule.Reservation, error)
	Cancel(ctx context.Context, id uuid.UUID) (schedule.Reservation, error)
	GetReservation(ctx context.Context, id uuid.UUID) (schedule.Reservation, error)
	Timeline(ctx context.Context, equipmentID uuid.UUID, p TimelineParams) ([]schedule.Reservation, error)
}

type Scheduling struct {
	equipment    repository.EquipmentRepository
	tasks        repository.TaskRepository
	reservations repository.ReservationRepository
	opts         Options
}

func NewSchedulingUsecase(equipment repository.EquipmentRepository, tasks repository.TaskRepository, reservations repository.ReservationRepository, opts Options) *Scheduling {
	return &Scheduling{equipment: equipment, tasks: tasks, reservations: reservations, opts: opts.withDefaults()}
}

func (u *Scheduling) Reserve(ctx context.Context, in ReserveInput) (schedule.Reservation, error) {
	if in.EquipmentID == uuid.Nil {
		return schedule.Reservation{}, domain.Invalid("equipment_id", "required")
	}
	if in.TaskID == uuid.Nil {
		return schedule.Reservation{}, domain.Invalid("task_id", "required")
	}
	iv, err := schedule.NewInterval(in.Start, in.End)
	if err != nil {
		return schedule.Reservation{}, err
	}

	eq, err := u.equipment.GetEquipment(ctx, in.EquipmentID)
	if err != nil {
		return schedule.Reservation{}, err
	}
	if !eq.IsCritical() {
		return schedule.Reservation{}, domain.Invalid("equipment_id", "equipment is not critical; use capacity allocations")
	}
	t, err := u.tasks.GetTask(ctx, in.TaskID)
	if err != nil {
		return schedule.Reservation{}, err
	}
	if t.Status.Terminal() {
		return schedule.Reservation{}, &domain.StateError{Resource: "task", ID: t.ID, Current: string(t.Status), Action: "reserve equipment for"}
	}

	now := u.opts.now()
	res := schedule.Reservation{
		ID:          uuid.New(),
		EquipmentID: eq.ID,
		TaskID:      t.ID,
		Interval:    iv,
		Status:      schedule.StatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.reservations.CreateReservation(wctx, res)
	if err != nil {
		return schedule.Reservation{}, err
	}
	u.opts.Logger.WithFields(logrus.Fields{
		"component":      "scheduler",
		"reservation_id": out.ID,
		"equipment_id":   out.EquipmentID,
		"task_id":        out.TaskID,
	}).Info("reservation created")
	return out, nil
}

func (u *Scheduling) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time) (schedule.Reservation, error) {
	if id == uuid.Nil {
		return schedule.Reservation{}, domain.Invalid("reservation_id", "required")
	}
	iv, err := schedule.NewInterval(start, end)
	if err != nil {
		return schedule.Reservation{}, err
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	return u.reservations.RescheduleReservation(wctx, id, iv, u.opts.now())
}

func (u *Scheduling) Start(ctx context.Context, id uuid.UUID) (schedule.Reservation, error) {
	return u.transition(ctx, id, schedule.StatusInProgress)
}

func (u *Scheduling) Complete(ctx context.Context, id uuid.UUID) (schedule.Reservation, error) {
	return u.transition(ctx, id, schedule.StatusCompleted)
}

// Cancel is idempotent on cancelled reservations and fails on completed ones.
func (u *Scheduling) Cancel(ctx context.Context, id uuid.UUID) (schedule.Reservation, error) {
	return u.transition(ctx, id, schedule.StatusCancelled)
}

func (u *Scheduling) transition(ctx context.Context, id uuid.UUID, to schedule.Status) (schedule.Reservation, error) {
	if id == uuid.Nil {
		return schedule.Reservation{}, domain.Invalid("reservation_id", "required")
	}
	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	return u.reservations.TransitionReservation(wctx, id, to, u.opts.now())
}

func (u *Scheduling) GetReservation(ctx context.Context, id uuid.UUID) (schedule.Reservation, error) {
	return u.reservations.GetReservation(ctx, id)
}

// Timeline lists reservations overlapping the window in start order.
func (u *Scheduling) Timeline(ctx context.Context, equipmentID uuid.UUID, p TimelineParams) ([]schedule.Reservation, error) {
	window, err := schedule.NewInterval(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if _, err := u.equipment.GetEquipment(ctx, equipmentID); err != nil {
		return nil, err
	}

	all, err := u.reservations.ListReservations(ctx, equipmentID, window)
	if err != nil {
		return nil, err
	}
	if p.IncludeCancelled {
		return all, nil
	}
	out := make([]schedule.Reservation, 0, len(all))
	for _, r := range all {
		if r.Status != schedule.StatusCancelled {
			out = append(out, r)
		}
	}
	return out, nil
}
