package usecase

import (
	"context"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/equipment"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CapacityReport struct {
	EquipmentID uuid.UUID
	Window      schedule.Interval
	Total       int
	InUse       int
	Available   int
}

type AllocateInput struct {
	EquipmentID uuid.UUID
	TaskID      uuid.UUID
	// Slots defaults to the task's required capacity.
	Slots   *int
	Start   time.Time
	End     time.Time
	Enforce bool
}

type CapacityUsecase interface {
	CheckCapacity(ctx context.Context, equipmentID uuid.UUID, from, to time.Time) (CapacityReport, error)
	Allocate(ctx context.Context, in AllocateInput) (capacity.Allocation, error)
	Release(ctx context.Context, id uuid.UUID) (capacity.Allocation, error)
}

type Capacity struct {
	equipment   repository.EquipmentRepository
	tasks       repository.TaskRepository
	allocations repository.AllocationRepository
	opts        Options
}

func NewCapacityUsecase(equipment repository.EquipmentRepository, tasks repository.TaskRepository, allocations repository.AllocationRepository, opts Options) *Capacity {
	return &Capacity{equipment: equipment, tasks: tasks, allocations: allocations, opts: opts.withDefaults()}
}

// CheckCapacity is advisory: it reports peak usage over the window and
// reserves nothing.
func (u *Capacity) CheckCapacity(ctx context.Context, equipmentID uuid.UUID, from, to time.Time) (CapacityReport, error) {
	window, err := schedule.NewInterval(from, to)
	if err != nil {
		return CapacityReport{}, err
	}
	eq, total, err := u.capacitated(ctx, equipmentID)
	if err != nil {
		return CapacityReport{}, err
	}

	allocs, err := u.allocations.ListAllocations(ctx, eq.ID, window)
	if err != nil {
		return CapacityReport{}, err
	}
	usage := capacity.Compute(total, allocs, window)
	return CapacityReport{
		EquipmentID: eq.ID,
		Window:      window,
		Total:       usage.Total,
		InUse:       usage.InUse,
		Available:   usage.Available,
	}, nil
}

func (u *Capacity) Allocate(ctx context.Context, in AllocateInput) (capacity.Allocation, error) {
	if in.TaskID == uuid.Nil {
		return capacity.Allocation{}, domain.Invalid("task_id", "required")
	}
	window, err := schedule.NewInterval(in.Start, in.End)
	if err != nil {
		return capacity.Allocation{}, err
	}
	eq, total, err := u.capacitated(ctx, in.EquipmentID)
	if err != nil {
		return capacity.Allocation{}, err
	}
	t, err := u.tasks.GetTask(ctx, in.TaskID)
	if err != nil {
		return capacity.Allocation{}, err
	}
	if t.Status.Terminal() {
		return capacity.Allocation{}, &domain.StateError{Resource: "task", ID: t.ID, Current: string(t.Status), Action: "allocate capacity for"}
	}

	slots := t.Slots()
	if in.Slots != nil {
		if *in.Slots <= 0 {
			return capacity.Allocation{}, domain.Invalid("slots", "must be greater than zero")
		}
		slots = *in.Slots
	}

	a := capacity.Allocation{
		ID:          uuid.New(),
		EquipmentID: eq.ID,
		TaskID:      t.ID,
		Slots:       slots,
		Interval:    window,
		Status:      capacity.StatusActive,
		CreatedAt:   u.opts.now(),
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.allocations.CreateAllocation(wctx, a, total, in.Enforce)
	if err != nil {
		return capacity.Allocation{}, err
	}
	u.opts.Logger.WithFields(logrus.Fields{
		"component":     "capacity",
		"allocation_id": out.ID,
		"equipment_id":  out.EquipmentID,
		"slots":         out.Slots,
		"enforced":      in.Enforce,
	}).Info("capacity allocated")
	return out, nil
}

func (u *Capacity) Release(ctx context.Context, id uuid.UUID) (capacity.Allocation, error) {
	if id == uuid.Nil {
		return capacity.Allocation{}, domain.Invalid("allocation_id", "required")
	}
	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	return u.allocations.ReleaseAllocation(wctx, id)
}

// ReleaseForTask releases every active allocation the task holds.
func (u *Capacity) ReleaseForTask(ctx context.Context, taskID uuid.UUID) ([]capacity.Allocation, error) {
	allocs, err := u.allocations.ListAllocationsByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]capacity.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if a.Status != capacity.StatusActive {
			continue
		}
		released, err := u.allocations.ReleaseAllocation(ctx, a.ID)
		if err != nil {
			return out, err
		}
		out = append(out, released)
	}
	return out, nil
}

func (u *Capacity) capacitated(ctx context.Context, equipmentID uuid.UUID) (equipment.Equipment, int, error) {
	if equipmentID == uuid.Nil {
		return equipment.Equipment{}, 0, domain.Invalid("equipment_id", "required")
	}
	eq, err := u.equipment.GetEquipment(ctx, equipmentID)
	if err != nil {
		return equipment.Equipment{}, 0, err
	}
	total, ok := eq.Capacity()
	if !ok {
		return equipment.Equipment{}, 0, domain.Invalid("equipment_id", "equipment is critical; use time-slot reservations")
	}
	return eq, total, nil
}
