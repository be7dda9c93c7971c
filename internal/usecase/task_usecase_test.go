package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/repository"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hplcTask() usecase.SubmitTaskInput {
	return usecase.SubmitTaskInput{
		WorkOrderID:         id("work_order", "WO-1001"),
		Title:               "Assay run",
		RequiredEquipmentID: ptr(id("equipment", "HPLC-01")),
		RequiredSkills: []skill.Requirement{
			{SkillID: id("skill", "HPLC"), MinProficiency: skill.Advanced, CertificationRequired: true},
		},
	}
}

func TestSubmit_ReservesCriticalEquipment(t *testing.T) {
	h := newHarness(t)
	in := hplcTask()
	in.Booking = &usecase.Window{Start: hours(1), End: hours(3)}
	in.Consumptions = []material.Item{{MaterialID: id("material", "RGT-ACN"), QuantityConsumed: units(250)}}

	res, err := h.tasks.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, task.StatusPending, res.Task.Status)
	require.NotNil(t, res.Reservation)
	assert.Equal(t, schedule.StatusScheduled, res.Reservation.Status)
	assert.Nil(t, res.Allocation)
	assert.NoError(t, res.ReservationError)
	assert.NoError(t, res.ConsumptionError)
	require.Len(t, res.Consumptions, 1)
	assert.InDelta(t, 12.5, *res.Consumptions[0].TotalCost, 1e-9)
}

func TestSubmit_StepFailuresKeepTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := hplcTask()
	first.Booking = &usecase.Window{Start: hours(8), End: hours(12)}
	_, err := h.tasks.Submit(ctx, first)
	require.NoError(t, err)

	second := hplcTask()
	second.Booking = &usecase.Window{Start: hours(11), End: hours(13)}
	second.Consumptions = []material.Item{{MaterialID: id("material", "KIT-LIB"), QuantityConsumed: units(12)}}
	res, err := h.tasks.Submit(ctx, second)
	require.NoError(t, err)

	var ce *domain.ConflictError
	require.ErrorAs(t, res.ReservationError, &ce)
	assert.Len(t, ce.Conflicts, 1)

	var se *domain.StockError
	require.ErrorAs(t, res.ConsumptionError, &se)
	require.Len(t, se.Shortages, 1)
	assert.Equal(t, id("material", "KIT-LIB"), se.Shortages[0].MaterialID)
	assert.Equal(t, "12", se.Shortages[0].Requested.String())
	assert.Equal(t, "10", se.Shortages[0].Available.String())

	stored, err := h.tasks.GetTask(ctx, res.Task.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Task.ID, stored.ID)

	kit, err := h.store.GetMaterial(ctx, id("material", "KIT-LIB"))
	require.NoError(t, err)
	assert.Equal(t, "10", kit.Quantity.String())
}

func TestSubmit_AllocatesCapacitatedEquipment(t *testing.T) {
	h := newHarness(t)
	res, err := h.tasks.Submit(context.Background(), usecase.SubmitTaskInput{
		WorkOrderID:         id("work_order", "WO-1002"),
		RequiredEquipmentID: ptr(id("equipment", "Thermocycler Bank")),
		RequiredCapacity:    ptr(3),
		Booking:             &usecase.Window{Start: hours(1), End: hours(2)},
		EnforceCapacity:     true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Allocation)
	assert.Nil(t, res.Reservation)
	assert.Equal(t, 3, res.Allocation.Slots)
}

func TestSubmit_ValidatesBeforeWriting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   usecase.SubmitTaskInput
	}{
		{"missing work order", usecase.SubmitTaskInput{}},
		{"booking without equipment", usecase.SubmitTaskInput{
			WorkOrderID: id("work_order", "WO-1001"),
			Booking:     &usecase.Window{Start: hours(1), End: hours(2)},
		}},
		{"inverted booking", func() usecase.SubmitTaskInput {
			in := hplcTask()
			in.Booking = &usecase.Window{Start: hours(3), End: hours(2)}
			return in
		}()},
		{"zero quantity", func() usecase.SubmitTaskInput {
			in := hplcTask()
			in.Consumptions = []material.Item{{MaterialID: id("material", "RGT-ACN")}}
			return in
		}()},
		{"duplicate skill", func() usecase.SubmitTaskInput {
			in := hplcTask()
			in.RequiredSkills = append(in.RequiredSkills, in.RequiredSkills[0])
			return in
		}()},
		{"zero capacity", func() usecase.SubmitTaskInput {
			in := hplcTask()
			in.RequiredCapacity = ptr(0)
			return in
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.tasks.Submit(ctx, tc.in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	pending, err := h.store.ListTasksByStatus(ctx, []task.Status{task.StatusPending}, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSubmit_UnknownReferences(t *testing.T) {
	h := newHarness(t)
	in := hplcTask()
	in.WorkOrderID = uuid.New()

	_, err := h.tasks.Submit(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssign_RechecksEligibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.tasks.Submit(ctx, hplcTask())
	require.NoError(t, err)

	_, err = h.tasks.Assign(ctx, res.Task.ID, id("technician", "Citra Dewi"))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "technician_id", ve.Field)

	assigned, err := h.tasks.Assign(ctx, res.Task.ID, id("technician", "Budi Santoso"))
	require.NoError(t, err)
	assert.Equal(t, task.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedTechnicianID)
	assert.Equal(t, id("technician", "Budi Santoso"), *assigned.AssignedTechnicianID)

	_, err = h.tasks.Assign(ctx, res.Task.ID, id("technician", "Budi Santoso"))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = h.tasks.Assign(ctx, res.Task.ID, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateStatus_ReservationLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := hplcTask()
	in.Booking = &usecase.Window{Start: hours(1), End: hours(3)}
	res, err := h.tasks.Submit(ctx, in)
	require.NoError(t, err)
	_, err = h.tasks.Assign(ctx, res.Task.ID, id("technician", "Budi Santoso"))
	require.NoError(t, err)

	started, err := h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusInProgress)
	require.NoError(t, err)
	assert.Empty(t, started.SideEffectErrors)
	require.Len(t, started.Reservations, 1)
	assert.Equal(t, schedule.StatusInProgress, started.Reservations[0].Status)

	done, err := h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, done.Reservations, 1)
	assert.Equal(t, schedule.StatusCompleted, done.Reservations[0].Status)

	_, err = h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusCancelled)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUpdateStatus_CancelReleasesBookings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	in := hplcTask()
	in.Booking = &usecase.Window{Start: hours(1), End: hours(3)}
	res, err := h.tasks.Submit(ctx, in)
	require.NoError(t, err)

	alloc, err := h.capacity.Allocate(ctx, usecase.AllocateInput{
		EquipmentID: id("equipment", "Biosafety Cabinet Row"),
		TaskID:      res.Task.ID,
		Start:       hours(1),
		End:         hours(3),
		Enforce:     true,
	})
	require.NoError(t, err)

	out, err := h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusCancelled)
	require.NoError(t, err)
	assert.Empty(t, out.SideEffectErrors)
	require.Len(t, out.Reservations, 1)
	assert.Equal(t, schedule.StatusCancelled, out.Reservations[0].Status)
	require.Len(t, out.ReleasedAllocations, 1)
	assert.Equal(t, alloc.ID, out.ReleasedAllocations[0].ID)
	assert.Equal(t, capacity.StatusReleased, out.ReleasedAllocations[0].Status)

	_, err = h.scheduling.Reserve(ctx, usecase.ReserveInput{EquipmentID: id("equipment", "HPLC-01"), TaskID: res.Task.ID, Start: hours(5), End: hours(6)})
	var st *domain.StateError
	assert.True(t, errors.As(err, &st))

	_, err = h.consumptions.RegisterConsumptions(ctx, res.Task.ID, []material.Item{{MaterialID: id("material", "RGT-TAQ"), QuantityConsumed: units(1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestUpdateStatus_Guards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	res, err := h.tasks.Submit(ctx, hplcTask())
	require.NoError(t, err)

	_, err = h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusAssigned)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.tasks.UpdateStatus(ctx, res.Task.ID, task.Status("archived"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusCompleted)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = h.tasks.Assign(ctx, res.Task.ID, id("technician", "Budi Santoso"))
	require.NoError(t, err)
	back, err := h.tasks.UpdateStatus(ctx, res.Task.ID, task.StatusPending)
	require.NoError(t, err)
	assert.Nil(t, back.Task.AssignedTechnicianID)
}

func TestQueue_OrdersByWorkOrderPriority(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, code := range []string{"WO-1004", "WO-1001", "WO-1003", "WO-1002"} {
		_, err := h.tasks.Submit(ctx, usecase.SubmitTaskInput{WorkOrderID: id("work_order", code), Title: code})
		require.NoError(t, err)
	}

	queue, err := h.tasks.Queue(ctx, 0)
	require.NoError(t, err)
	require.Len(t, queue, 4)

	codes := make([]string, 0, len(queue))
	for _, q := range queue {
		codes = append(codes, q.WorkOrderCode)
		assert.Equal(t, clock, q.ComputedAt)
	}
	assert.Equal(t, []string{"WO-1003", "WO-1001", "WO-1002", "WO-1004"}, codes)
	assert.True(t, queue[0].Priority.Overdue)

	top, err := h.tasks.Queue(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestQueue_SortsAcrossEveryPage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	opts := h.opts
	opts.PageSize = 2
	tasks := usecase.NewTaskUsecase(h.taskDeps, opts)

	for i := 0; i < 6; i++ {
		_, err := h.tasks.Submit(ctx, usecase.SubmitTaskInput{WorkOrderID: id("work_order", "WO-1004"), Title: fmt.Sprintf("backlog %d", i)})
		require.NoError(t, err)
	}
	urgent, err := h.tasks.Submit(ctx, usecase.SubmitTaskInput{WorkOrderID: id("work_order", "WO-1003"), Title: "overdue"})
	require.NoError(t, err)

	queue, err := tasks.Queue(ctx, 1)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, urgent.Task.ID, queue[0].Task.ID)

	all, err := tasks.Queue(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 7)
}

func TestListTasksPage_ResumesAfterCursor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := h.tasks.Submit(ctx, usecase.SubmitTaskInput{WorkOrderID: id("work_order", "WO-1004"), Title: fmt.Sprintf("task %d", i)})
		require.NoError(t, err)
	}
	pending := []task.Status{task.StatusPending}
	want, err := h.store.ListTasksByStatus(ctx, pending, 0)
	require.NoError(t, err)
	require.Len(t, want, 5)

	var (
		got   []task.Task
		after repository.TaskCursor
	)
	for {
		page, err := h.store.ListTasksPage(ctx, pending, after, 2)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		got = append(got, page...)
		after = repository.CursorAfter(page[len(page)-1])
	}
	assert.Equal(t, want, got)
}
