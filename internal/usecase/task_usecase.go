package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/capacity"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/priority"
	"lab-scheduler/internal/domain/schedule"
	"lab-scheduler/internal/domain/skill"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Window struct {
	Start time.Time
	End   time.Time
}

// SubmitTaskInput creates a task and optionally books its equipment and
// registers consumed materials in the same request.
type SubmitTaskInput struct {
	WorkOrderID         uuid.UUID
	Title               string
	RequiredEquipmentID *uuid.UUID
	RequiredCapacity    *int
	RequiredSkills      []skill.Requirement

	Booking         *Window
	EnforceCapacity bool
	Consumptions    []material.Item
}

// SubmitResult reports each step separately. The task is committed even when
// a later step fails; the failure is carried in the step's error field.
type SubmitResult struct {
	Task             task.Task
	Reservation      *schedule.Reservation
	Allocation       *capacity.Allocation
	Consumptions     []material.Consumption
	ReservationError error
	ConsumptionError error
}

type StatusChange struct {
	Task                task.Task
	Reservations        []schedule.Reservation
	ReleasedAllocations []capacity.Allocation
	SideEffectErrors    []string
}

type QueuedTask struct {
	Task          task.Task
	WorkOrderCode string
	Priority      priority.Result
	ComputedAt    time.Time
}

type TaskUsecase interface {
	Submit(ctx context.Context, in SubmitTaskInput) (SubmitResult, error)
	GetTask(ctx context.Context, id uuid.UUID) (task.Task, error)
	Assign(ctx context.Context, taskID, technicianID uuid.UUID) (task.Task, error)
	UpdateStatus(ctx context.Context, taskID uuid.UUID, to task.Status) (StatusChange, error)
	Queue(ctx context.Context, limit int) ([]QueuedTask, error)
}

type eligibilityChecker interface {
	CheckEligibility(ctx context.Context, t task.Task, technicianID uuid.UUID) (bool, error)
}

type reserver interface {
	Reserve(ctx context.Context, in ReserveInput) (schedule.Reservation, error)
}

type allocator interface {
	Allocate(ctx context.Context, in AllocateInput) (capacity.Allocation, error)
	ReleaseForTask(ctx context.Context, taskID uuid.UUID) ([]capacity.Allocation, error)
}

type consumptionRegistrar interface {
	RegisterConsumptions(ctx context.Context, taskID uuid.UUID, items []material.Item) ([]material.Consumption, error)
}

type priorityReader interface {
	Priorities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]WorkOrderView, error)
}

type TaskDeps struct {
	Tasks        repository.TaskRepository
	Equipment    repository.EquipmentRepository
	Reservations repository.ReservationRepository
	Eligibility  eligibilityChecker
	Scheduler    reserver
	Capacity     allocator
	Consumptions consumptionRegistrar
	Priorities   priorityReader
}

type Tasks struct {
	deps TaskDeps
	opts Options
}

func NewTaskUsecase(deps TaskDeps, opts Options) *Tasks {
	return &Tasks{deps: deps, opts: opts.withDefaults()}
}

func (u *Tasks) Submit(ctx context.Context, in SubmitTaskInput) (SubmitResult, error) {
	t, err := u.newTask(in)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(in.Consumptions) > 0 {
		if err := material.ValidateItems(in.Consumptions); err != nil {
			return SubmitResult{}, err
		}
	}
	if in.Booking != nil {
		if t.RequiredEquipmentID == nil {
			return SubmitResult{}, domain.Invalid("reservation", "task has no required equipment to book")
		}
		if _, err := schedule.NewInterval(in.Booking.Start, in.Booking.End); err != nil {
			return SubmitResult{}, err
		}
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()

	created, err := u.deps.Tasks.CreateTask(wctx, t)
	if err != nil {
		return SubmitResult{}, err
	}
	out := SubmitResult{Task: created}
	log := u.opts.Logger.WithFields(logrus.Fields{"component": "tasks", "task_id": created.ID})

	if in.Booking != nil {
		u.book(wctx, created, *in.Booking, in.EnforceCapacity, &out)
		if out.ReservationError != nil {
			log.WithError(out.ReservationError).Info("submission booking step failed")
		}
	}
	if len(in.Consumptions) > 0 {
		cs, err := u.deps.Consumptions.RegisterConsumptions(wctx, created.ID, in.Consumptions)
		if err != nil {
			out.ConsumptionError = err
			log.WithError(err).Info("submission consumption step failed")
		} else {
			out.Consumptions = cs
		}
	}

	log.Info("task submitted")
	return out, nil
}

// book reserves critical equipment or allocates capacity on the rest.
func (u *Tasks) book(ctx context.Context, t task.Task, w Window, enforce bool, out *SubmitResult) {
	eq, err := u.deps.Equipment.GetEquipment(ctx, *t.RequiredEquipmentID)
	if err != nil {
		out.ReservationError = err
		return
	}
	if eq.IsCritical() {
		res, err := u.deps.Scheduler.Reserve(ctx, ReserveInput{EquipmentID: eq.ID, TaskID: t.ID, Start: w.Start, End: w.End})
		if err != nil {
			out.ReservationError = err
			return
		}
		out.Reservation = &res
		return
	}
	a, err := u.deps.Capacity.Allocate(ctx, AllocateInput{EquipmentID: eq.ID, TaskID: t.ID, Start: w.Start, End: w.End, Enforce: enforce})
	if err != nil {
		out.ReservationError = err
		return
	}
	out.Allocation = &a
}

func (u *Tasks) newTask(in SubmitTaskInput) (task.Task, error) {
	if in.WorkOrderID == uuid.Nil {
		return task.Task{}, domain.Invalid("work_order_id", "required")
	}
	if in.RequiredCapacity != nil && *in.RequiredCapacity <= 0 {
		return task.Task{}, domain.Invalid("required_capacity", "must be greater than zero")
	}
	if in.RequiredEquipmentID != nil && *in.RequiredEquipmentID == uuid.Nil {
		return task.Task{}, domain.Invalid("required_equipment_id", "must be a valid id")
	}

	seen := make(map[uuid.UUID]struct{}, len(in.RequiredSkills))
	reqs := make([]skill.Requirement, 0, len(in.RequiredSkills))
	for i, r := range in.RequiredSkills {
		field := fmt.Sprintf("required_skills[%d]", i)
		if r.SkillID == uuid.Nil {
			return task.Task{}, domain.Invalid(field+".skill_id", "required")
		}
		if !r.MinProficiency.Valid() {
			return task.Task{}, domain.Invalid(field+".min_proficiency", "must be one of beginner, intermediate, advanced, expert")
		}
		if _, dup := seen[r.SkillID]; dup {
			return task.Task{}, domain.Invalid(field+".skill_id", "duplicate skill")
		}
		seen[r.SkillID] = struct{}{}
		reqs = append(reqs, r)
	}

	now := u.opts.now()
	return task.Task{
		ID:                  uuid.New(),
		WorkOrderID:         in.WorkOrderID,
		Title:               strings.TrimSpace(in.Title),
		RequiredEquipmentID: in.RequiredEquipmentID,
		RequiredCapacity:    in.RequiredCapacity,
		RequiredSkills:      reqs,
		Status:              task.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (u *Tasks) GetTask(ctx context.Context, id uuid.UUID) (task.Task, error) {
	return u.deps.Tasks.GetTask(ctx, id)
}

// Assign re-checks eligibility at assignment time; a technician who qualified
// when the list was produced may have lost a certification since.
func (u *Tasks) Assign(ctx context.Context, taskID, technicianID uuid.UUID) (task.Task, error) {
	if technicianID == uuid.Nil {
		return task.Task{}, domain.Invalid("technician_id", "required")
	}
	t, err := u.deps.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return task.Task{}, err
	}
	if !task.CanTransition(t.Status, task.StatusAssigned) {
		return task.Task{}, &domain.StateError{Resource: "task", ID: t.ID, Current: string(t.Status), Action: "assign"}
	}

	ok, err := u.deps.Eligibility.CheckEligibility(ctx, t, technicianID)
	if err != nil {
		return task.Task{}, err
	}
	if !ok {
		return task.Task{}, domain.Invalid("technician_id", "technician does not meet the task's skill requirements")
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.deps.Tasks.TransitionTask(wctx, repository.TaskTransition{
		ID:          t.ID,
		From:        t.Status,
		To:          task.StatusAssigned,
		SetAssignee: true,
		Assignee:    &technicianID,
		At:          u.opts.now(),
	})
	if err != nil {
		return task.Task{}, err
	}
	u.opts.Logger.WithFields(logrus.Fields{
		"component":     "tasks",
		"task_id":       out.ID,
		"technician_id": technicianID,
	}).Info("task assigned")
	return out, nil
}

// UpdateStatus moves a task and applies the booking side effects: starting a
// task starts its pending reservations, completing it completes the running
// ones, and cancelling it cancels reservations and releases capacity.
func (u *Tasks) UpdateStatus(ctx context.Context, taskID uuid.UUID, to task.Status) (StatusChange, error) {
	if !to.Valid() {
		return StatusChange{}, domain.Invalid("status", "unknown task status")
	}
	t, err := u.deps.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return StatusChange{}, err
	}
	if !task.CanTransition(t.Status, to) {
		return StatusChange{}, &domain.StateError{Resource: "task", ID: t.ID, Current: string(t.Status), Action: "move to " + string(to)}
	}
	if to == task.StatusAssigned && t.AssignedTechnicianID == nil {
		return StatusChange{}, domain.Invalid("status", "use assign to give the task a technician")
	}

	tr := repository.TaskTransition{ID: t.ID, From: t.Status, To: to, At: u.opts.now()}
	if to == task.StatusPending {
		tr.SetAssignee = true
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()

	updated, err := u.deps.Tasks.TransitionTask(wctx, tr)
	if err != nil {
		return StatusChange{}, err
	}
	out := StatusChange{Task: updated, Reservations: []schedule.Reservation{}, ReleasedAllocations: []capacity.Allocation{}, SideEffectErrors: []string{}}
	u.applySideEffects(wctx, updated, &out)

	log := u.opts.Logger.WithFields(logrus.Fields{"component": "tasks", "task_id": updated.ID, "status": updated.Status})
	if len(out.SideEffectErrors) > 0 {
		log.WithField("errors", out.SideEffectErrors).Warn("task status changed with side-effect failures")
	} else {
		log.Info("task status changed")
	}
	return out, nil
}

func (u *Tasks) applySideEffects(ctx context.Context, t task.Task, out *StatusChange) {
	var from []schedule.Status
	var to schedule.Status
	switch t.Status {
	case task.StatusInProgress:
		from, to = []schedule.Status{schedule.StatusScheduled}, schedule.StatusInProgress
	case task.StatusCompleted:
		from, to = []schedule.Status{schedule.StatusInProgress}, schedule.StatusCompleted
	case task.StatusCancelled:
		from, to = []schedule.Status{schedule.StatusScheduled, schedule.StatusInProgress}, schedule.StatusCancelled
	default:
		return
	}

	now := u.opts.now()
	reservations, err := u.deps.Reservations.ListReservationsByTask(ctx, t.ID)
	if err != nil {
		out.SideEffectErrors = append(out.SideEffectErrors, "list reservations: "+err.Error())
	}
	for _, r := range reservations {
		if !statusIn(r.Status, from) {
			continue
		}
		// Only windows that have not ended are started.
		if to == schedule.StatusInProgress && !r.Interval.End.After(now) {
			continue
		}
		moved, err := u.deps.Reservations.TransitionReservation(ctx, r.ID, to, now)
		if err != nil {
			out.SideEffectErrors = append(out.SideEffectErrors, fmt.Sprintf("reservation %s: %v", r.ID, err))
			continue
		}
		out.Reservations = append(out.Reservations, moved)
	}

	if t.Status == task.StatusCompleted || t.Status == task.StatusCancelled {
		released, err := u.deps.Capacity.ReleaseForTask(ctx, t.ID)
		out.ReleasedAllocations = append(out.ReleasedAllocations, released...)
		if err != nil {
			out.SideEffectErrors = append(out.SideEffectErrors, "release allocations: "+err.Error())
		}
	}
}

// allPending pages through every pending task so the priority sort sees the
// full backlog.
func (u *Tasks) allPending(ctx context.Context) ([]task.Task, error) {
	var (
		out   []task.Task
		after repository.TaskCursor
	)
	for {
		page, err := u.deps.Tasks.ListTasksPage(ctx, []task.Status{task.StatusPending}, after, u.opts.PageSize)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < u.opts.PageSize {
			return out, nil
		}
		after = repository.CursorAfter(page[len(page)-1])
	}
}

func statusIn(s schedule.Status, set []schedule.Status) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Queue lists pending tasks ordered by their work order's live priority.
func (u *Tasks) Queue(ctx context.Context, limit int) ([]QueuedTask, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := u.allPending(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(pending))
	seen := make(map[uuid.UUID]struct{}, len(pending))
	for _, t := range pending {
		if _, ok := seen[t.WorkOrderID]; ok {
			continue
		}
		seen[t.WorkOrderID] = struct{}{}
		ids = append(ids, t.WorkOrderID)
	}
	views, err := u.deps.Priorities.Priorities(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]QueuedTask, 0, len(pending))
	for _, t := range pending {
		v := views[t.WorkOrderID]
		out = append(out, QueuedTask{Task: t, WorkOrderCode: v.WorkOrder.Code, Priority: v.Priority, ComputedAt: v.ComputedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Priority.Score != b.Priority.Score {
			return a.Priority.Score > b.Priority.Score
		}
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.Before(b.Task.CreatedAt)
		}
		return a.Task.ID.String() < b.Task.ID.String()
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
