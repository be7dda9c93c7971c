package usecase

import (
	"context"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/domain/task"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ConsumptionUsecase interface {
	RegisterConsumptions(ctx context.Context, taskID uuid.UUID, items []material.Item) ([]material.Consumption, error)
	VoidConsumption(ctx context.Context, id uuid.UUID, reason string) (material.Consumption, error)
	GetConsumption(ctx context.Context, id uuid.UUID) (material.Consumption, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]material.Consumption, error)
}

type Consumptions struct {
	tasks        repository.TaskRepository
	consumptions repository.ConsumptionRepository
	opts         Options
}

func NewConsumptionUsecase(tasks repository.TaskRepository, consumptions repository.ConsumptionRepository, opts Options) *Consumptions {
	return &Consumptions{tasks: tasks, consumptions: consumptions, opts: opts.withDefaults()}
}

// RegisterConsumptions records every item against the task or none of them.
func (u *Consumptions) RegisterConsumptions(ctx context.Context, taskID uuid.UUID, items []material.Item) ([]material.Consumption, error) {
	if taskID == uuid.Nil {
		return nil, domain.Invalid("task_id", "required")
	}
	if err := material.ValidateItems(items); err != nil {
		return nil, err
	}
	t, err := u.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status == task.StatusCancelled {
		return nil, &domain.StateError{Resource: "task", ID: t.ID, Current: string(t.Status), Action: "register consumptions for"}
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.consumptions.RegisterConsumptions(wctx, t.ID, items, u.opts.now())
	if err != nil {
		return nil, err
	}
	u.opts.Logger.WithFields(logrus.Fields{
		"component": "consumption",
		"task_id":   t.ID,
		"items":     len(out),
	}).Info("consumptions registered")
	return out, nil
}

func (u *Consumptions) VoidConsumption(ctx context.Context, id uuid.UUID, reason string) (material.Consumption, error) {
	if id == uuid.Nil {
		return material.Consumption{}, domain.Invalid("consumption_id", "required")
	}
	reason, err := material.NormalizeReason(reason)
	if err != nil {
		return material.Consumption{}, err
	}

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.consumptions.VoidConsumption(wctx, id, reason, u.opts.now())
	if err != nil {
		return material.Consumption{}, err
	}
	u.opts.Logger.WithFields(logrus.Fields{
		"component":      "consumption",
		"consumption_id": out.ID,
		"material_id":    out.MaterialID,
	}).Info("consumption voided")
	return out, nil
}

func (u *Consumptions) GetConsumption(ctx context.Context, id uuid.UUID) (material.Consumption, error) {
	return u.consumptions.GetConsumption(ctx, id)
}

func (u *Consumptions) ListByTask(ctx context.Context, taskID uuid.UUID) ([]material.Consumption, error) {
	if _, err := u.tasks.GetTask(ctx, taskID); err != nil {
		return nil, err
	}
	return u.consumptions.ListConsumptionsByTask(ctx, taskID)
}
