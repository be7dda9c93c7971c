package usecase_test

import (
	"context"
	"testing"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/material"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitPlain(t *testing.T, h *harness) uuid.UUID {
	t.Helper()
	res, err := h.tasks.Submit(context.Background(), usecase.SubmitTaskInput{WorkOrderID: id("work_order", "WO-1001")})
	require.NoError(t, err)
	return res.Task.ID
}

func TestConsumptions_RegisterAndVoid(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	taskID := submitPlain(t, h)
	taq := id("material", "RGT-TAQ")

	created, err := h.consumptions.RegisterConsumptions(ctx, taskID, []material.Item{
		{MaterialID: taq, QuantityConsumed: units(4)},
		{MaterialID: id("material", "CON-TIPS"), QuantityConsumed: units(2)},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.InDelta(t, 3.2, *created[0].TotalCost, 1e-9)
	assert.Nil(t, created[1].UnitPrice, "no list price and no override")

	m, err := h.store.GetMaterial(ctx, taq)
	require.NoError(t, err)
	assert.Equal(t, "496", m.Quantity.String())

	voided, err := h.consumptions.VoidConsumption(ctx, created[0].ID, "  sample spilled ")
	require.NoError(t, err)
	assert.Equal(t, material.StatusVoided, voided.Status)
	assert.Equal(t, "sample spilled", *voided.VoidReason)
	assert.Equal(t, clock, *voided.VoidedAt)

	m, err = h.store.GetMaterial(ctx, taq)
	require.NoError(t, err)
	assert.Equal(t, "500", m.Quantity.String())

	_, err = h.consumptions.VoidConsumption(ctx, created[0].ID, "again")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	listed, err := h.consumptions.ListByTask(ctx, taskID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestConsumptions_OverrideUnitPrice(t *testing.T) {
	h := newHarness(t)
	taskID := submitPlain(t, h)

	created, err := h.consumptions.RegisterConsumptions(context.Background(), taskID, []material.Item{
		{MaterialID: id("material", "KIT-LIB"), QuantityConsumed: units(1), UnitPrice: ptr(400.0)},
	})
	require.NoError(t, err)
	assert.Equal(t, 400.0, *created[0].TotalCost)
}

func TestConsumptions_FractionalQuantitiesDrainStockExactly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	taskID := submitPlain(t, h)
	taq := id("material", "RGT-TAQ")

	m, err := h.store.GetMaterial(ctx, taq)
	require.NoError(t, err)
	m.Quantity = decimal.RequireFromString("0.3")
	h.store.PutMaterial(m)

	created, err := h.consumptions.RegisterConsumptions(ctx, taskID, []material.Item{
		{MaterialID: taq, QuantityConsumed: decimal.RequireFromString("0.1")},
		{MaterialID: taq, QuantityConsumed: decimal.RequireFromString("0.2")},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)

	m, err = h.store.GetMaterial(ctx, taq)
	require.NoError(t, err)
	assert.True(t, m.Quantity.IsZero(), m.Quantity.String())

	_, err = h.consumptions.RegisterConsumptions(ctx, taskID, []material.Item{
		{MaterialID: taq, QuantityConsumed: decimal.RequireFromString("0.0001")},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

func TestConsumptions_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	taskID := submitPlain(t, h)

	_, err := h.consumptions.RegisterConsumptions(ctx, taskID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.consumptions.RegisterConsumptions(ctx, uuid.New(), []material.Item{{MaterialID: id("material", "RGT-TAQ"), QuantityConsumed: units(1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.consumptions.RegisterConsumptions(ctx, taskID, []material.Item{{MaterialID: uuid.New(), QuantityConsumed: units(1)}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.consumptions.RegisterConsumptions(ctx, taskID, []material.Item{{MaterialID: id("material", "KIT-LIB"), QuantityConsumed: units(12)}})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.True(t, domain.Retryable(err))

	_, err = h.consumptions.VoidConsumption(ctx, uuid.New(), "reason")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = h.consumptions.VoidConsumption(ctx, uuid.New(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
