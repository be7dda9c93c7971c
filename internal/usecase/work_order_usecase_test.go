package usecase_test

import (
	"context"
	"testing"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkOrderQueue_OrderAndCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	views, err := h.workOrders.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, views, 4)

	codes := make([]string, 0, len(views))
	for _, v := range views {
		codes = append(codes, v.WorkOrder.Code)
	}
	assert.Equal(t, []string{"WO-1003", "WO-1001", "WO-1002", "WO-1004"}, codes)
	assert.True(t, views[0].Priority.Overdue)
	assert.InDelta(t, 95.0, views[0].Priority.Score, 0.001)
	assert.Equal(t, 1, views[0].Priority.Level)
	assert.Equal(t, 30*time.Second, h.cache.ttls["priority:queue:v1"])

	again, err := h.workOrders.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.cache.hits)
	assert.Len(t, again, 4)
	assert.Equal(t, views[0].WorkOrder.ID, again[0].WorkOrder.ID)
}

func TestWorkOrderQueue_TTLBoundedByDeadline(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.workOrders.Create(ctx, usecase.CreateWorkOrderInput{
		Code:        "WO-2000",
		SLADeadline: ptr(clock.Add(10 * time.Second)),
	})
	require.NoError(t, err)

	_, err = h.workOrders.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, h.cache.ttls["priority:queue:v1"])
}

func TestWorkOrders_CreateAndGet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.workOrders.Create(ctx, usecase.CreateWorkOrderInput{
		Code:                 " WO-3000 ",
		SourceCategoryWeight: 10,
		ClientPriorityWeight: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, "WO-3000", created.WorkOrder.Code)
	assert.Equal(t, 40.0, created.Priority.Score)
	assert.Equal(t, 3, created.Priority.Level)
	require.NotNil(t, created.WorkOrder.PriorityScore)
	assert.Equal(t, 40.0, *created.WorkOrder.PriorityScore)

	got, err := h.workOrders.Get(ctx, created.WorkOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Priority, got.Priority)
	assert.Equal(t, clock, got.ComputedAt)
}

func TestWorkOrders_UpdateSLA(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	woID := id("work_order", "WO-1004")

	_, err := h.workOrders.Queue(ctx)
	require.NoError(t, err)
	deletes := h.cache.deletes

	out, err := h.workOrders.UpdateSLA(ctx, woID, usecase.UpdateSLAInput{
		SLADeadline:          ptr(clock.Add(-time.Hour)),
		ClientPriorityWeight: ptr(10.0),
	})
	require.NoError(t, err)
	assert.True(t, out.Priority.Overdue)
	assert.GreaterOrEqual(t, out.Priority.Score, 90.0)
	assert.Equal(t, 2.0, out.WorkOrder.SourceCategoryWeight)
	assert.Equal(t, 10.0, out.WorkOrder.ClientPriorityWeight)
	assert.Greater(t, h.cache.deletes, deletes)

	views, err := h.workOrders.Queue(ctx)
	require.NoError(t, err)
	assert.Equal(t, "WO-1004", views[0].WorkOrder.Code)
}

func TestWorkOrders_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.workOrders.Create(ctx, usecase.CreateWorkOrderInput{Code: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.workOrders.Create(ctx, usecase.CreateWorkOrderInput{Code: "WO-X", SourceCategoryWeight: 11})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = h.workOrders.UpdateSLA(ctx, id("work_order", "WO-1001"), usecase.UpdateSLAInput{ClientPriorityWeight: ptr(-1.0)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkOrders_RefreshPriorities(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	open, err := h.workOrders.OpenWorkOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 4)

	n, err := h.workOrders.RefreshPriorities(ctx, open)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	wo, err := h.store.GetWorkOrder(ctx, id("work_order", "WO-1003"))
	require.NoError(t, err)
	require.NotNil(t, wo.PriorityLevel)
	assert.Equal(t, 1, *wo.PriorityLevel)
	assert.Equal(t, clock, *wo.PriorityComputedAt)
}
