package usecase_test

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"lab-scheduler/internal/database/seeder"
	"lab-scheduler/internal/domain/matching"
	"lab-scheduler/internal/domain/priority"
	"lab-scheduler/internal/repository/memory"
	"lab-scheduler/internal/usecase"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var clock = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	store *memory.Store
	cache *fakeCache

	matching     *usecase.Matching
	scheduling   *usecase.Scheduling
	capacity     *usecase.Capacity
	workOrders   *usecase.WorkOrders
	consumptions *usecase.Consumptions
	tasks        *usecase.Tasks

	taskDeps usecase.TaskDeps
	opts     usecase.Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store := memory.NewStore()
	seeder.LoadMemory(store, seeder.DefaultFixtures(clock))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts := usecase.Options{Now: func() time.Time { return clock }, Logger: logger}

	h := &harness{store: store, cache: newFakeCache()}
	h.matching = usecase.NewMatchingUsecase(store, store, store, matching.DefaultWeights, opts)
	h.scheduling = usecase.NewSchedulingUsecase(store, store, store, opts)
	h.capacity = usecase.NewCapacityUsecase(store, store, store, opts)
	h.workOrders = usecase.NewWorkOrderUsecase(store, priority.NewCalculator(0), h.cache, 30*time.Second, opts)
	h.consumptions = usecase.NewConsumptionUsecase(store, store, opts)
	h.taskDeps = usecase.TaskDeps{
		Tasks:        store,
		Equipment:    store,
		Reservations: store,
		Eligibility:  h.matching,
		Scheduler:    h.scheduling,
		Capacity:     h.capacity,
		Consumptions: h.consumptions,
		Priorities:   h.workOrders,
	}
	h.opts = opts
	h.tasks = usecase.NewTaskUsecase(h.taskDeps, opts)
	return h
}

func id(kind, code string) uuid.UUID { return seeder.ID(kind, code) }

func ptr[T any](v T) *T { return &v }

func hours(h int) time.Time { return clock.Add(time.Duration(h) * time.Hour) }

func units(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

// fakeCache is a PriorityCache that round-trips values through JSON like the
// Redis implementation does.
type fakeCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	ttls    map[string]time.Duration
	hits    int
	deletes int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *fakeCache) GetJSON(_ context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.items[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, out)
}

func (c *fakeCache) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = b
	c.ttls[key] = ttl
	return nil
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	c.deletes++
	return nil
}
