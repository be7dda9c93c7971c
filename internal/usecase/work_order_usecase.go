package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"lab-scheduler/internal/domain"
	"lab-scheduler/internal/domain/priority"
	"lab-scheduler/internal/domain/workorder"
	"lab-scheduler/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	queueCacheKey    = "priority:queue:v1"
	defaultQueueTTL  = 30 * time.Second
	minQueueCacheTTL = time.Second
)

// PriorityCache stores the rendered work-order queue. Implementations may
// silently drop writes.
type PriorityCache interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type CreateWorkOrderInput struct {
	Code                 string
	SLADeadline          *time.Time
	SourceCategoryWeight float64
	ClientPriorityWeight float64
}

type UpdateSLAInput struct {
	SLADeadline          *time.Time
	SourceCategoryWeight *float64
	ClientPriorityWeight *float64
}

// WorkOrderView is a work order with its priority evaluated at ComputedAt.
type WorkOrderView struct {
	WorkOrder  workorder.WorkOrder
	Priority   priority.Result
	ComputedAt time.Time
}

type WorkOrderUsecase interface {
	Create(ctx context.Context, in CreateWorkOrderInput) (WorkOrderView, error)
	Get(ctx context.Context, id uuid.UUID) (WorkOrderView, error)
	UpdateSLA(ctx context.Context, id uuid.UUID, in UpdateSLAInput) (WorkOrderView, error)
	Queue(ctx context.Context) ([]WorkOrderView, error)
}

type WorkOrders struct {
	repo     repository.WorkOrderRepository
	calc     priority.Calculator
	cache    PriorityCache
	cacheTTL time.Duration
	group    singleflight.Group
	opts     Options
}

func NewWorkOrderUsecase(repo repository.WorkOrderRepository, calc priority.Calculator, cache PriorityCache, cacheTTL time.Duration, opts Options) *WorkOrders {
	if cacheTTL <= 0 {
		cacheTTL = defaultQueueTTL
	}
	return &WorkOrders{repo: repo, calc: calc, cache: cache, cacheTTL: cacheTTL, opts: opts.withDefaults()}
}

func validateWeight(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > priority.MaxWeight {
		return domain.Invalid(field, fmt.Sprintf("must be between 0 and %g", priority.MaxWeight))
	}
	return nil
}

func inputsOf(wo workorder.WorkOrder) priority.Input {
	return priority.Input{
		SLADeadline:          wo.SLADeadline,
		SourceCategoryWeight: wo.SourceCategoryWeight,
		ClientPriorityWeight: wo.ClientPriorityWeight,
	}
}

func (u *WorkOrders) Create(ctx context.Context, in CreateWorkOrderInput) (WorkOrderView, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return WorkOrderView{}, domain.Invalid("code", "required")
	}
	if err := validateWeight("source_category_weight", in.SourceCategoryWeight); err != nil {
		return WorkOrderView{}, err
	}
	if err := validateWeight("client_priority_weight", in.ClientPriorityWeight); err != nil {
		return WorkOrderView{}, err
	}

	now := u.opts.now()
	wo := workorder.WorkOrder{
		ID:                   uuid.New(),
		Code:                 code,
		SLADeadline:          utcPtr(in.SLADeadline),
		SourceCategoryWeight: in.SourceCategoryWeight,
		ClientPriorityWeight: in.ClientPriorityWeight,
		Status:               workorder.StatusOpen,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	res := u.calc.Compute(inputsOf(wo), now)
	withPriority(&wo, res, now)

	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	out, err := u.repo.CreateWorkOrder(wctx, wo)
	if err != nil {
		return WorkOrderView{}, err
	}
	u.invalidateQueue(wctx)
	return WorkOrderView{WorkOrder: out, Priority: res, ComputedAt: now}, nil
}

// Get evaluates priority on read and writes it back when the cached level is stale.
func (u *WorkOrders) Get(ctx context.Context, id uuid.UUID) (WorkOrderView, error) {
	wo, err := u.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderView{}, err
	}
	now := u.opts.now()
	res := u.calc.Compute(inputsOf(wo), now)

	if stale(wo, res) {
		wctx, cancel := u.opts.writeCtx(ctx)
		defer cancel()
		if err := u.repo.SavePriorities(wctx, []repository.PriorityUpdate{{ID: wo.ID, Score: res.Score, Level: res.Level, ComputedAt: now}}); err != nil {
			u.opts.Logger.WithError(err).WithField("work_order_id", wo.ID).Warn("priority write-back failed")
		} else {
			withPriority(&wo, res, now)
		}
	}
	return WorkOrderView{WorkOrder: wo, Priority: res, ComputedAt: now}, nil
}

func (u *WorkOrders) UpdateSLA(ctx context.Context, id uuid.UUID, in UpdateSLAInput) (WorkOrderView, error) {
	cur, err := u.repo.GetWorkOrder(ctx, id)
	if err != nil {
		return WorkOrderView{}, err
	}

	next := repository.WorkOrderInputs{
		SLADeadline:          utcPtr(in.SLADeadline),
		SourceCategoryWeight: cur.SourceCategoryWeight,
		ClientPriorityWeight: cur.ClientPriorityWeight,
	}
	if in.SourceCategoryWeight != nil {
		if err := validateWeight("source_category_weight", *in.SourceCategoryWeight); err != nil {
			return WorkOrderView{}, err
		}
		next.SourceCategoryWeight = *in.SourceCategoryWeight
	}
	if in.ClientPriorityWeight != nil {
		if err := validateWeight("client_priority_weight", *in.ClientPriorityWeight); err != nil {
			return WorkOrderView{}, err
		}
		next.ClientPriorityWeight = *in.ClientPriorityWeight
	}

	now := u.opts.now()
	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()

	wo, err := u.repo.UpdateWorkOrderInputs(wctx, id, next, now)
	if err != nil {
		return WorkOrderView{}, err
	}
	res := u.calc.Compute(inputsOf(wo), now)
	if err := u.repo.SavePriorities(wctx, []repository.PriorityUpdate{{ID: wo.ID, Score: res.Score, Level: res.Level, ComputedAt: now}}); err != nil {
		return WorkOrderView{}, fmt.Errorf("save priority: %w", err)
	}
	withPriority(&wo, res, now)
	u.invalidateQueue(wctx)

	u.opts.Logger.WithFields(logrus.Fields{
		"component":     "priority",
		"work_order_id": wo.ID,
		"score":         res.Score,
		"level":         res.Level,
	}).Info("sla updated")
	return WorkOrderView{WorkOrder: wo, Priority: res, ComputedAt: now}, nil
}

// Queue returns open work orders, most urgent first. Concurrent callers share
// one evaluation, and the result is cached until the earliest deadline in it.
func (u *WorkOrders) Queue(ctx context.Context) ([]WorkOrderView, error) {
	if u.cache != nil {
		var cached []WorkOrderView
		if ok, err := u.cache.GetJSON(ctx, queueCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}

	v, err, _ := u.group.Do(queueCacheKey, func() (any, error) {
		wos, err := u.repo.ListOpenWorkOrders(ctx)
		if err != nil {
			return nil, err
		}
		now := u.opts.now()
		views := u.evaluate(wos, now)
		sortQueue(views)

		if u.cache != nil {
			ttl := u.cacheTTL
			for _, v := range views {
				ttl = u.calc.NextChange(inputsOf(v.WorkOrder), now, ttl)
			}
			if ttl >= minQueueCacheTTL {
				if err := u.cache.SetJSON(ctx, queueCacheKey, views, ttl); err != nil {
					u.opts.Logger.WithError(err).Debug("queue cache write failed")
				}
			}
		}
		return views, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]WorkOrderView), nil
}

// Priorities evaluates live priority for the given work orders.
func (u *WorkOrders) Priorities(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]WorkOrderView, error) {
	wos, err := u.repo.GetWorkOrdersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	now := u.opts.now()
	out := make(map[uuid.UUID]WorkOrderView, len(wos))
	for id, wo := range wos {
		out[id] = WorkOrderView{WorkOrder: wo, Priority: u.calc.Compute(inputsOf(wo), now), ComputedAt: now}
	}
	return out, nil
}

func (u *WorkOrders) OpenWorkOrders(ctx context.Context) ([]workorder.WorkOrder, error) {
	return u.repo.ListOpenWorkOrders(ctx)
}

// RefreshPriorities recomputes and stores the cached priority columns.
func (u *WorkOrders) RefreshPriorities(ctx context.Context, wos []workorder.WorkOrder) (int, error) {
	now := u.opts.now()
	updates := make([]repository.PriorityUpdate, 0, len(wos))
	for _, wo := range wos {
		res := u.calc.Compute(inputsOf(wo), now)
		updates = append(updates, repository.PriorityUpdate{ID: wo.ID, Score: res.Score, Level: res.Level, ComputedAt: now})
	}
	wctx, cancel := u.opts.writeCtx(ctx)
	defer cancel()
	if err := u.repo.SavePriorities(wctx, updates); err != nil {
		return 0, err
	}
	return len(updates), nil
}

// InvalidateQueue drops the cached queue after a refresh.
func (u *WorkOrders) InvalidateQueue(ctx context.Context) {
	u.invalidateQueue(ctx)
}

func (u *WorkOrders) invalidateQueue(ctx context.Context) {
	if u.cache == nil {
		return
	}
	if err := u.cache.Delete(ctx, queueCacheKey); err != nil {
		u.opts.Logger.WithError(err).Debug("queue cache invalidation failed")
	}
}

func (u *WorkOrders) evaluate(wos []workorder.WorkOrder, now time.Time) []WorkOrderView {
	out := make([]WorkOrderView, 0, len(wos))
	for _, wo := range wos {
		out = append(out, WorkOrderView{WorkOrder: wo, Priority: u.calc.Compute(inputsOf(wo), now), ComputedAt: now})
	}
	return out
}

// sortQueue orders by score desc, then earliest deadline (none last), then
// creation time and id.
func sortQueue(views []WorkOrderView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Priority.Score != b.Priority.Score {
			return a.Priority.Score > b.Priority.Score
		}
		da, db := a.WorkOrder.SLADeadline, b.WorkOrder.SLADeadline
		switch {
		case da != nil && db == nil:
			return true
		case da == nil && db != nil:
			return false
		case da != nil && db != nil && !da.Equal(*db):
			return da.Before(*db)
		}
		if !a.WorkOrder.CreatedAt.Equal(b.WorkOrder.CreatedAt) {
			return a.WorkOrder.CreatedAt.Before(b.WorkOrder.CreatedAt)
		}
		return a.WorkOrder.ID.String() < b.WorkOrder.ID.String()
	})
}

func stale(wo workorder.WorkOrder, res priority.Result) bool {
	if wo.PriorityScore == nil || wo.PriorityLevel == nil {
		return true
	}
	return *wo.PriorityLevel != res.Level
}

func withPriority(wo *workorder.WorkOrder, res priority.Result, at time.Time) {
	score, level := res.Score, res.Level
	wo.PriorityScore = &score
	wo.PriorityLevel = &level
	wo.PriorityComputedAt = &at
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
