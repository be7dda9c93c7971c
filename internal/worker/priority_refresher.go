package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"lab-scheduler/internal/domain/workorder"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	RefreshLockKey = "priority:refresh:lock"

	defaultRefreshInterval = 5 * time.Minute
	defaultRefreshBatch    = 100
)

type prioritySource interface {
	OpenWorkOrders(ctx context.Context) ([]workorder.WorkOrder, error)
	RefreshPriorities(ctx context.Context, wos []workorder.WorkOrder) (int, error)
	InvalidateQueue(ctx context.Context)
}

// Locker is the distributed lock the refresher takes before each run. A
// disabled locker means a single instance, so the run proceeds unguarded.
type Locker interface {
	Enabled() bool
	SetIfNotExists(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, value string) error
}

type RefresherConfig struct {
	Interval  time.Duration
	Workers   int
	BatchSize int
	// RatePerSecond caps batch starts; 0 leaves them unthrottled.
	RatePerSecond int
}

type RefreshStats struct {
	Skipped    bool
	WorkOrders int
	Updated    int
	Failed     int
}

// PriorityRefresher periodically rewrites the cached priority columns of open
// work orders so reads that skip live evaluation stay close to current.
type PriorityRefresher struct {
	source prioritySource
	lock   Locker
	cfg    RefresherConfig
	logger logrus.FieldLogger

	running atomic.Bool
}

func NewPriorityRefresher(source prioritySource, lock Locker, cfg RefresherConfig, logger logrus.FieldLogger) *PriorityRefresher {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultRefreshInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultRefreshBatch
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PriorityRefresher{
		source: source,
		lock:   lock,
		cfg:    cfg,
		logger: logger.WithField("component", "priority_refresher"),
	}
}

// Start runs the refresher until ctx is done. It returns immediately.
func (r *PriorityRefresher) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(r.cfg.Interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
					r.logger.WithError(err).Warn("priority refresh failed")
				}
			}
		}
	}()
}

func (r *PriorityRefresher) RunOnce(ctx context.Context) (RefreshStats, error) {
	if !r.running.CompareAndSwap(false, true) {
		return RefreshStats{Skipped: true}, nil
	}
	defer r.running.Store(false)

	release, ok, err := r.acquire(ctx)
	if err != nil {
		return RefreshStats{}, err
	}
	if !ok {
		r.logger.Debug("priority refresh held by another instance")
		return RefreshStats{Skipped: true}, nil
	}
	defer release()

	wos, err := r.source.OpenWorkOrders(ctx)
	if err != nil {
		return RefreshStats{}, fmt.Errorf("list open work orders: %w", err)
	}
	stats := RefreshStats{WorkOrders: len(wos)}
	if len(wos) == 0 {
		return stats, nil
	}

	batches := chunk(wos, r.cfg.BatchSize)
	pool := NewPool(r.cfg.Workers, len(batches))
	pool.SetRateLimit(r.cfg.RatePerSecond)
	var updated atomic.Int64
	for _, b := range batches {
		pool.Submit(func(ctx context.Context) error {
			n, err := r.source.RefreshPriorities(ctx, b)
			updated.Add(int64(n))
			return err
		})
	}
	pool.Close()

	var errs []error
	for res := range pool.Run(ctx) {
		if res.Err != nil {
			stats.Failed++
			errs = append(errs, res.Err)
		}
	}
	stats.Updated = int(updated.Load())

	r.source.InvalidateQueue(ctx)

	entry := r.logger.WithFields(logrus.Fields{
		"work_orders": stats.WorkOrders,
		"updated":     stats.Updated,
		"failed":      stats.Failed,
	})
	if len(errs) > 0 {
		entry.Warn("priority refresh finished with failures")
		return stats, errors.Join(errs...)
	}
	entry.Info("priority refresh finished")
	return stats, ctx.Err()
}

func (r *PriorityRefresher) acquire(ctx context.Context) (func(), bool, error) {
	noop := func() {}
	if r.lock == nil || !r.lock.Enabled() {
		return noop, true, nil
	}
	token := uuid.NewString()
	ok, err := r.lock.SetIfNotExists(ctx, RefreshLockKey, token, r.cfg.Interval)
	if err != nil {
		return noop, false, fmt.Errorf("take refresh lock: %w", err)
	}
	if !ok {
		return noop, false, nil
	}
	return func() {
		if err := r.lock.ReleaseIfOwner(context.WithoutCancel(ctx), RefreshLockKey, token); err != nil {
			r.logger.WithError(err).Warn("release refresh lock failed")
		}
	}, true, nil
}

func chunk(wos []workorder.WorkOrder, size int) [][]workorder.WorkOrder {
	out := make([][]workorder.WorkOrder, 0, (len(wos)+size-1)/size)
	for start := 0; start < len(wos); start += size {
		end := start + size
		if end > len(wos) {
			end = len(wos)
		}
		out = append(out, wos[start:end])
	}
	return out
}
