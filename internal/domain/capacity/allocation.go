package capacity

import (
	"sort"
	"time"

	"lab-scheduler/internal/domain/schedule"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReleased Status = "released"
)

// Allocation is a task holding slots of capacitated equipment over a window.
type Allocation struct {
	ID          uuid.UUID
	EquipmentID uuid.UUID
	TaskID      uuid.UUID
	Slots       int
	Interval    schedule.Interval
	Status      Status
	CreatedAt   time.Time
}

type Usage struct {
	Total     int
	InUse     int
	Available int
}

// PeakUsage returns the maximum number of slots held concurrently inside window
// by active allocations. Allocations ending exactly where another starts do not stack.
func PeakUsage(allocs []Allocation, window schedule.Interval) int {
	type edge struct {
		at    time.Time
		delta int
	}
	edges := make([]edge, 0, len(allocs)*2)
	for _, a := range allocs {
		if a.Status != StatusActive || a.Slots <= 0 {
			continue
		}
		if !a.Interval.Overlaps(window) {
			continue
		}
		start := a.Interval.Start
		if start.Before(window.Start) {
			start = window.Start
		}
		end := a.Interval.End
		if end.After(window.End) {
			end = window.End
		}
		edges = append(edges, edge{at: start, delta: a.Slots}, edge{at: end, delta: -a.Slots})
	}

	// Releases sort before acquisitions at the same instant.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].at.Equal(edges[j].at) {
			return edges[i].delta < edges[j].delta
		}
		return edges[i].at.Before(edges[j].at)
	})

	cur, peak := 0, 0
	for _, e := range edges {
		cur += e.delta
		if cur > peak {
			peak = cur
		}
	}
	return peak
}

func Compute(total int, allocs []Allocation, window schedule.Interval) Usage {
	inUse := PeakUsage(allocs, window)
	avail := total - inUse
	if avail < 0 {
		avail = 0
	}
	return Usage{Total: total, InUse: inUse, Available: avail}
}
