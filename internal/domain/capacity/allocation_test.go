package capacity

import (
	"testing"
	"time"

	"lab-scheduler/internal/domain/schedule"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func window(from, to int) schedule.Interval {
	return schedule.Interval{Start: day.Add(time.Duration(from) * time.Hour), End: day.Add(time.Duration(to) * time.Hour)}
}

func alloc(slots, from, to int) Allocation {
	return Allocation{Slots: slots, Interval: window(from, to), Status: StatusActive}
}

func TestPeakUsage(t *testing.T) {
	allocs := []Allocation{
		alloc(2, 8, 12),
		alloc(3, 10, 14),
		alloc(4, 12, 16),
		{Slots: 9, Interval: window(8, 16), Status: StatusReleased},
	}

	// [8,12) and [12,16) touch but do not stack, so the peak is 3+4 rather than 2+3+4.
	assert.Equal(t, 7, PeakUsage(allocs, window(8, 16)))
	assert.Equal(t, 2, PeakUsage(allocs, window(8, 10)))
	assert.Equal(t, 5, PeakUsage(allocs, window(10, 12)))
	assert.Equal(t, 0, PeakUsage(allocs, window(17, 18)))
}

func TestCompute_NeverNegative(t *testing.T) {
	u := Compute(3, []Allocation{alloc(5, 8, 9)}, window(8, 9))
	assert.Equal(t, Usage{Total: 3, InUse: 5, Available: 0}, u)
}

func TestPeakUsage_BoundedBySum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(rt, "n")
		allocs := make([]Allocation, 0, n)
		sum := 0
		for i := 0; i < n; i++ {
			from := rapid.IntRange(0, 22).Draw(rt, "from")
			to := rapid.IntRange(from+1, 24).Draw(rt, "to")
			slots := rapid.IntRange(1, 5).Draw(rt, "slots")
			allocs = append(allocs, alloc(slots, from, to))
			sum += slots
		}

		peak := PeakUsage(allocs, window(0, 24))
		if peak < 0 || peak > sum {
			rt.Fatalf("peak %d outside [0, %d]", peak, sum)
		}
		for _, a := range allocs {
			if peak < a.Slots {
				rt.Fatalf("peak %d below single allocation %d", peak, a.Slots)
			}
		}
	})
}
