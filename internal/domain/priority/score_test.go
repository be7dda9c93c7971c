package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func deadline(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestCompute(t *testing.T) {
	calc := NewCalculator(0)

	cases := []struct {
		name    string
		in      Input
		score   float64
		overdue bool
	}{
		{"no deadline is base only", Input{SourceCategoryWeight: 10, ClientPriorityWeight: 10}, 40, false},
		{"beyond horizon has no decay", Input{SLADeadline: deadline(10 * 24 * time.Hour), SourceCategoryWeight: 5, ClientPriorityWeight: 5}, 20, false},
		{"half horizon", Input{SLADeadline: deadline(DefaultHorizon / 2)}, 25, false},
		{"at deadline", Input{SLADeadline: deadline(0), SourceCategoryWeight: 10, ClientPriorityWeight: 10}, 90, false},
		{"overdue floor", Input{SLADeadline: deadline(-time.Minute)}, 90, true},
		{"overdue ceiling", Input{SLADeadline: deadline(-time.Hour), SourceCategoryWeight: 10, ClientPriorityWeight: 10}, 100, true},
		{"weights are clamped", Input{SourceCategoryWeight: 50, ClientPriorityWeight: -3}, 24, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calc.Compute(tc.in, now)
			assert.InDelta(t, tc.score, got.Score, 0.001)
			assert.Equal(t, tc.overdue, got.Overdue)
			assert.Equal(t, Level(got.Score), got.Level)
		})
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, Level(100))
	assert.Equal(t, 1, Level(80))
	assert.Equal(t, 2, Level(79.99))
	assert.Equal(t, 3, Level(40))
	assert.Equal(t, 4, Level(20))
	assert.Equal(t, 5, Level(19.99))
	assert.Equal(t, 5, Level(0))
}

func TestNextChange(t *testing.T) {
	calc := NewCalculator(0)
	ttl := time.Minute

	assert.Equal(t, ttl, calc.NextChange(Input{}, now, ttl))
	assert.Equal(t, 10*time.Second, calc.NextChange(Input{SLADeadline: deadline(10 * time.Second)}, now, ttl))
	assert.Equal(t, ttl, calc.NextChange(Input{SLADeadline: deadline(time.Hour)}, now, ttl))
	assert.Equal(t, ttl, calc.NextChange(Input{SLADeadline: deadline(-time.Hour)}, now, ttl))
}

func TestNextChange_StopsAtBandCrossing(t *testing.T) {
	calc := NewCalculator(0)
	in := Input{SLADeadline: deadline(DefaultHorizon)}
	ttl := 30 * 24 * time.Hour

	got := calc.NextChange(in, now, ttl)
	assert.InDelta(t, 0.3999*DefaultHorizon.Hours(), got.Hours(), 1e-6)
	assert.Equal(t, 5, calc.Compute(in, now.Add(got-time.Second)).Level)
	assert.Equal(t, 4, calc.Compute(in, now.Add(got+time.Second)).Level)

	// Far from the deadline the crossing sits beyond the horizon entry.
	in.SLADeadline = deadline(DefaultHorizon + 24*time.Hour)
	assert.InDelta(t, got.Hours()+24, calc.NextChange(in, now, ttl).Hours(), 1e-6)

	// Level 1 holds until the deadline flips the overdue flag.
	in = Input{SLADeadline: deadline(time.Hour), SourceCategoryWeight: 10, ClientPriorityWeight: 10}
	assert.Equal(t, time.Hour, calc.NextChange(in, now, ttl))
}

func TestNextChange_LevelHoldsUntilExpiry(t *testing.T) {
	calc := NewCalculator(0)
	ttl := 30 * 24 * time.Hour

	rapid.Check(t, func(rt *rapid.T) {
		in := Input{
			SourceCategoryWeight: rapid.Float64Range(0, 10).Draw(rt, "source"),
			ClientPriorityWeight: rapid.Float64Range(0, 10).Draw(rt, "client"),
			SLADeadline:          deadline(time.Duration(rapid.Int64Range(0, int64(14*24*time.Hour)).Draw(rt, "deadline"))),
		}
		d := calc.NextChange(in, now, ttl)
		if d < time.Millisecond {
			return
		}
		at := now.Add(time.Duration(rapid.Int64Range(0, int64(d-time.Millisecond)).Draw(rt, "at")))

		a, b := calc.Compute(in, now), calc.Compute(in, at)
		if a.Level != b.Level || a.Overdue != b.Overdue {
			rt.Fatalf("cached level %d/%v went stale at %v before expiry %v: %d/%v", a.Level, a.Overdue, at.Sub(now), d, b.Level, b.Overdue)
		}
	})
}

func TestCompute_NonDecreasingInTime(t *testing.T) {
	calc := NewCalculator(0)

	rapid.Check(t, func(rt *rapid.T) {
		in := Input{
			SourceCategoryWeight: rapid.Float64Range(0, 10).Draw(rt, "source"),
			ClientPriorityWeight: rapid.Float64Range(0, 10).Draw(rt, "client"),
		}
		if rapid.Bool().Draw(rt, "has_deadline") {
			in.SLADeadline = deadline(time.Duration(rapid.Int64Range(-int64(48*time.Hour), int64(14*24*time.Hour)).Draw(rt, "deadline")))
		}
		t1 := now.Add(time.Duration(rapid.Int64Range(0, int64(10*24*time.Hour)).Draw(rt, "t1")))
		t2 := t1.Add(time.Duration(rapid.Int64Range(0, int64(10*24*time.Hour)).Draw(rt, "step")))

		a, b := calc.Compute(in, t1), calc.Compute(in, t2)
		if b.Score < a.Score {
			rt.Fatalf("score dropped from %v at %v to %v at %v", a.Score, t1, b.Score, t2)
		}
		if a.Score < 0 || b.Score > 100 {
			rt.Fatalf("score out of range: %v %v", a.Score, b.Score)
		}
		if a.Overdue && !b.Overdue {
			rt.Fatalf("overdue flag cleared over time")
		}
	})
}
