// Package priority computes work-order urgency from SLA deadline and weights.
//
// Score layout (0..100):
//
//	base    0..40  from source-category (60%) and client (40%) weights, each 0..10
//	decay   0..50  linear over Horizon as now approaches the deadline
//	overdue 90..100 once now is past the deadline, scaled by base
//
// The function is pure in (inputs, now) and non-decreasing in now.
package priority

import (
	"math"
	"time"
)

const (
	MaxWeight      = 10.0
	DefaultHorizon = 7 * 24 * time.Hour

	baseMax     = 40.0
	decayMax    = 50.0
	overdueBand = 90.0
)

type Input struct {
	SLADeadline          *time.Time
	SourceCategoryWeight float64
	ClientPriorityWeight float64
}

type Result struct {
	Score   float64
	Level   int
	Overdue bool
}

type Calculator struct {
	Horizon time.Duration
}

func NewCalculator(horizon time.Duration) Calculator {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	return Calculator{Horizon: horizon}
}

func (c Calculator) Compute(in Input, now time.Time) Result {
	horizon := c.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	base := baseScore(in)

	if in.SLADeadline == nil {
		return result(base, false)
	}

	remaining := in.SLADeadline.Sub(now)
	if remaining < 0 {
		score := overdueBand + (100-overdueBand)*(base/baseMax)
		return result(score, true)
	}

	decay := 0.0
	if remaining < horizon {
		decay = decayMax * (1 - float64(remaining)/float64(horizon))
	}
	return result(base+decay, false)
}

func baseScore(in Input) float64 {
	src := clamp(in.SourceCategoryWeight, 0, MaxWeight) / MaxWeight
	cli := clamp(in.ClientPriorityWeight, 0, MaxWeight) / MaxWeight
	return baseMax * (0.6*src + 0.4*cli)
}

func result(score float64, overdue bool) Result {
	score = math.Round(clamp(score, 0, 100)*100) / 100
	return Result{Score: score, Level: Level(score), Overdue: overdue}
}

// Level bands a score into 1 (most urgent) .. 5.
func Level(score float64) int {
	switch {
	case score >= 80:
		return 1
	case score >= 60:
		return 2
	case score >= 40:
		return 3
	case score >= 20:
		return 4
	default:
		return 5
	}
}

// NextChange returns how long a cached result for in keeps its level and
// overdue flag. The decay is linear, so the next band crossing is solved
// directly; the result never passes the deadline and is capped at ttl.
func (c Calculator) NextChange(in Input, now time.Time, ttl time.Duration) time.Duration {
	if in.SLADeadline == nil {
		return ttl
	}
	remaining := in.SLADeadline.Sub(now)
	if remaining < 0 {
		return ttl
	}
	horizon := c.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	next := remaining
	if edge, ok := nextEdge(c.Compute(in, now).Score); ok {
		// Scores are rounded to two places, so the band flips half a cent early.
		target := edge - 0.005
		base := baseScore(in)
		if at := float64(horizon) * (1 - (target-base)/decayMax); at > 0 {
			if cross := remaining - time.Duration(math.Ceil(at)); cross < next {
				next = max(cross, 0)
			}
		}
	}
	return min(next, ttl)
}

func nextEdge(score float64) (float64, bool) {
	for _, edge := range [...]float64{20, 40, 60, 80} {
		if score < edge {
			return edge, true
		}
	}
	return 0, false
}

func clamp(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}
