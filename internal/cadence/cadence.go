// Package cadence computes frame-rate stability statistics from the elapsed
// timestamps recorded during a capture run.
package cadence

import (
	"math"
	"time"
)

const (
	// rateStabilityThreshold is the maximum rate stddev as a fraction of the
	// mean rate for a run to count as stable.
	rateStabilityThreshold = 0.15

	// jitterStabilityThreshold is the maximum mean jitter as a fraction of the
	// expected inter-frame interval.
	jitterStabilityThreshold = 0.20
)

// Stats summarises the cadence of a run.
type Stats struct {
	Frames       int
	Duration     time.Duration
	RateMean     float64 // frames per second over the whole run
	RateStdDev   float64 // stddev of instantaneous rate
	RateMin      float64
	RateMax      float64
	JitterMean   time.Duration
	JitterStdDev time.Duration
	JitterMax    time.Duration
	IsStable     bool
}

// Compute derives Stats from per-frame elapsed times. total is the run
// duration used for the mean rate; when zero the last timestamp is used.
//
// Stability requires rate stddev < 15% of the mean and mean jitter < 20% of
// the expected interval.
func Compute(elapsed []time.Duration, total time.Duration) Stats {
	n := len(elapsed)
	if total <= 0 && n > 0 {
		total = elapsed[n-1]
	}
	st := Stats{Frames: n, Duration: total}
	if n == 0 || total <= 0 {
		return st
	}

	st.RateMean = float64(n) / total.Seconds()

	rates := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if dt := (elapsed[i] - elapsed[i-1]).Seconds(); dt > 0 {
			rates = append(rates, 1.0/dt)
		}
	}
	if len(rates) == 0 {
		return st
	}

	st.RateMin, st.RateMax = rates[0], rates[0]
	var sumSquares float64
	for _, r := range rates {
		st.RateMin = math.Min(st.RateMin, r)
		st.RateMax = math.Max(st.RateMax, r)
		diff := r - st.RateMean
		sumSquares += diff * diff
	}
	st.RateStdDev = math.Sqrt(sumSquares / float64(len(rates)))

	expected := 1.0 / st.RateMean
	jitters := make([]float64, 0, n-1)
	var jitterSum, jitterMax float64
	for i := 1; i < n; i++ {
		j := math.Abs((elapsed[i] - elapsed[i-1]).Seconds() - expected)
		jitters = append(jitters, j)
		jitterSum += j
		jitterMax = math.Max(jitterMax, j)
	}
	jitterMean := jitterSum / float64(len(jitters))

	var jitterSquares float64
	for _, j := range jitters {
		diff := j - jitterMean
		jitterSquares += diff * diff
	}

	st.JitterMean = seconds(jitterMean)
	st.JitterStdDev = seconds(math.Sqrt(jitterSquares / float64(len(jitters))))
	st.JitterMax = seconds(jitterMax)
	st.IsStable = st.RateStdDev < st.RateMean*rateStabilityThreshold &&
		jitterMean < expected*jitterStabilityThreshold

	return st
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
