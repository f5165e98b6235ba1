package monitor

import "math"

// EWMA returns the exponentially weighted moving average of x with
// smoothing factor α = 2 / (span + 1). Each average is normalized by
// the sum of its weights, so early averages are not biased towards
// zero:
//
//	y[t] = Σ (1-α)^i x[t-i] / Σ (1-α)^i,  i = 0..t
//
// The first minPeriods-1 averages are NaN.
func EWMA(x []float64, span, minPeriods int) []float64 {
	if span < 1 {
		span = 1
	}
	decay := 1 - 2/(float64(span)+1)

	out := make([]float64, len(x))
	var num, den float64
	for t, v := range x {
		num = v + decay*num
		den = 1 + decay*den
		if t+1 < minPeriods {
			out[t] = math.NaN()
			continue
		}
		out[t] = num / den
	}
	return out
}

// lastTrend returns the most recent EWMA of x and whether it is defined
func lastTrend(x []float64, span, minPeriods int) (float64, bool) {
	if len(x) == 0 {
		return 0, false
	}
	trend := EWMA(x, span, minPeriods)
	last := trend[len(trend)-1]
	return last, !math.IsNaN(last)
}
