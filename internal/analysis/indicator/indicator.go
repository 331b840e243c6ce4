package indicator

import "math"

// Series helpers shared by the oscillators below. Undefined positions are
// always NaN; callers test with IsDefined.

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// IsDefined reports whether v is a usable value (not NaN, not Inf).
func IsDefined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LastValid returns the last defined value of series.
func LastValid(series []float64) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if IsDefined(series[i]) {
			return series[i], true
		}
	}
	return 0, false
}

// Last returns the final element, which may be undefined.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

// Centered shifts an oscillator bounded in [0,100] to [-50,50].
func Centered(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		out[i] = v - 50
	}
	return out
}

// maskWarmup marks the first n values as undefined. talib leaves warm-up
// slots at zero, which is indistinguishable from a real reading.
func maskWarmup(series []float64, n int) []float64 {
	if n > len(series) {
		n = len(series)
	}
	for i := 0; i < n; i++ {
		series[i] = math.NaN()
	}
	return series
}
