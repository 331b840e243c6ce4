package indicator

import talib "github.com/markcheno/go-talib"

// DefaultTrendSpan is the EMA span used to gate pivot eligibility.
const DefaultTrendSpan = 50

// EMA is the exponential moving average with k=2/(span+1). SmoothingEWM
// seeds it with the first close (pandas ewm adjust=False); SmoothingTalib
// uses TA-Lib's SMA seed. The first span-1 positions are NaN either way and
// a series shorter than span is all NaN.
func EMA(closes []float64, span int, mode Smoothing) []float64 {
	if span <= 0 || len(closes) < span {
		return nanSeries(len(closes))
	}
	if mode == SmoothingTalib {
		return maskWarmup(talib.Ema(closes, span), span-1)
	}
	k := 2 / float64(span+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = (1-k)*out[i-1] + k*closes[i]
	}
	return maskWarmup(out, span-1)
}

// SMA is the simple moving average with the same warm-up convention as EMA.
func SMA(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) < period {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Sma(closes, period), period-1)
}
