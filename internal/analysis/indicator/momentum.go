package indicator

import (
	"fmt"
	"math"
	"strings"

	talib "github.com/markcheno/go-talib"
)

// Smoothing selects how the RSI averages and the trend EMA are seeded.
type Smoothing string

const (
	// SmoothingEWM seeds the averages with the first delta and applies
	// alpha=1/N from there on (pandas ewm adjust=False, TradingView style).
	SmoothingEWM Smoothing = "ewm"
	// SmoothingTalib uses TA-Lib's Wilder RSI, seeded with an SMA of the
	// first N deltas.
	SmoothingTalib Smoothing = "talib"
)

func ParseSmoothing(s string) (Smoothing, error) {
	switch Smoothing(strings.ToLower(strings.TrimSpace(s))) {
	case "", SmoothingEWM:
		return SmoothingEWM, nil
	case SmoothingTalib:
		return SmoothingTalib, nil
	default:
		return "", fmt.Errorf("unknown smoothing %q", s)
	}
}

// RSI computes Wilder's relative strength index aligned with closes.
// Positions before period are NaN. When the smoothed loss is zero the
// value is 100, or 50 when the smoothed gain is zero as well.
func RSI(closes []float64, period int, mode Smoothing) []float64 {
	if mode == SmoothingTalib {
		return talibRSI(closes, period)
	}
	return wilderRSI(closes, period)
}

func wilderRSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < 2 {
		return out
	}
	alpha := 1 / float64(period)
	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		if i == 1 {
			avgGain, avgLoss = gain, loss
		} else {
			avgGain = (1-alpha)*avgGain + alpha*gain
			avgLoss = (1-alpha)*avgLoss + alpha*loss
		}
		if i < period {
			continue
		}
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

func talibRSI(closes []float64, period int) []float64 {
	if period < 2 || len(closes) <= period {
		return nanSeries(len(closes))
	}
	return maskWarmup(talib.Rsi(closes, period), period)
}
