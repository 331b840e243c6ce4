package indicator

import talib "github.com/markcheno/go-talib"

// Channel is a Donchian channel: rolling highest high and lowest low.
type Channel struct {
	Upper []float64
	Lower []float64
}

// Donchian computes the rolling max of highs and min of lows over period
// bars, the current bar included.
func Donchian(highs, lows []float64, period int) Channel {
	if period <= 0 || len(highs) < period || len(lows) < period {
		return Channel{Upper: nanSeries(len(highs)), Lower: nanSeries(len(lows))}
	}
	return Channel{
		Upper: maskWarmup(talib.Max(highs, period), period-1),
		Lower: maskWarmup(talib.Min(lows, period), period-1),
	}
}
