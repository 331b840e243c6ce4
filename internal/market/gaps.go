package market

import "time"

// Gap is a run of missing bars between two present ones.
type Gap struct {
	From  int64 `json:"from"`
	To    int64 `json:"to"`
	Count int64 `json:"count"`
}

// FindGaps walks a normalized series on the bar grid of step and reports
// every missing run. Bars off the grid are ignored.
func FindGaps(candles []Candle, step time.Duration) []Gap {
	ms := step.Milliseconds()
	if ms <= 0 || len(candles) < 2 {
		return nil
	}
	var gaps []Gap
	prev := candles[0].OpenTime
	for _, c := range candles[1:] {
		if c.OpenTime <= prev {
			continue
		}
		if missing := (c.OpenTime-prev)/ms - 1; missing > 0 {
			gaps = append(gaps, Gap{From: prev + ms, To: prev + missing*ms, Count: missing})
		}
		prev = c.OpenTime
	}
	return gaps
}

// Missing sums the bars absent across gaps.
func Missing(gaps []Gap) int64 {
	var n int64
	for _, g := range gaps {
		n += g.Count
	}
	return n
}
