package divergence

import "divscan/internal/analysis/indicator"

// Scan runs the single forward pass over a prepared series: it flags
// fractal pivots and pairs each new pivot with the previous pivot of the
// same kind. Flags are written into s; pivots and pairs are returned in
// detection order.
func Scan(s *Series, cfg Config) Result {
	res := Result{
		Series:  s,
		Highs:   []Pivot{},
		Lows:    []Pivot{},
		Bullish: []Pair{},
		Bearish: []Pair{},
	}
	n := cfg.FractalPeriods
	if n <= 0 || s.Len() < 2*n+1 {
		return res
	}
	lastHigh, lastLow := -1, -1
	for d := 2 * n; d < s.Len(); d++ {
		p := d - n
		if !s.windowDefined(p-n, d) {
			continue
		}
		if s.isFractalHigh(p, n) && s.Close[p] > s.Trend[p] {
			s.HighPivot[p] = true
			res.Highs = append(res.Highs, Pivot{Index: p, Confirm: d, Kind: PivotHigh, Price: s.High[p], Momentum: s.MomentumCentered[p]})
			if lastHigh >= 0 && p-lastHigh <= cfg.MaxBarsDiff && s.bearishBetween(lastHigh, p) {
				res.Bearish = append(res.Bearish, s.pair(lastHigh, d, Bearish))
			}
			lastHigh = p
		}
		if s.isFractalLow(p, n) && s.Close[p] < s.Trend[p] {
			s.LowPivot[p] = true
			res.Lows = append(res.Lows, Pivot{Index: p, Confirm: d, Kind: PivotLow, Price: s.Low[p], Momentum: s.MomentumCentered[p]})
			if lastLow >= 0 && p-lastLow <= cfg.MaxBarsDiff && s.bullishBetween(lastLow, p) {
				res.Bullish = append(res.Bullish, s.pair(lastLow, d, Bullish))
			}
			lastLow = p
		}
	}
	return res
}

func (s *Series) windowDefined(from, to int) bool {
	for i := from; i <= to; i++ {
		if !indicator.IsDefined(s.High[i]) ||
			!indicator.IsDefined(s.Low[i]) ||
			!indicator.IsDefined(s.Close[i]) ||
			!indicator.IsDefined(s.Trend[i]) ||
			!indicator.IsDefined(s.MomentumCentered[i]) {
			return false
		}
	}
	return true
}

// isFractalHigh: high[p] strictly above every high in [p-n, p+n].
func (s *Series) isFractalHigh(p, n int) bool {
	for i := p - n; i <= p+n; i++ {
		if i != p && s.High[i] >= s.High[p] {
			return false
		}
	}
	return true
}

func (s *Series) isFractalLow(p, n int) bool {
	for i := p - n; i <= p+n; i++ {
		if i != p && s.Low[i] <= s.Low[p] {
			return false
		}
	}
	return true
}

// bearishBetween: both pivots overbought, momentum weakening, price higher.
func (s *Series) bearishBetween(prev, cur int) bool {
	mPrev, mCur := s.MomentumCentered[prev], s.MomentumCentered[cur]
	return mPrev > 0 && mCur > 0 && mCur < mPrev && s.High[cur] > s.High[prev]
}

// bullishBetween: both pivots oversold, momentum strengthening, price lower.
func (s *Series) bullishBetween(prev, cur int) bool {
	mPrev, mCur := s.MomentumCentered[prev], s.MomentumCentered[cur]
	return mPrev < 0 && mCur < 0 && mCur > mPrev && s.Low[cur] < s.Low[prev]
}

func (s *Series) pair(prev, confirm int, kind Kind) Pair {
	return Pair{From: s.Time[prev], To: s.Time[confirm], FromIndex: prev, ToIndex: confirm, Kind: kind}
}
