package divergence

import (
	"math"

	"divscan/internal/market"
)

// PivotKind distinguishes fractal highs from fractal lows.
type PivotKind int

const (
	PivotHigh PivotKind = iota
	PivotLow
)

func (k PivotKind) String() string {
	if k == PivotHigh {
		return "high"
	}
	return "low"
}

func (k PivotKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Kind classifies a divergence pair.
type Kind int

const (
	Bullish Kind = iota
	Bearish
)

func (k Kind) String() string {
	if k == Bullish {
		return "bullish"
	}
	return "bearish"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Pivot is a confirmed fractal extremum. Confirm is the bar at which the
// right-hand side of the window completed (Index + fractal periods).
type Pivot struct {
	Index    int       `json:"index"`
	Confirm  int       `json:"confirm"`
	Kind     PivotKind `json:"kind"`
	Price    float64   `json:"price"`
	Momentum float64   `json:"momentum"`
}

// Pair links an earlier pivot to the confirmation bar of the later one.
type Pair struct {
	From      int64 `json:"from"`
	To        int64 `json:"to"`
	FromIndex int   `json:"from_index"`
	ToIndex   int   `json:"to_index"`
	Kind      Kind  `json:"kind"`
}

// Series is the working arena for one detection call. All slices share
// the same length; undefined derived values are NaN.
type Series struct {
	Time             []int64
	Open             []float64
	High             []float64
	Low              []float64
	Close            []float64
	Momentum         []float64
	MomentumCentered []float64
	Trend            []float64
	HighPivot        []bool
	LowPivot         []bool
}

// NewSeries copies the candle fields into a fresh arena. Derived columns
// start undefined and both pivot flags start false.
func NewSeries(bars []market.Candle) *Series {
	n := len(bars)
	s := &Series{
		Time:             make([]int64, n),
		Open:             make([]float64, n),
		High:             make([]float64, n),
		Low:              make([]float64, n),
		Close:            make([]float64, n),
		Momentum:         make([]float64, n),
		MomentumCentered: make([]float64, n),
		Trend:            make([]float64, n),
		HighPivot:        make([]bool, n),
		LowPivot:         make([]bool, n),
	}
	for i, b := range bars {
		s.Time[i] = b.OpenTime
		s.Open[i] = b.Open
		s.High[i] = b.High
		s.Low[i] = b.Low
		s.Close[i] = b.Close
		s.Momentum[i] = math.NaN()
		s.MomentumCentered[i] = math.NaN()
		s.Trend[i] = math.NaN()
	}
	return s
}

func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Time)
}

// Result is the output of one detection call.
type Result struct {
	Series  *Series `json:"-"`
	Highs   []Pivot `json:"highs"`
	Lows    []Pivot `json:"lows"`
	Bullish []Pair  `json:"bullish"`
	Bearish []Pair  `json:"bearish"`
}

// Since returns the pairs confirmed at or after ts.
func (r Result) Since(ts int64) (bullish, bearish []Pair) {
	return pairsSince(r.Bullish, ts), pairsSince(r.Bearish, ts)
}

// Empty reports whether no divergence was found.
func (r Result) Empty() bool {
	return len(r.Bullish) == 0 && len(r.Bearish) == 0
}

func pairsSince(pairs []Pair, ts int64) []Pair {
	out := make([]Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.To >= ts {
			out = append(out, p)
		}
	}
	return out
}
