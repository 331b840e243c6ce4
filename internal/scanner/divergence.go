package scanner

import (
	"context"

	"divscan/internal/analysis/divergence"
	"divscan/internal/logger"
	"divscan/internal/market"
)

// DivergenceHit is the analysis of one symbol. Bullish and Bearish hold
// only pairs confirmed inside the analysis window.
type DivergenceHit struct {
	Target
	Bars        int               `json:"bars"`
	WindowBars  int               `json:"window_bars"`
	WindowStart int64             `json:"window_start"`
	Bullish     []divergence.Pair `json:"bullish"`
	Bearish     []divergence.Pair `json:"bearish"`
	Result      divergence.Result `json:"result"`
	Candles     []market.Candle   `json:"-"`
}

// Found reports whether a recent divergence exists.
func (h DivergenceHit) Found() bool { return len(h.Bullish)+len(h.Bearish) > 0 }

type DivergenceReport struct {
	Run
	Results []DivergenceHit `json:"results"`
}

// Hits returns the analysed symbols with at least one recent divergence.
func (r DivergenceReport) Hits() []DivergenceHit {
	out := make([]DivergenceHit, 0, len(r.Results))
	for _, h := range r.Results {
		if h.Found() {
			out = append(out, h)
		}
	}
	return out
}

// Analyze runs detection for a single symbol. Detection sees the whole
// loaded history; only pairs confirmed within the last analysis.max_bars
// bars count as recent.
func (s *Scanner) Analyze(ctx context.Context, t Target, tf market.Timeframe) (*DivergenceHit, error) {
	maxBars := s.cfg.Analysis.MaxBars
	candles, err := s.load(ctx, t, tf, maxBars)
	if err != nil {
		return nil, err
	}
	window := market.Tail(candles, maxBars)
	res := s.detector.Detect(candles)
	hit := &DivergenceHit{
		Target:     t,
		Bars:       len(candles),
		WindowBars: len(window),
		Result:     res,
		Candles:    candles,
		Bullish:    []divergence.Pair{},
		Bearish:    []divergence.Pair{},
	}
	if len(window) > 0 {
		hit.WindowStart = window[0].OpenTime
		hit.Bullish, hit.Bearish = res.Since(hit.WindowStart)
	}
	if hit.Found() {
		logger.Infof("[divergence] %s (%s) %d bullish / %d bearish in last %d bars",
			t.Entry.DisplayName(), t.Symbol(), len(hit.Bullish), len(hit.Bearish), hit.WindowBars)
	} else {
		logger.Debugf("[divergence] %s (%s) none in last %d bars", t.Entry.DisplayName(), t.Symbol(), hit.WindowBars)
	}
	return hit, nil
}

// ScanDivergences analyses every target. Results keep target order and
// include symbols without a recent divergence; use Hits to filter. The
// report is returned even when some targets failed, err then lists them.
func (s *Scanner) ScanDivergences(ctx context.Context, targets []Target, tf market.Timeframe) (*DivergenceReport, error) {
	run := newRun("divergence", tf)
	logger.Infof("[scan] %s divergence run %s over %d symbols", tf.Name, run.ID, len(targets))
	results, skips, err := fanOut(ctx, targets, s.options(), func(ctx context.Context, t Target) (*DivergenceHit, error) {
		return s.Analyze(ctx, t, tf)
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	run.finish(skips)
	return &DivergenceReport{Run: run, Results: results}, err
}
