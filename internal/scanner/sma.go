package scanner

import (
	"context"

	"divscan/internal/analysis/divergence"
	"divscan/internal/analysis/indicator"
	"divscan/internal/logger"
	"divscan/internal/market"
)

// SMAPullback is a symbol trading above its long SMA but below its short
// one: a pullback inside an uptrend.
type SMAPullback struct {
	Target
	Close      float64           `json:"close"`
	SMALong    float64           `json:"sma_long"`
	SMAShort   float64           `json:"sma_short"`
	Divergence divergence.Result `json:"divergence"`
	Candles    []market.Candle   `json:"-"`
}

type SMAReport struct {
	Run
	Long  int           `json:"long"`
	Short int           `json:"short"`
	Hits  []SMAPullback `json:"hits"`
}

func (s *Scanner) ScanSMAPullbacks(ctx context.Context, targets []Target, tf market.Timeframe) (*SMAReport, error) {
	long, short := s.cfg.SMA.Long, s.cfg.SMA.Short
	need := long
	if short > need {
		need = short
	}
	run := newRun("sma", tf)
	logger.Infof("[scan] %s SMA%d/SMA%d pullback run %s", tf.Name, long, short, run.ID)
	hits, skips, err := fanOut(ctx, targets, s.options(), func(ctx context.Context, t Target) (*SMAPullback, error) {
		candles, err := s.load(ctx, t, tf, s.cfg.Analysis.MaxBars)
		if err != nil {
			return nil, err
		}
		if len(candles) < need {
			return nil, skipf("%d bars, need %d", len(candles), need)
		}
		closes := market.Closes(candles)
		last := closes[len(closes)-1]
		smaLong := indicator.Last(indicator.SMA(closes, long))
		smaShort := indicator.Last(indicator.SMA(closes, short))
		if !(last > smaLong && last < smaShort) {
			return nil, nil
		}
		logger.Infof("[sma] %s (%s) pullback: close %.4f SMA%d %.4f SMA%d %.4f", t.Entry.DisplayName(), t.Symbol(), last, long, smaLong, short, smaShort)
		return &SMAPullback{
			Target: t, Close: last, SMALong: smaLong, SMAShort: smaShort,
			Divergence: s.detector.Detect(candles), Candles: candles,
		}, nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	run.finish(skips)
	if hits == nil {
		hits = []SMAPullback{}
	}
	return &SMAReport{Run: run, Long: long, Short: short, Hits: hits}, err
}
