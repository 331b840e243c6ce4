package scanner

import (
	"context"

	"divscan/internal/analysis/indicator"
	"divscan/internal/logger"
	"divscan/internal/market"
)

type DonchianSignal string

const (
	ShortSetup     DonchianSignal = "SHORT-Setup"
	ShortWatchlist DonchianSignal = "SHORT-Watchlist"
	LongSetup      DonchianSignal = "LONG-Setup"
	LongWatchlist  DonchianSignal = "LONG-Watchlist"
)

type DonchianHit struct {
	Target
	Signal      DonchianSignal  `json:"signal"`
	Close       float64         `json:"close"`
	SMA         float64         `json:"sma"`
	ChannelHigh float64         `json:"channel_high"`
	ChannelLow  float64         `json:"channel_low"`
	Candles     []market.Candle `json:"-"`
}

type DonchianReport struct {
	Run
	Period              int           `json:"period"`
	WarnDistancePercent float64       `json:"warn_distance_percent"`
	Hits                []DonchianHit `json:"hits"`
}

// ClassifyDonchian evaluates the last bar. Below the SMA it looks for
// shorts at the channel high, above it for longs at the channel low. warn
// is a fraction (0.02 for 2%).
func ClassifyDonchian(candles []market.Candle, smaPeriod, period int, warn float64) (DonchianHit, bool) {
	if len(candles) < period || period <= 0 {
		return DonchianHit{}, false
	}
	sma := indicator.Last(indicator.SMA(market.Closes(candles), smaPeriod))
	ch := indicator.Donchian(market.Highs(candles), market.Lows(candles), period)
	last := candles[len(candles)-1]
	hit := DonchianHit{
		Close:       last.Close,
		SMA:         sma,
		ChannelHigh: indicator.Last(ch.Upper),
		ChannelLow:  indicator.Last(ch.Lower),
	}
	switch {
	case last.Close < sma:
		if last.High >= hit.ChannelHigh {
			hit.Signal = ShortSetup
		} else if last.Close >= hit.ChannelHigh*(1-warn) {
			hit.Signal = ShortWatchlist
		}
	case last.Close > sma:
		if last.Low <= hit.ChannelLow {
			hit.Signal = LongSetup
		} else if last.Close <= hit.ChannelLow*(1+warn) {
			hit.Signal = LongWatchlist
		}
	}
	return hit, hit.Signal != ""
}

func (s *Scanner) ScanDonchian(ctx context.Context, targets []Target, tf market.Timeframe) (*DonchianReport, error) {
	dc := s.cfg.Donchian
	warn := dc.WarnDistancePercent / 100
	run := newRun("donchian", tf)
	logger.Infof("[scan] %s Donchian(%d) run %s", tf.Name, dc.Period, run.ID)
	hits, skips, err := fanOut(ctx, targets, s.options(), func(ctx context.Context, t Target) (*DonchianHit, error) {
		candles, err := s.load(ctx, t, tf, s.cfg.Analysis.MaxBars)
		if err != nil {
			return nil, err
		}
		if len(candles) < dc.Period {
			return nil, skipf("%d bars, need %d", len(candles), dc.Period)
		}
		hit, ok := ClassifyDonchian(candles, s.cfg.SMA.Long, dc.Period, warn)
		if !ok {
			return nil, nil
		}
		hit.Target = t
		hit.Candles = candles
		logger.Infof("[donchian] %s %s", t.Symbol(), hit.Signal)
		return &hit, nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	run.finish(skips)
	if hits == nil {
		hits = []DonchianHit{}
	}
	return &DonchianReport{Run: run, Period: dc.Period, WarnDistancePercent: dc.WarnDistancePercent, Hits: hits}, err
}
