package scanner

import (
	"context"
	"fmt"
	"sort"

	"divscan/internal/analysis/indicator"
	"divscan/internal/logger"
	"divscan/internal/market"
)

type RSIReading struct {
	Target
	RSI     float64         `json:"rsi"`
	Candles []market.Candle `json:"-"`
}

// RSIReport buckets symbols by their latest RSI. InRange and Below are
// sorted ascending, Above descending.
type RSIReport struct {
	Run
	Period  int          `json:"period"`
	Lower   float64      `json:"lower"`
	Upper   float64      `json:"upper"`
	InRange []RSIReading `json:"in_range"`
	Below   []RSIReading `json:"below"`
	Above   []RSIReading `json:"above"`
}

func (s *Scanner) ScanRSIRange(ctx context.Context, targets []Target, tf market.Timeframe) (*RSIReport, error) {
	rc := s.cfg.RSIScanner
	if rc.Lower >= rc.Upper {
		return nil, fmt.Errorf("rsi_scanner.lower (%v) must be smaller than upper (%v)", rc.Lower, rc.Upper)
	}
	lookback := max(rc.LookbackBars, rc.Period*4)
	run := newRun("rsi", tf)
	logger.Infof("[scan] %s RSI(%d) run %s range [%v, %v]", tf.Name, rc.Period, run.ID, rc.Lower, rc.Upper)
	readings, skips, err := fanOut(ctx, targets, s.options(), func(ctx context.Context, t Target) (*RSIReading, error) {
		candles, err := s.load(ctx, t, tf, lookback)
		if err != nil {
			return nil, err
		}
		last := indicator.Last(indicator.RSI(market.Closes(candles), rc.Period, s.smoothing))
		if !indicator.IsDefined(last) {
			return nil, skipf("RSI undefined with %d bars", len(candles))
		}
		logger.Debugf("[rsi] %s RSI=%.2f", t.Symbol(), last)
		return &RSIReading{Target: t, RSI: last, Candles: candles}, nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	run.finish(skips)
	report := &RSIReport{Run: run, Period: rc.Period, Lower: rc.Lower, Upper: rc.Upper,
		InRange: []RSIReading{}, Below: []RSIReading{}, Above: []RSIReading{}}
	for _, r := range readings {
		switch {
		case r.RSI < rc.Lower:
			report.Below = append(report.Below, r)
		case r.RSI > rc.Upper:
			report.Above = append(report.Above, r)
		default:
			report.InRange = append(report.InRange, r)
		}
	}
	sort.SliceStable(report.InRange, func(i, j int) bool { return report.InRange[i].RSI < report.InRange[j].RSI })
	sort.SliceStable(report.Below, func(i, j int) bool { return report.Below[i].RSI < report.Below[j].RSI })
	sort.SliceStable(report.Above, func(i, j int) bool { return report.Above[i].RSI > report.Above[j].RSI })
	return report, err
}
