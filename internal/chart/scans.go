package chart

import (
	"fmt"

	"divscan/internal/analysis/divergence"
	"divscan/internal/analysis/indicator"
	"divscan/internal/market"
	"divscan/internal/scanner"
)

const colorChannel = "#FFA500"

// Bounds are the RSI threshold lines drawn on the momentum pane.
type Bounds struct {
	Lower, Upper float64
}

// ForDivergence charts one analysed symbol with its recent pairs.
func ForDivergence(h scanner.DivergenceHit, tf string, b Bounds) Options {
	return Options{
		Title:    Title(h.Entry.DisplayName(), h.Symbol(), h.Market, tf),
		Subtitle: fmt.Sprintf("%d bullish / %d bearish in last %d bars", len(h.Bullish), len(h.Bearish), h.WindowBars),
		Series:   h.Result.Series,
		Bullish:  h.Bullish,
		Bearish:  h.Bearish,
		RSILower: b.Lower,
		RSIUpper: b.Upper,
	}
}

// ForSMAPullback draws both SMAs over the divergence chart of the hit.
func ForSMAPullback(h scanner.SMAPullback, long, short int, tf string, b Bounds) Options {
	closes := market.Closes(h.Candles)
	return Options{
		Title:    Title(h.Entry.DisplayName(), h.Symbol(), h.Market, tf),
		Subtitle: fmt.Sprintf("SMA%d pullback above SMA%d", short, long),
		Series:   h.Divergence.Series,
		Bullish:  h.Divergence.Bullish,
		Bearish:  h.Divergence.Bearish,
		Overlays: []Overlay{
			{Name: fmt.Sprintf("SMA%d", long), Values: indicator.SMA(closes, long)},
			{Name: fmt.Sprintf("SMA%d", short), Values: indicator.SMA(closes, short)},
		},
		RSILower:  b.Lower,
		RSIUpper:  b.Upper,
		HideTrend: true,
	}
}

// ForRSIReading charts an RSI outlier with the scanner's own period and
// thresholds in the momentum pane. No pivots or pairs are drawn.
func ForRSIReading(r scanner.RSIReading, rep *scanner.RSIReport, mode indicator.Smoothing, tf string) Options {
	s := divergence.NewSeries(r.Candles)
	s.Momentum = indicator.RSI(s.Close, rep.Period, mode)
	s.MomentumCentered = indicator.Centered(s.Momentum)
	cmp, bound := ">", rep.Upper
	if r.RSI < rep.Lower {
		cmp, bound = "<", rep.Lower
	}
	return Options{
		Title:     Title(r.Entry.DisplayName(), r.Symbol(), r.Market, tf),
		Subtitle:  fmt.Sprintf("RSI(%d) %.2f %s %g", rep.Period, r.RSI, cmp, bound),
		Series:    s,
		RSILower:  rep.Lower,
		RSIUpper:  rep.Upper,
		HideTrend: true,
	}
}

// ForDonchian charts the SMA, the channel bands and the signal bar. Setups
// are pinned at the touched band, watchlist entries at the close.
func ForDonchian(h scanner.DonchianHit, smaPeriod, period int, tf string) Options {
	s := divergence.NewSeries(h.Candles)
	ch := indicator.Donchian(s.High, s.Low, period)
	o := Options{
		Title:    Title(h.Entry.DisplayName(), h.Symbol(), h.Market, tf),
		Subtitle: fmt.Sprintf("%s, Donchian(%d), SMA%d", h.Signal, period, smaPeriod),
		Series:   s,
		Overlays: []Overlay{
			{Name: fmt.Sprintf("SMA%d", smaPeriod), Values: indicator.SMA(s.Close, smaPeriod), Color: colorTrend},
			{Name: "Donchian High", Values: ch.Upper, Color: colorChannel, Dashed: true},
			{Name: "Donchian Low", Values: ch.Lower, Color: colorChannel, Dashed: true},
		},
		HideTrend:    true,
		HideMomentum: true,
	}
	if last := s.Len() - 1; last >= 0 {
		mark := Mark{Index: last, Name: string(h.Signal), Price: h.Close, Color: colorTrend}
		switch h.Signal {
		case scanner.ShortSetup:
			mark.Price, mark.Color = h.ChannelHigh, colorDown
		case scanner.LongSetup:
			mark.Price, mark.Color = h.ChannelLow, colorUp
		}
		o.Marks = []Mark{mark}
	}
	return o
}
