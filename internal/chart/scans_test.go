package chart

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"divscan/internal/analysis/indicator"
	"divscan/internal/config/writer"
	"divscan/internal/market"
	"divscan/internal/scanner"
)

func zigzag(n int) []market.Candle {
	out := make([]market.Candle, n)
	for i := range out {
		p := 100 + float64(i%9) - float64(i%4)*0.5
		out[i] = market.Candle{OpenTime: int64(i) * 3600_000, Open: p, High: p + 1, Low: p - 1, Close: p + 0.25}
	}
	return out
}

func TestForDonchianDrawsChannelAndSignal(t *testing.T) {
	bars := zigzag(60)
	h := scanner.DonchianHit{
		Target:      scanner.Target{Market: "CRYPTO", Entry: writer.MarketEntry{Symbol: "ETHUSDT"}},
		Signal:      scanner.ShortSetup,
		Close:       bars[59].Close,
		ChannelHigh: 109,
		ChannelLow:  98,
		Candles:     bars,
	}
	o := ForDonchian(h, 20, 10, "H4")
	if len(o.Overlays) != 3 {
		t.Fatalf("overlays = %d, want SMA plus both bands", len(o.Overlays))
	}
	upper := o.Overlays[1]
	if upper.Name != "Donchian High" || !upper.Dashed || upper.Color != colorChannel {
		t.Fatalf("upper band = %+v", upper)
	}
	if !math.IsNaN(upper.Values[8]) || math.IsNaN(upper.Values[9]) {
		t.Fatalf("band warmup wrong: %v %v", upper.Values[8], upper.Values[9])
	}
	if !o.HideMomentum || !o.HideTrend {
		t.Fatalf("donchian chart should carry neither RSI pane nor trend EMA")
	}
	if len(o.Marks) != 1 {
		t.Fatalf("marks = %v", o.Marks)
	}
	m := o.Marks[0]
	if m.Index != 59 || m.Price != h.ChannelHigh || m.Color != colorDown || m.Name != "SHORT-Setup" {
		t.Fatalf("mark = %+v", m)
	}

	h.Signal = scanner.LongWatchlist
	if m := ForDonchian(h, 20, 10, "H4").Marks[0]; m.Price != h.Close {
		t.Fatalf("watchlist mark should sit at the close, got %v", m.Price)
	}
}

func TestRenderDonchianWithoutMomentumPane(t *testing.T) {
	bars := zigzag(60)
	h := scanner.DonchianHit{
		Target:      scanner.Target{Entry: writer.MarketEntry{Symbol: "ETHUSDT"}},
		Signal:      scanner.LongSetup,
		Close:       bars[59].Close,
		ChannelHigh: 109,
		ChannelLow:  98,
		Candles:     bars,
	}
	var buf bytes.Buffer
	if err := Render(&buf, ForDonchian(h, 20, 10, "D1")); err != nil {
		t.Fatalf("render: %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Donchian High", "Donchian Low", "SMA20", "LONG-Setup", "pin"} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
	if strings.Contains(html, "RSI - 50") {
		t.Fatalf("momentum pane rendered for a donchian chart")
	}
}

func TestForRSIReadingUsesScannerPeriod(t *testing.T) {
	bars := zigzag(80)
	rep := &scanner.RSIReport{Period: 6, Lower: 30, Upper: 70}
	r := scanner.RSIReading{
		Target:  scanner.Target{Entry: writer.MarketEntry{Symbol: "SOLUSDT", Name: "Solana"}},
		RSI:     21.5,
		Candles: bars,
	}
	o := ForRSIReading(r, rep, indicator.SmoothingEWM, "H1")
	s := o.Series
	if !math.IsNaN(s.Momentum[5]) || math.IsNaN(s.Momentum[6]) {
		t.Fatalf("RSI(6) warmup wrong: %v %v", s.Momentum[5], s.Momentum[6])
	}
	if got := s.MomentumCentered[40]; math.Abs(got-(s.Momentum[40]-50)) > 1e-12 {
		t.Fatalf("centered = %v, momentum = %v", got, s.Momentum[40])
	}
	if !strings.Contains(o.Subtitle, "RSI(6) 21.50 < 30") {
		t.Fatalf("subtitle = %q", o.Subtitle)
	}
	if o.RSILower != 30 || o.RSIUpper != 70 || len(o.Bullish)+len(o.Bearish) != 0 {
		t.Fatalf("options = %+v", o)
	}

	r.RSI = 81
	if sub := ForRSIReading(r, rep, indicator.SmoothingEWM, "H1").Subtitle; !strings.Contains(sub, "> 70") {
		t.Fatalf("subtitle = %q", sub)
	}
}
