package indicator

import (
	"math"
	"testing"
)

func TestEMAWarmupAndSeed(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5, 6}
	ema := EMA(closes, 3, SmoothingEWM)
	if !math.IsNaN(ema[0]) || !math.IsNaN(ema[1]) {
		t.Fatalf("expected NaN warm-up, got %v", ema[:2])
	}
	// k = 0.5 seeded with closes[0]: 1, 1.5, 2.25, 3.125, 4.0625, 5.03125
	for i, want := range []float64{2.25, 3.125, 4.0625, 5.03125} {
		if math.Abs(ema[i+2]-want) > 1e-12 {
			t.Fatalf("ema[%d] = %v, want %v", i+2, ema[i+2], want)
		}
	}
}

func TestEMAFirstDefinedValueSpan50(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = float64(i)
	}
	ema := EMA(closes, DefaultTrendSpan, SmoothingEWM)
	if !math.IsNaN(ema[48]) {
		t.Fatalf("ema[48] should be NaN, got %v", ema[48])
	}
	// closed form of close.ewm(span=50, adjust=False) on 0..n:
	// n - (1-k)/k * (1 - (1-k)^n)
	k := 2.0 / 51
	want := 49 - (1-k)/k*(1-math.Pow(1-k, 49))
	if math.Abs(ema[49]-want) > 1e-9 || math.Abs(ema[49]-27.950129344429) > 1e-9 {
		t.Fatalf("ema[49] = %v, want %v", ema[49], want)
	}
}

func TestEMATalibSeed(t *testing.T) {
	ema := EMA([]float64{1, 2, 3, 4, 5, 6}, 3, SmoothingTalib)
	if !math.IsNaN(ema[1]) {
		t.Fatalf("expected NaN warm-up, got %v", ema[1])
	}
	if math.Abs(ema[2]-2) > 1e-9 {
		t.Fatalf("seed = %v, want SMA 2", ema[2])
	}
	// k = 0.5: 3 -> 3, 4 -> 4, 5 -> 5
	if math.Abs(ema[5]-5) > 1e-9 {
		t.Fatalf("ema[5] = %v, want 5", ema[5])
	}
}

func TestEMAShortSeriesUndefined(t *testing.T) {
	for _, mode := range []Smoothing{SmoothingEWM, SmoothingTalib} {
		ema := EMA([]float64{1, 2}, 50, mode)
		if len(ema) != 2 || !math.IsNaN(ema[0]) || !math.IsNaN(ema[1]) {
			t.Fatalf("%s: unexpected %v", mode, ema)
		}
	}
}

func TestSMA(t *testing.T) {
	sma := SMA([]float64{2, 4, 6, 8}, 2)
	if !math.IsNaN(sma[0]) {
		t.Fatalf("sma[0] should be NaN")
	}
	for i, want := range []float64{3, 5, 7} {
		if math.Abs(sma[i+1]-want) > 1e-9 {
			t.Fatalf("sma[%d] = %v, want %v", i+1, sma[i+1], want)
		}
	}
}

func TestDonchian(t *testing.T) {
	highs := []float64{1, 5, 3, 2, 4}
	lows := []float64{0, 2, 1, 3, 2}
	ch := Donchian(highs, lows, 3)
	if !math.IsNaN(ch.Upper[1]) || !math.IsNaN(ch.Lower[1]) {
		t.Fatalf("expected warm-up NaN")
	}
	wantUp := []float64{5, 5, 4}
	wantLo := []float64{0, 1, 1}
	for i := 0; i < 3; i++ {
		if ch.Upper[i+2] != wantUp[i] || ch.Lower[i+2] != wantLo[i] {
			t.Fatalf("bar %d: got %v/%v want %v/%v", i+2, ch.Upper[i+2], ch.Lower[i+2], wantUp[i], wantLo[i])
		}
	}
}

func TestLastValid(t *testing.T) {
	v, ok := LastValid([]float64{1, 2, math.NaN()})
	if !ok || v != 2 {
		t.Fatalf("LastValid = %v %v", v, ok)
	}
	if _, ok := LastValid([]float64{math.NaN()}); ok {
		t.Fatalf("expected no valid value")
	}
}
