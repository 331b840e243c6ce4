package scanner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"divscan/internal/config"
	"divscan/internal/config/writer"
	"divscan/internal/market"
	"divscan/internal/store"
)

const h4 = int64(4 * 3600 * 1000)

// fakeSource serves fixed series per symbol and counts requests.
type fakeSource struct {
	name   string
	mu     sync.Mutex
	series map[string][]market.Candle
	fail   map[string]error
	calls  map[string]int
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, series: map[string][]market.Candle{}, fail: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	cs, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrNoData, symbol)
	}
	return market.Tail(cs, limit), nil
}

func (f *fakeSource) callCount(symbol string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[symbol]
}

type resolver map[string]market.Source

func (r resolver) Get(name string) (market.Source, error) {
	if src, ok := r[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("unknown data source %q", name)
}

func fromCloses(closes []float64) []market.Candle {
	out := make([]market.Candle, len(closes))
	for i, c := range closes {
		out[i] = market.Candle{OpenTime: int64(i) * h4, CloseTime: int64(i+1)*h4 - 1, Open: c, High: c + 0.5, Low: c - 0.5, Close: c}
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func walk(n int, seed int64) []market.Candle {
	rng := rand.New(rand.NewSource(seed))
	closes := make([]float64, n)
	p := 100.0
	for i := range closes {
		p += rng.NormFloat64() * 2
		closes[i] = math.Max(p, 1)
	}
	return fromCloses(closes)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Settings.RequestDelayMS = 0
	cfg.Settings.Concurrency = 3
	cfg.Settings.DefaultSource = "fake"
	return cfg
}

func newTestScanner(t *testing.T, cfg config.Config, src *fakeSource) *Scanner {
	t.Helper()
	loader := NewLoader(resolver{src.Name(): src}, store.NewMemoryKlineStore(), cfg.Settings.DefaultSource, cfg.Store.MaxBars)
	s, err := New(cfg, loader)
	if err != nil {
		t.Fatalf("scanner: %v", err)
	}
	return s
}

func targetsOf(symbols ...string) []Target {
	out := make([]Target, len(symbols))
	for i, s := range symbols {
		out[i] = Target{Market: "TEST", Entry: writer.MarketEntry{Symbol: s, Name: s + " Inc"}}
	}
	return out
}

func mustTimeframe(t *testing.T, name string) market.Timeframe {
	t.Helper()
	tf, err := market.ParseTimeframe(name)
	if err != nil {
		t.Fatal(err)
	}
	return tf
}
