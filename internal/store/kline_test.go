package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"divscan/internal/market"
)

func candles(times ...int64) []market.Candle {
	out := make([]market.Candle, len(times))
	for i, ts := range times {
		out[i] = market.Candle{OpenTime: ts, CloseTime: ts + 59, Open: 1, High: 2, Low: 0.5, Close: float64(ts), Volume: 10, Trades: 3}
	}
	return out
}

func openTimes(cs []market.Candle) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.OpenTime
	}
	return out
}

func equalTimes(a []int64, b ...int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type exportingStore interface {
	KlineStore
	SnapshotExporter
}

func storeContract(t *testing.T, s exportingStore) {
	t.Helper()
	ctx := context.Background()
	if err := s.Put(ctx, "binance", "", "4h", candles(1), 10); err == nil {
		t.Fatalf("empty symbol should be rejected")
	}
	if err := s.Put(ctx, "", "BTCUSDT", "4h", candles(1), 10); err == nil {
		t.Fatalf("empty source should be rejected")
	}
	if err := s.Put(ctx, "Binance", "btcusdt", "4H", candles(3, 1, 2), 10); err != nil {
		t.Fatalf("put: %v", err)
	}
	update := candles(3, 4)
	update[0].Close = 99
	if err := s.Put(ctx, "binance", "BTCUSDT", "4h", update, 3); err != nil {
		t.Fatalf("put update: %v", err)
	}
	got, err := s.Get(ctx, "binance", "BTCUSDT", "4h")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !equalTimes(openTimes(got), 2, 3, 4) {
		t.Fatalf("expected trimmed ascending series, got %v", openTimes(got))
	}
	if got[1].Close != 99 || got[1].Trades != 3 || got[1].CloseTime != 62 {
		t.Fatalf("existing bar should be replaced: %+v", got[1])
	}
	tail, err := s.Export(ctx, "binance", "BTCUSDT", "4h", 2)
	if err != nil || !equalTimes(openTimes(tail), 3, 4) {
		t.Fatalf("export: %v %v", openTimes(tail), err)
	}
	other, _ := s.Get(ctx, "binance", "BTCUSDT", "1d")
	if len(other) != 0 {
		t.Fatalf("intervals must not share data")
	}

	fromCSV := candles(4)
	fromCSV[0].Close = 400
	if err := s.Put(ctx, "csv", "BTCUSDT", "4h", fromCSV, 10); err != nil {
		t.Fatalf("put csv: %v", err)
	}
	csvBars, _ := s.Get(ctx, "csv", "BTCUSDT", "4h")
	if len(csvBars) != 1 || csvBars[0].Close != 400 {
		t.Fatalf("csv series should hold only its own bar, got %+v", csvBars)
	}
	binanceBars, _ := s.Get(ctx, "binance", "BTCUSDT", "4h")
	if len(binanceBars) != 3 || binanceBars[2].Close != 4 {
		t.Fatalf("sources must not share data, got %+v", binanceBars)
	}
}

func TestMemoryKlineStore(t *testing.T) {
	storeContract(t, NewMemoryKlineStore())
}

func TestSQLiteKlineStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "klines.db")
	s, err := OpenSQLiteKlineStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	storeContract(t, s)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenSQLiteKlineStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "binance", "BTCUSDT", "4h")
	if err != nil || len(got) != 3 {
		t.Fatalf("data should persist across opens: %d %v", len(got), err)
	}
}

func TestSQLiteDropsCacheWithoutSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klines.db")
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw: %v", err)
	}
	db.MustExec(`CREATE TABLE klines (symbol TEXT, interval TEXT, open_time INTEGER, PRIMARY KEY (symbol, interval, open_time))`)
	db.MustExec(`INSERT INTO klines (symbol, interval, open_time) VALUES ('BTCUSDT', '4h', 1)`)
	db.Close()

	s, err := OpenSQLiteKlineStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.Put(context.Background(), "binance", "BTCUSDT", "4h", candles(1, 2), 10); err != nil {
		t.Fatalf("put after migration: %v", err)
	}
	got, err := s.Get(context.Background(), "binance", "BTCUSDT", "4h")
	if err != nil || len(got) != 2 {
		t.Fatalf("get after migration: %d %v", len(got), err)
	}
}

func TestOpenDriver(t *testing.T) {
	if _, err := Open("postgres", ""); err == nil {
		t.Fatalf("unknown driver should fail")
	}
	s, err := Open("", "")
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	if _, ok := s.(*MemoryKlineStore); !ok {
		t.Fatalf("default should be memory, got %T", s)
	}
}
