package csvfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"divscan/internal/market"
)

func TestReadMixedTimeFormats(t *testing.T) {
	data := "time,open,high,low,close,volume\n" +
		"2024-01-02T00:00:00Z,2,3,1,2.5,100\n" +
		"1704067200000,1,2,0.5,1.5,\n" +
		"2024-01-02 00:00:00,9,9,9,9,9\n"
	got, err := Read(strings.NewReader(data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("duplicate timestamps should collapse, got %d bars", len(got))
	}
	if got[0].OpenTime != 1704067200000 || got[0].Close != 1.5 || got[0].Volume != 0 {
		t.Fatalf("unexpected first bar %+v", got[0])
	}
	if got[1].Close != 9 {
		t.Fatalf("last duplicate should win, got %+v", got[1])
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("time,open,high,close\n1,1,1,1\n")); err == nil {
		t.Fatalf("missing low column should fail")
	}
	if _, err := Read(strings.NewReader("time,open,high,low,close\nyesterday,1,1,1,1\n")); err == nil {
		t.Fatalf("bad time should fail")
	}
	if _, err := Read(strings.NewReader("time,open,high,low,close\n1,x,1,1,1\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("bad price should report the line, got %v", err)
	}
}

func TestFetchHistory(t *testing.T) {
	dir := t.TempDir()
	content := "time,open,high,low,close\n1,1,1,1,1\n2,2,2,2,2\n3,3,3,3,3\n"
	if err := os.WriteFile(filepath.Join(dir, "BTCUSDT_H4.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	src := New(dir)
	got, err := src.FetchHistory(context.Background(), "btcusdt", "4h", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].OpenTime != 2 {
		t.Fatalf("expected last two bars, got %+v", got)
	}
	if _, err := src.FetchHistory(context.Background(), "ETHUSDT", "D1", 10); !errors.Is(err, market.ErrNoData) {
		t.Fatalf("missing file should be ErrNoData, got %v", err)
	}
}

func TestPath(t *testing.T) {
	src := New("data")
	for in, want := range map[string]string{"H4": "BTC_H4.csv", "1d": "BTC_D1.csv", "h1": "BTC_H1.csv"} {
		if got := filepath.Base(src.Path("btc", in)); got != want {
			t.Fatalf("Path(%q)=%s want %s", in, got, want)
		}
	}
}
