package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/adshao/go-binance/v2/futures"

	"divscan/internal/market"
)

const barMillis = 60_000

// fakeKlines serves total one-minute bars and honours limit/endTime the
// way the exchange does.
func fakeKlines(t *testing.T, total int64, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fapi/v1/klines" {
			http.NotFound(w, r)
			return
		}
		*requests++
		q := r.URL.Query()
		limit, _ := strconv.ParseInt(q.Get("limit"), 10, 64)
		last := total - 1
		if end := q.Get("endTime"); end != "" {
			e, _ := strconv.ParseInt(end, 10, 64)
			last = e / barMillis
		}
		first := last - limit + 1
		if first < 0 {
			first = 0
		}
		rows := make([][]any, 0, limit)
		for k := first; k <= last; k++ {
			open := k * barMillis
			price := fmt.Sprintf("%d.5", k)
			rows = append(rows, []any{open, price, price, price, price, "10.0", open + barMillis - 1, "1.0", 7, "1.0", "1.0", "0"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
}

func TestFetchHistoryPagesBackwards(t *testing.T) {
	var requests int
	srv := fakeKlines(t, 3000, &requests)
	defer srv.Close()

	src, _ := New(Config{RESTBaseURL: srv.URL})
	got, err := src.FetchHistory(context.Background(), " btcusdt ", "4H", 2000)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
	if len(got) != 2000 {
		t.Fatalf("expected 2000 bars, got %d", len(got))
	}
	if got[0].OpenTime != 1000*barMillis || got[len(got)-1].OpenTime != 2999*barMillis {
		t.Fatalf("unexpected range %d..%d", got[0].OpenTime, got[len(got)-1].OpenTime)
	}
	for i := 1; i < len(got); i++ {
		if got[i].OpenTime-got[i-1].OpenTime != barMillis {
			t.Fatalf("gap at %d", i)
		}
	}
	if got[0].Close != 1000.5 || got[0].Trades != 7 || got[0].Volume != 10 {
		t.Fatalf("fields not parsed: %+v", got[0])
	}
}

func TestFetchHistoryShortSeries(t *testing.T) {
	var requests int
	srv := fakeKlines(t, 40, &requests)
	defer srv.Close()

	src, _ := New(Config{RESTBaseURL: srv.URL})
	got, err := src.FetchHistory(context.Background(), "ETHUSDT", "1d", 100)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 40 || requests != 1 {
		t.Fatalf("expected one request returning 40 bars, got %d bars in %d requests", len(got), requests)
	}
}

func TestFetchHistoryValidation(t *testing.T) {
	src, _ := New(Config{RESTBaseURL: "http://127.0.0.1:1"})
	if _, err := src.FetchHistory(context.Background(), "", "4h", 10); err == nil {
		t.Fatalf("empty symbol should fail")
	}
	if _, err := src.FetchHistory(context.Background(), "BTCUSDT", " ", 10); err == nil {
		t.Fatalf("empty interval should fail")
	}
}

func TestFetchHistoryNoData(t *testing.T) {
	var requests int
	srv := fakeKlines(t, 0, &requests)
	defer srv.Close()
	src, _ := New(Config{RESTBaseURL: srv.URL})
	_, err := src.FetchHistory(context.Background(), "BTCUSDT", "4h", 10)
	if !errors.Is(err, market.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestConvertKlinesRejectsMalformedPrice(t *testing.T) {
	good := &futures.Kline{OpenTime: 0, CloseTime: 59_999, Open: "1.5", High: "2", Low: "1", Close: "1.75", Volume: "10", TradeNum: 4}
	bad := &futures.Kline{OpenTime: 60_000, CloseTime: 119_999, Open: "1.5", High: "2", Low: "n/a", Close: "1.75", Volume: "10"}

	got, err := convertKlines([]*futures.Kline{good, nil})
	if err != nil || len(got) != 1 {
		t.Fatalf("valid page: %v %v", got, err)
	}
	if got[0].Low != 1 || got[0].Close != 1.75 || got[0].Trades != 4 {
		t.Fatalf("converted %+v", got[0])
	}
	if _, err := convertKlines([]*futures.Kline{good, bad}); err == nil {
		t.Fatal("malformed low should fail the page instead of becoming 0")
	}
}

func TestFetchHistoryMalformedPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([][]any{{0, "1", "x", "1", "1", "1", 59_999, "1", 1, "1", "1", "0"}})
	}))
	defer srv.Close()
	src, err := New(Config{RESTBaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.FetchHistory(context.Background(), "BTCUSDT", "1m", 10); err == nil {
		t.Fatal("expected parse error")
	}
}
