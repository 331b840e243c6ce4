package binance

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/spf13/cast"

	"divscan/internal/logger"
	"divscan/internal/market"
)

const maxHistoryLimit = 1500

// Source implements market.Source over the USDⓈ-M futures REST klines endpoint.
type Source struct {
	cfg    Config
	client *futures.Client
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = strings.TrimRight(final.RESTBaseURL, "/")
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Source{cfg: final, client: client}, nil
}

func (s *Source) Name() string { return "binance" }

// FetchHistory returns the newest limit candles in ascending order. Requests
// above the exchange cap of 1500 bars are paged backwards by end time.
func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}

	var pages [][]market.Candle
	remaining := limit
	var endTime int64
	for remaining > 0 {
		batch := remaining
		if batch > maxHistoryLimit {
			batch = maxHistoryLimit
		}
		svc := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(batch)
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}
		logger.Debugf("[binance] klines %s %s limit=%d end=%d", symbol, interval, batch, endTime)
		raw, err := svc.Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
		}
		page, err := convertKlines(raw)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
		}
		if len(page) == 0 {
			break
		}
		pages = append(pages, page)
		remaining -= len(page)
		if len(page) < batch {
			break
		}
		endTime = page[0].OpenTime - 1
	}

	out := make([]market.Candle, 0, limit)
	for i := len(pages) - 1; i >= 0; i-- {
		out = append(out, pages[i]...)
	}
	if len(out) == 0 {
		return nil, market.ErrNoData
	}
	return market.Normalize(out), nil
}

// convertKlines rejects the page when any price or volume does not parse;
// a zero price would otherwise pass as a real low.
func convertKlines(raw []*futures.Kline) ([]market.Candle, error) {
	out := make([]market.Candle, 0, len(raw))
	for _, k := range raw {
		if k == nil {
			continue
		}
		c := market.Candle{OpenTime: k.OpenTime, CloseTime: k.CloseTime, Trades: k.TradeNum}
		for _, f := range []struct {
			name string
			raw  string
			dst  *float64
		}{
			{"open", k.Open, &c.Open},
			{"high", k.High, &c.High},
			{"low", k.Low, &c.Low},
			{"close", k.Close, &c.Close},
			{"volume", k.Volume, &c.Volume},
		} {
			v, err := cast.ToFloat64E(f.raw)
			if err != nil {
				return nil, fmt.Errorf("kline %d %s %q: %w", k.OpenTime, f.name, f.raw, err)
			}
			*f.dst = v
		}
		out = append(out, c)
	}
	return out, nil
}
