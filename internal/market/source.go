package market

import (
	"context"
	"errors"
)

// ErrNoData is returned by sources that answered successfully but had no bars.
var ErrNoData = errors.New("no candles returned")

// Candle is a single OHLCV bar. OpenTime is the bar timestamp (unix ms).
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume,omitempty"`
	Trades    int64   `json:"trades,omitempty"`
}

// Source is a provider of candle history.
type Source interface {
	// FetchHistory returns the newest limit candles in ascending order.
	FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	// Name identifies the source in config and logs ("binance", "csv").
	Name() string
}

// Closes extracts the close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts the high prices.
func Highs(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts the low prices.
func Lows(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// SymbolInfo describes a tradable instrument listed by a source.
type SymbolInfo struct {
	Symbol       string `json:"symbol"`
	BaseAsset    string `json:"base_asset"`
	QuoteAsset   string `json:"quote_asset"`
	ContractType string `json:"contract_type"`
	Status       string `json:"status"`
}
