package scanner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"divscan/internal/config/writer"
	"divscan/internal/logger"
	"divscan/internal/market"
	"divscan/internal/store"
)

// SourceResolver maps a source name to a market.Source.
type SourceResolver interface {
	Get(name string) (market.Source, error)
}

// Loader fetches candle history for market entries, serving from the
// store while the newest cached bar is still the current one.
type Loader struct {
	sources       SourceResolver
	store         store.KlineStore
	defaultSource string
	storeMax      int
	now           func() time.Time
}

func NewLoader(sources SourceResolver, st store.KlineStore, defaultSource string, storeMax int) *Loader {
	return &Loader{
		sources:       sources,
		store:         st,
		defaultSource: defaultSource,
		storeMax:      storeMax,
		now:           time.Now,
	}
}

// SourceFor returns the source name used for entry.
func (l *Loader) SourceFor(entry writer.MarketEntry) string {
	if s := strings.TrimSpace(entry.Source); s != "" {
		return strings.ToLower(s)
	}
	return l.defaultSource
}

// Load returns up to tf.Bars(lookback) candles for entry, ascending and
// free of duplicate timestamps.
func (l *Loader) Load(ctx context.Context, entry writer.MarketEntry, tf market.Timeframe, lookback int) ([]market.Candle, error) {
	symbol := strings.TrimSpace(entry.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("market entry without symbol")
	}
	bars := tf.Bars(lookback)
	name := l.SourceFor(entry)
	if cached := l.cached(ctx, name, symbol, tf, bars); cached != nil {
		logger.Debugf("[loader] %s %s served from store via %s (%d bars)", symbol, tf.Name, name, len(cached))
		return cached, nil
	}

	src, err := l.sources.Get(name)
	if err != nil {
		return nil, err
	}
	candles, err := src.FetchHistory(ctx, symbol, tf.Interval, bars)
	if err != nil {
		return nil, fmt.Errorf("%s %s via %s: %w", symbol, tf.Name, name, err)
	}
	candles = market.Normalize(candles)
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s %s via %s: %w", symbol, tf.Name, name, market.ErrNoData)
	}
	if gaps := market.FindGaps(candles, tf.Duration()); len(gaps) > 0 {
		logger.Warnf("[loader] %s %s via %s has %d missing bars in %d gaps", symbol, tf.Name, name, market.Missing(gaps), len(gaps))
	}
	if l.store != nil {
		if err := l.store.Put(ctx, name, symbol, tf.Interval, candles, max(l.storeMax, bars)); err != nil {
			logger.Warnf("[loader] cache %s %s failed: %v", symbol, tf.Name, err)
		}
	}
	return market.Tail(candles, bars), nil
}

func (l *Loader) cached(ctx context.Context, source, symbol string, tf market.Timeframe, bars int) []market.Candle {
	if l.store == nil {
		return nil
	}
	candles, err := l.store.Get(ctx, source, symbol, tf.Interval)
	if err != nil {
		logger.Warnf("[loader] read cache %s %s: %v", symbol, tf.Name, err)
		return nil
	}
	if len(candles) < bars {
		return nil
	}
	last := time.UnixMilli(candles[len(candles)-1].OpenTime)
	if !l.now().Before(last.Add(tf.Duration())) {
		return nil
	}
	return market.Tail(candles, bars)
}
