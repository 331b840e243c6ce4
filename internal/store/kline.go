package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"divscan/internal/market"
)

// KlineStore caches candle series per source, symbol and interval. The
// same symbol from two sources never shares bars.
type KlineStore interface {
	Put(ctx context.Context, source, symbol, interval string, ks []market.Candle, limit int) error
	Get(ctx context.Context, source, symbol, interval string) ([]market.Candle, error)
	Close() error
}

// SnapshotExporter returns the newest limit candles in ascending order.
type SnapshotExporter interface {
	Export(ctx context.Context, source, symbol, interval string, limit int) ([]market.Candle, error)
}

var errEmptyKey = errors.New("source/symbol/interval must not be empty")

func validKey(source, symbol, interval string) bool {
	return source != "" && symbol != "" && interval != ""
}

// Open builds the store selected by driver ("memory" or "sqlite").
func Open(driver, path string) (KlineStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemoryKlineStore(), nil
	case "sqlite":
		return OpenSQLiteKlineStore(path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// MemoryKlineStore keeps series in process memory.
type MemoryKlineStore struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
}

func NewMemoryKlineStore() *MemoryKlineStore {
	return &MemoryKlineStore{data: make(map[string][]market.Candle)}
}

func key(source, symbol, interval string) string {
	return strings.ToLower(source) + "/" + strings.ToUpper(symbol) + "@" + strings.ToLower(interval)
}

// Put merges ks into the stored series and trims it to the newest limit bars.
// A bar with an existing timestamp replaces the stored one.
func (s *MemoryKlineStore) Put(ctx context.Context, source, symbol, interval string, ks []market.Candle, limit int) error {
	if !validKey(source, symbol, interval) {
		return errEmptyKey
	}
	if len(ks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(source, symbol, interval)
	merged := make([]market.Candle, 0, len(s.data[k])+len(ks))
	merged = append(merged, s.data[k]...)
	merged = append(merged, ks...)
	cur := market.Normalize(merged)
	if len(cur) > limit {
		cur = cur[len(cur)-limit:]
	}
	s.data[k] = cur
	return nil
}

// Get returns a copy of the stored series.
func (s *MemoryKlineStore) Get(ctx context.Context, source, symbol, interval string) ([]market.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[key(source, symbol, interval)]
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// Export returns the newest limit candles in ascending order.
func (s *MemoryKlineStore) Export(ctx context.Context, source, symbol, interval string, limit int) ([]market.Candle, error) {
	if !validKey(source, symbol, interval) {
		return nil, errEmptyKey
	}
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[key(source, symbol, interval)]
	if len(cur) == 0 {
		return nil, nil
	}
	if limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out, nil
}

func (s *MemoryKlineStore) Close() error { return nil }
