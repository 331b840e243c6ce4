// Package gateway wires market data sources by name.
package gateway

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"divscan/internal/config"
	"divscan/internal/gateway/binance"
	"divscan/internal/gateway/csvfile"
	"divscan/internal/market"
)

// Registry resolves the source named by a market entry.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]market.Source
}

func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]market.Source)}
}

// Register adds src under its Name(), replacing any previous entry.
func (r *Registry) Register(src market.Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[strings.ToLower(src.Name())] = src
}

func (r *Registry) Get(name string) (market.Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown data source %q (have %s)", name, strings.Join(r.namesLocked(), ", "))
	}
	return src, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

func (r *Registry) namesLocked() []string {
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewFromConfig registers the binance and csv sources.
func NewFromConfig(cfg *config.Config) (*Registry, error) {
	bn, err := binance.New(binance.Config{
		RESTBaseURL: cfg.Binance.RESTBaseURL,
		APIKey:      cfg.Binance.APIKey,
		APISecret:   cfg.Binance.APISecret,
		HTTPTimeout: time.Duration(cfg.Binance.HTTPTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("binance source: %w", err)
	}
	reg := NewRegistry()
	reg.Register(bn)
	reg.Register(csvfile.New(cfg.CSV.Dir))
	return reg, nil
}
