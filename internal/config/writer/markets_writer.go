package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"divscan/internal/market"
)

// MarketsYAML is the layout of markets.yaml.
type MarketsYAML struct {
	Markets Groups `yaml:"markets"`
}

// MarketEntry is one instrument inside a market group.
type MarketEntry struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	Name   string `yaml:"name,omitempty" json:"name,omitempty"`
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
}

// DisplayName falls back to the symbol when no name is set.
func (e MarketEntry) DisplayName() string {
	if strings.TrimSpace(e.Name) != "" {
		return e.Name
	}
	return e.Symbol
}

// Groups keeps market groups in file order; yaml maps would sort them.
type Groups struct {
	Names   []string
	Entries map[string][]MarketEntry
}

func (g *Groups) Get(name string) ([]MarketEntry, bool) {
	if g == nil || g.Entries == nil {
		return nil, false
	}
	entries, ok := g.Entries[name]
	return entries, ok
}

// Set adds or replaces a group, appending new names at the end.
func (g *Groups) Set(name string, entries []MarketEntry) {
	if g.Entries == nil {
		g.Entries = make(map[string][]MarketEntry)
	}
	if _, ok := g.Entries[name]; !ok {
		g.Names = append(g.Names, name)
	}
	g.Entries[name] = entries
}

// Find returns the first group containing symbol (case-insensitive).
func (g *Groups) Find(symbol string) (string, MarketEntry, bool) {
	for _, name := range g.Names {
		for _, e := range g.Entries[name] {
			if strings.EqualFold(e.Symbol, symbol) {
				return name, e, true
			}
		}
	}
	return "", MarketEntry{}, false
}

func (g *Groups) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("markets: expected mapping, got line %d", node.Line)
	}
	g.Names = nil
	g.Entries = make(map[string][]MarketEntry, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var entries []MarketEntry
		if err := node.Content[i+1].Decode(&entries); err != nil {
			return fmt.Errorf("markets.%s: %w", name, err)
		}
		g.Set(name, entries)
	}
	return nil
}

func (g Groups) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range g.Names {
		val := &yaml.Node{}
		if err := val.Encode(g.Entries[name]); err != nil {
			return nil, err
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: name}, val)
	}
	return out, nil
}

// MarketsWriter handles reading and writing markets.yaml
type MarketsWriter struct {
	path string
	mu   sync.RWMutex
}

func NewMarketsWriter(path string) *MarketsWriter {
	return &MarketsWriter{path: path}
}

func (w *MarketsWriter) Path() string { return w.path }

// Read reads the current markets file.
func (w *MarketsWriter) Read() (*MarketsYAML, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("read markets file: %w", err)
	}
	var doc MarketsYAML
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse markets file %s: %w", w.path, err)
	}
	if doc.Markets.Entries == nil {
		return nil, fmt.Errorf("%s has no markets section", w.path)
	}
	return &doc, nil
}

// Write replaces the file atomically, keeping a timestamped backup of
// the previous version.
func (w *MarketsWriter) Write(doc *MarketsYAML) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.backup(); err != nil {
		return fmt.Errorf("backup markets file: %w", err)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode markets: %w", err)
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmpPath := w.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace markets file: %w", err)
	}
	return nil
}

func (w *MarketsWriter) backup() error {
	src, err := os.Open(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	backupDir := filepath.Join(filepath.Dir(w.path), "backups")
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(w.path), filepath.Ext(w.path))
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s_%s.yaml", base, time.Now().Format("20060102_150405")))
	dst, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	cleanOldBackups(backupDir, base+"_", 10)
	return nil
}

func cleanOldBackups(dir, prefix string, keep int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	var backups []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), prefix) && strings.HasSuffix(e.Name(), ".yaml") {
			backups = append(backups, filepath.Join(dir, e.Name()))
		}
	}
	// ReadDir returns names sorted, and the timestamp suffix sorts by age.
	for i := 0; i < len(backups)-keep; i++ {
		os.Remove(backups[i])
	}
}

// SortMarkets orders every group by name (case-insensitive) and drops
// entries without a symbol or with a symbol already seen in that group.
func SortMarkets(doc *MarketsYAML) *MarketsYAML {
	out := &MarketsYAML{}
	for _, name := range doc.Markets.Names {
		entries := append([]MarketEntry(nil), doc.Markets.Entries[name]...)
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
		})
		seen := make(map[string]struct{}, len(entries))
		unique := make([]MarketEntry, 0, len(entries))
		for _, e := range entries {
			if e.Symbol == "" {
				continue
			}
			if _, dup := seen[e.Symbol]; dup {
				continue
			}
			seen[e.Symbol] = struct{}{}
			unique = append(unique, e)
		}
		out.Markets.Set(name, unique)
	}
	return out
}

// BuildBinanceMarkets groups trading perpetual contracts by quote asset
// (BINANCE_USDT_PERP, BINANCE_USDC_PERP, ...).
func BuildBinanceMarkets(symbols []market.SymbolInfo) *MarketsYAML {
	byGroup := make(map[string][]MarketEntry)
	for _, s := range symbols {
		if !strings.EqualFold(s.ContractType, "PERPETUAL") || !strings.EqualFold(s.Status, "TRADING") {
			continue
		}
		quote := strings.ToUpper(strings.TrimSpace(s.QuoteAsset))
		if quote == "" || s.Symbol == "" {
			continue
		}
		group := "BINANCE_" + quote + "_PERP"
		byGroup[group] = append(byGroup[group], MarketEntry{Symbol: s.Symbol, Name: s.BaseAsset, Source: "binance"})
	}
	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)
	out := &MarketsYAML{}
	for _, name := range names {
		entries := byGroup[name]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
		out.Markets.Set(name, entries)
	}
	return out
}
