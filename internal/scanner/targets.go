package scanner

import (
	"fmt"
	"strings"

	"divscan/internal/config/writer"
)

// Target is one symbol of one market group.
type Target struct {
	Market string             `json:"market"`
	Entry  writer.MarketEntry `json:"entry"`
}

func (t Target) Symbol() string { return t.Entry.Symbol }

// Targets flattens the selected groups in file order. No selection means
// every group. Entries without a symbol are dropped.
func Targets(doc *writer.MarketsYAML, markets []string) ([]Target, error) {
	names := doc.Markets.Names
	if len(markets) > 0 {
		names = names[:0:0]
		for _, m := range markets {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			if _, ok := doc.Markets.Get(m); !ok {
				return nil, fmt.Errorf("unknown market %q", m)
			}
			names = append(names, m)
		}
	}
	var out []Target
	for _, name := range names {
		entries, _ := doc.Markets.Get(name)
		for _, e := range entries {
			if strings.TrimSpace(e.Symbol) == "" {
				continue
			}
			out = append(out, Target{Market: name, Entry: e})
		}
	}
	return out, nil
}
