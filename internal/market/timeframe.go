package market

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnsupportedTimeframe = errors.New("unsupported timeframe")

// Timeframe describes a chart resolution the scanners understand.
type Timeframe struct {
	Name         string
	Interval     string
	Hours        int
	LookbackDays int
}

var timeframes = map[string]Timeframe{
	"H1": {Name: "H1", Interval: "1h", Hours: 1, LookbackDays: 60},
	"H4": {Name: "H4", Interval: "4h", Hours: 4, LookbackDays: 150},
	"D1": {Name: "D1", Interval: "1d", Hours: 24, LookbackDays: 335},
}

// DefaultTimeframeChoices are always offered, in this order.
var DefaultTimeframeChoices = []string{"H4", "D1"}

// ParseTimeframe accepts H1/H4/D1 in any case.
func ParseTimeframe(name string) (Timeframe, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	tf, ok := timeframes[key]
	if !ok {
		return Timeframe{}, fmt.Errorf("%w: %q", ErrUnsupportedTimeframe, name)
	}
	return tf, nil
}

// Bars returns how many bars cover the history window, never less than lookback.
func (tf Timeframe) Bars(lookback int) int {
	perDay := 24 / tf.Hours
	if perDay < 1 {
		perDay = 1
	}
	bars := tf.LookbackDays * perDay
	if lookback > bars {
		bars = lookback
	}
	return bars
}

func (tf Timeframe) Duration() time.Duration {
	return time.Duration(tf.Hours) * time.Hour
}

// TimeframeChoices merges the defaults with configured choices and the
// configured default timeframe, upper-cased and de-duplicated.
func TimeframeChoices(configured []string, fallback string) []string {
	choices := make([]string, 0, len(configured)+1)
	for _, c := range configured {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			choices = append(choices, c)
		}
	}
	if len(choices) == 0 {
		choices = append(choices, DefaultTimeframeChoices...)
	}
	if fb := strings.ToUpper(strings.TrimSpace(fallback)); fb != "" {
		choices = append(choices, fb)
	}
	seen := make(map[string]struct{}, len(choices))
	out := make([]string, 0, len(choices))
	for _, c := range append(append([]string{}, DefaultTimeframeChoices...), choices...) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
