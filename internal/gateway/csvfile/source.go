// Package csvfile serves candles from local CSV exports, one file per
// symbol and timeframe.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cast"

	"divscan/internal/market"
)

// Source reads <Dir>/<SYMBOL>_<TF>.csv with a header row containing at
// least time, open, high, low and close. time is unix milliseconds or
// RFC3339; volume is optional.
type Source struct {
	Dir string
}

func New(dir string) *Source { return &Source{Dir: dir} }

func (s *Source) Name() string { return "csv" }

// Path returns the file consulted for symbol and interval. The interval
// may be an exchange interval ("4h") or a timeframe name ("H4").
func (s *Source) Path(symbol, interval string) string {
	tf := strings.ToUpper(strings.TrimSpace(interval))
	if parsed, err := market.ParseTimeframe(tf); err == nil {
		tf = parsed.Name
	} else if mapped, ok := intervalNames[strings.ToLower(tf)]; ok {
		tf = mapped
	}
	name := fmt.Sprintf("%s_%s.csv", strings.ToUpper(strings.TrimSpace(symbol)), tf)
	return filepath.Join(s.Dir, name)
}

var intervalNames = map[string]string{"1h": "H1", "4h": "H4", "1d": "D1"}

func (s *Source) FetchHistory(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.Path(symbol, interval)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", market.ErrNoData, path)
		}
		return nil, err
	}
	defer f.Close()
	candles, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s", market.ErrNoData, path)
	}
	return market.Tail(candles, limit), nil
}

// Read parses a candle CSV and returns the bars sorted by time.
func Read(r io.Reader) ([]market.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}
	var out []market.Candle
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		c, err := parseRecord(rec, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
	return market.Normalize(out), nil
}

func parseRecord(rec []string, cols map[string]int) (market.Candle, error) {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[idx])
	}
	ts, err := parseTime(field("time"))
	if err != nil {
		return market.Candle{}, err
	}
	var c market.Candle
	c.OpenTime = ts
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"open", &c.Open}, {"high", &c.High}, {"low", &c.Low}, {"close", &c.Close}} {
		v, err := cast.ToFloat64E(field(f.name))
		if err != nil {
			return market.Candle{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	if raw := field("volume"); raw != "" {
		c.Volume = cast.ToFloat64(raw)
	}
	return c, nil
}

func parseTime(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty time")
	}
	if ms, err := cast.ToInt64E(raw); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognised time %q", raw)
}
