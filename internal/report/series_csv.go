package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"divscan/internal/analysis/divergence"
	"divscan/internal/analysis/indicator"
)

// SeriesCSVOptions controls the time zone and price precision of data rows.
type SeriesCSVOptions struct {
	Location       *time.Location
	PricePrecision int
}

const (
	// PrecisionAuto picks the price precision from the series range.
	PrecisionAuto = math.MinInt32
	// PrecisionRaw keeps full precision (strconv.FormatFloat(..., -1, 64)).
	PrecisionRaw = -1
)

const seriesHeader = "time,open,high,low,close,rsi,rsi_centered,ema,up_fractal,down_fractal\n"

// BuildSeriesCSV renders the augmented series with a header row. Undefined
// indicator values are left empty.
func BuildSeriesCSV(s *divergence.Series, opts SeriesCSVOptions) string {
	if s.Len() == 0 {
		return ""
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	precision := opts.PricePrecision
	if precision == PrecisionAuto {
		precision = autoPrecision(s)
	}
	var b strings.Builder
	b.WriteString(seriesHeader)
	for i := 0; i < s.Len(); i++ {
		b.WriteString(time.UnixMilli(s.Time[i]).In(loc).Format(time.RFC3339))
		for _, v := range []float64{s.Open[i], s.High[i], s.Low[i], s.Close[i]} {
			b.WriteByte(',')
			b.WriteString(formatPrice(v, precision))
		}
		b.WriteByte(',')
		b.WriteString(formatIndicator(s.Momentum[i]))
		b.WriteByte(',')
		b.WriteString(formatIndicator(s.MomentumCentered[i]))
		b.WriteByte(',')
		b.WriteString(formatIndicator(s.Trend[i]))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(s.HighPivot[i]))
		b.WriteByte(',')
		b.WriteString(strconv.FormatBool(s.LowPivot[i]))
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteSeriesCSV writes BuildSeriesCSV output to path, creating parent dirs.
func WriteSeriesCSV(path string, s *divergence.Series, opts SeriesCSVOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(BuildSeriesCSV(s, opts)), 0o644); err != nil {
		return fmt.Errorf("write series csv: %w", err)
	}
	return nil
}

func autoPrecision(s *divergence.Series) int {
	maxVal := 0.0
	for i := 0; i < s.Len(); i++ {
		for _, v := range []float64{s.Open[i], s.High[i], s.Low[i], s.Close[i]} {
			if abs := math.Abs(v); abs > maxVal {
				maxVal = abs
			}
		}
	}
	switch {
	case maxVal >= 1000:
		return 1
	case maxVal >= 100:
		return 2
	default:
		return PrecisionRaw
	}
}

func formatPrice(value float64, precision int) string {
	if precision == PrecisionRaw {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	s := strconv.FormatFloat(value, 'f', precision, 64)
	if precision > 0 {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

func formatIndicator(v float64) string {
	if !indicator.IsDefined(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
