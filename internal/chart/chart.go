// Package chart renders detection results as standalone echarts pages.
package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"divscan/internal/analysis/divergence"
	"divscan/internal/analysis/indicator"
)

const (
	colorUp      = "#00B050"
	colorDown    = "#FF0000"
	colorBullish = "green"
	colorBearish = "red"
	colorTrend   = "#1f77b4"
)

var overlayColors = []string{"#ff7f0e", "#2ca02c", "#d62728", "#9467bd"}

// Overlay is an extra price-pane line such as an SMA or a channel band.
type Overlay struct {
	Name   string
	Values []float64
	Color  string
	Dashed bool
}

// Mark pins a labelled point on the price pane, e.g. a setup's entry bar.
type Mark struct {
	Index int
	Name  string
	Price float64
	Color string
}

// Options describes one chart page.
type Options struct {
	Title     string
	Subtitle  string
	Series    *divergence.Series
	Bullish   []divergence.Pair
	Bearish   []divergence.Pair
	Overlays  []Overlay
	Marks     []Mark
	RSILower  float64
	RSIUpper  float64
	HideTrend bool
	// HideMomentum drops the RSI pane, for charts without a momentum column.
	HideMomentum bool
}

// Title builds "Name (SYMBOL) [MARKET | TF]" leaving out empty parts.
func Title(name, symbol, market, timeframe string) string {
	var parts []string
	if name != "" {
		parts = append(parts, name)
	}
	if symbol != "" && symbol != name {
		parts = append(parts, "("+symbol+")")
	}
	if tag := strings.Trim(strings.TrimSpace(market+" | "+timeframe), " |"); tag != "" {
		parts = append(parts, "["+tag+"]")
	}
	if len(parts) == 0 {
		return "Chart"
	}
	return strings.Join(parts, " ")
}

// Render writes the HTML page: candles with trend and divergence lines
// on top, the centered RSI below.
func Render(w io.Writer, o Options) error {
	s := o.Series
	if s.Len() == 0 {
		return fmt.Errorf("chart %q: empty series", o.Title)
	}
	x := axisLabels(s.Time)
	page := components.NewPage()
	page.PageTitle = o.Title
	page.AddCharts(priceChart(o, x))
	if !o.HideMomentum {
		page.AddCharts(momentumChart(o, x))
	}
	return page.Render(w)
}

// WriteFile renders into dir/name.html and returns the path.
func WriteFile(dir, name string, o Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, SafeName(name)+".html")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := Render(f, o); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// SafeName keeps letters, digits, '-' and '_' and replaces the rest.
func SafeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "chart"
	}
	return b.String()
}

func axisLabels(times []int64) []string {
	out := make([]string, len(times))
	for i, ts := range times {
		out[i] = time.UnixMilli(ts).UTC().Format("2006-01-02 15:04")
	}
	return out
}

func priceChart(o Options, x []string) *charts.Kline {
	s := o.Series
	k := charts.NewKLine()
	k.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "620px"}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: o.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	data := make([]opts.KlineData, s.Len())
	for i := range data {
		// echarts order: open, close, low, high
		data[i] = opts.KlineData{Value: [4]float64{s.Open[i], s.Close[i], s.Low[i], s.High[i]}}
	}
	k.SetXAxis(x).AddSeries("price", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorUp, Color0: colorDown, BorderColor: colorUp, BorderColor0: colorDown}),
	)

	var overlaps []charts.Overlaper
	if !o.HideTrend {
		overlaps = append(overlaps, valueLine(x, "EMA", s.Trend, opts.LineStyle{Color: colorTrend, Width: 1.2}))
	}
	for i, ov := range o.Overlays {
		color := ov.Color
		if color == "" {
			color = overlayColors[i%len(overlayColors)]
		}
		style := opts.LineStyle{Color: color, Width: 1.2}
		if ov.Dashed {
			style = opts.LineStyle{Color: color, Width: 1.4, Type: "dashed"}
		}
		overlaps = append(overlaps, valueLine(x, ov.Name, ov.Values, style))
	}
	overlaps = append(overlaps, pivotMarkers(x, s)...)
	if len(o.Marks) > 0 {
		overlaps = append(overlaps, markScatter(x, o.Marks))
	}

	rng := priceRange(s)
	for _, p := range o.Bullish {
		if from, to, ok := pairBounds(s, p); ok {
			overlaps = append(overlaps, segment(x, "bullish", from, to, s.Low[from]-rng*0.01, s.Low[to]-rng*0.01, colorBullish))
		}
	}
	for _, p := range o.Bearish {
		if from, to, ok := pairBounds(s, p); ok {
			overlaps = append(overlaps, segment(x, "bearish", from, to, s.High[from]+rng*0.01, s.High[to]+rng*0.01, colorBearish))
		}
	}
	k.Overlap(overlaps...)
	return k
}

func momentumChart(o Options, x []string) *charts.Bar {
	s := o.Series
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1400px", Height: "260px"}),
		charts.WithTitleOpts(opts.Title{Subtitle: "RSI - 50"}),
		charts.WithYAxisOpts(opts.YAxis{Min: -50, Max: 50}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside", Start: 0, End: 100}),
	)
	data := make([]opts.BarData, s.Len())
	for i, v := range s.MomentumCentered {
		data[i] = opts.BarData{Value: valueOrGap(v)}
	}
	var seriesOpts []charts.SeriesOpts
	if o.RSIUpper > o.RSILower {
		seriesOpts = append(seriesOpts,
			charts.WithMarkLineNameYAxisItemOpts(
				opts.MarkLineNameYAxisItem{Name: fmt.Sprintf("RSI %g", o.RSIUpper), YAxis: o.RSIUpper - 50},
				opts.MarkLineNameYAxisItem{Name: fmt.Sprintf("RSI %g", o.RSILower), YAxis: o.RSILower - 50},
			),
		)
	}
	bar.SetXAxis(x).AddSeries("rsi", data, seriesOpts...)

	var overlaps []charts.Overlaper
	for _, p := range o.Bullish {
		if from, to, ok := pairBounds(s, p); ok {
			overlaps = append(overlaps, segment(x, "bullish", from, to, s.MomentumCentered[from]-2, s.MomentumCentered[to]-2, colorBullish))
		}
	}
	for _, p := range o.Bearish {
		if from, to, ok := pairBounds(s, p); ok {
			overlaps = append(overlaps, segment(x, "bearish", from, to, s.MomentumCentered[from]+2, s.MomentumCentered[to]+2, colorBearish))
		}
	}
	if len(overlaps) > 0 {
		bar.Overlap(overlaps...)
	}
	return bar
}

// pairBounds resolves a pair to indices and checks both ends are drawable.
func pairBounds(s *divergence.Series, p divergence.Pair) (int, int, bool) {
	from, to := p.FromIndex, p.ToIndex
	if from < 0 || to >= s.Len() || from >= to {
		return 0, 0, false
	}
	if s.Time[from] != p.From || s.Time[to] != p.To {
		return 0, 0, false
	}
	if !indicator.IsDefined(s.MomentumCentered[from]) || !indicator.IsDefined(s.MomentumCentered[to]) {
		return 0, 0, false
	}
	return from, to, true
}

func priceRange(s *divergence.Series) float64 {
	lo, hi := s.Low[0], s.High[0]
	for i := 1; i < s.Len(); i++ {
		if s.Low[i] < lo {
			lo = s.Low[i]
		}
		if s.High[i] > hi {
			hi = s.High[i]
		}
	}
	return hi - lo
}

func valueOrGap(v float64) any {
	if !indicator.IsDefined(v) {
		return "-"
	}
	return v
}

func valueLine(x []string, name string, values []float64, style opts.LineStyle) *charts.Line {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: valueOrGap(v)}
	}
	line := charts.NewLine()
	line.SetXAxis(x).AddSeries(name, data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(style),
	)
	return line
}

// segment draws a straight line between two bars; every other slot is a gap.
func segment(x []string, name string, from, to int, y0, y1 float64, color string) *charts.Line {
	data := make([]opts.LineData, len(x))
	for i := range data {
		data[i] = opts.LineData{Value: "-"}
	}
	data[from] = opts.LineData{Value: y0}
	data[to] = opts.LineData{Value: y1}
	line := charts.NewLine()
	line.SetXAxis(x).AddSeries(name, data,
		charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(true), ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}),
	)
	return line
}

func pivotMarkers(x []string, s *divergence.Series) []charts.Overlaper {
	up := make([]opts.ScatterData, s.Len())
	down := make([]opts.ScatterData, s.Len())
	for i := 0; i < s.Len(); i++ {
		up[i] = opts.ScatterData{Value: "-"}
		down[i] = opts.ScatterData{Value: "-"}
		if s.HighPivot[i] {
			up[i] = opts.ScatterData{Value: s.High[i], Symbol: "triangle", SymbolSize: 10, SymbolRotate: 180}
		}
		if s.LowPivot[i] {
			down[i] = opts.ScatterData{Value: s.Low[i], Symbol: "triangle", SymbolSize: 10}
		}
	}
	highs := charts.NewScatter()
	highs.SetXAxis(x).AddSeries("up fractal", up, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBearish}))
	lows := charts.NewScatter()
	lows.SetXAxis(x).AddSeries("down fractal", down, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorBullish}))
	return []charts.Overlaper{highs, lows}
}

func markScatter(x []string, marks []Mark) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetXAxis(x)
	for _, m := range marks {
		if m.Index < 0 || m.Index >= len(x) {
			continue
		}
		data := make([]opts.ScatterData, len(x))
		for i := range data {
			data[i] = opts.ScatterData{Value: "-"}
		}
		data[m.Index] = opts.ScatterData{Value: m.Price, Symbol: "pin", SymbolSize: 28}
		color := m.Color
		if color == "" {
			color = colorTrend
		}
		sc.AddSeries(m.Name, data, charts.WithItemStyleOpts(opts.ItemStyle{Color: color}))
	}
	return sc
}
