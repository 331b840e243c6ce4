// Package report renders scan results as terminal tables, JSON and CSV.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"divscan/internal/analysis/divergence"
	"divscan/internal/scanner"
)

const timeLayout = "2006-01-02 15:04"

func newTable(title string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(title)
	return tw
}

func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(timeLayout)
}

// DivergenceTable lists the symbols with recent divergences.
func DivergenceTable(r *scanner.DivergenceReport) string {
	tw := newTable(fmt.Sprintf("Divergences %s (run %s)", r.Timeframe, shortID(r.ID)))
	tw.AppendHeader(table.Row{"#", "Market", "Symbol", "Name", "Bullish", "Bearish", "Last", "Window"})
	hits := r.Hits()
	for i, h := range hits {
		tw.AppendRow(table.Row{i + 1, h.Market, h.Symbol(), h.Entry.DisplayName(), len(h.Bullish), len(h.Bearish), lastPairTime(h), h.WindowBars})
	}
	tw.AppendFooter(table.Row{"", "", "", "analysed", len(r.Results), "skipped", len(r.Skipped), r.Duration})
	if len(hits) == 0 {
		return tw.Render() + "\nNo divergences found.\n"
	}
	return tw.Render() + "\n"
}

func lastPairTime(h scanner.DivergenceHit) string {
	var last int64
	for _, p := range append(append([]divergence.Pair{}, h.Bullish...), h.Bearish...) {
		if p.To > last {
			last = p.To
		}
	}
	if last == 0 {
		return "-"
	}
	return formatTime(last)
}

// PairsTable lists every pair of a single-symbol analysis, newest first.
func PairsTable(h *scanner.DivergenceHit) string {
	tw := newTable(fmt.Sprintf("%s (%s) %s", h.Entry.DisplayName(), h.Symbol(), h.Market))
	tw.AppendHeader(table.Row{"Kind", "From", "To", "Bars", "Recent"})
	pairs := append(append([]divergence.Pair{}, h.Result.Bullish...), h.Result.Bearish...)
	sortPairsDesc(pairs)
	for _, p := range pairs {
		recent := ""
		if p.To >= h.WindowStart {
			recent = "yes"
		}
		tw.AppendRow(table.Row{p.Kind.String(), formatTime(p.From), formatTime(p.To), p.ToIndex - p.FromIndex, recent})
	}
	tw.AppendFooter(table.Row{"", "bars", h.Bars, "window", h.WindowBars})
	return tw.Render() + "\n"
}

func sortPairsDesc(pairs []divergence.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].To > pairs[j].To })
}

// RSITable shows the in-range bucket followed by the outliers.
func RSITable(r *scanner.RSIReport) string {
	tw := newTable(fmt.Sprintf("RSI(%d) %s range [%g, %g]", r.Period, r.Timeframe, r.Lower, r.Upper))
	tw.AppendHeader(table.Row{"Bucket", "Market", "Symbol", "Name", "RSI"})
	add := func(bucket string, rows []scanner.RSIReading) {
		for _, x := range rows {
			tw.AppendRow(table.Row{bucket, x.Market, x.Symbol(), x.Entry.DisplayName(), fmt.Sprintf("%.2f", x.RSI)})
		}
	}
	add("in range", r.InRange)
	tw.AppendSeparator()
	add(fmt.Sprintf("< %g", r.Lower), r.Below)
	add(fmt.Sprintf("> %g", r.Upper), r.Above)
	tw.AppendFooter(table.Row{"", "in range", len(r.InRange), "outliers", len(r.Below) + len(r.Above)})
	return tw.Render() + "\n"
}

func SMATable(r *scanner.SMAReport) string {
	tw := newTable(fmt.Sprintf("SMA%d/SMA%d pullbacks %s", r.Long, r.Short, r.Timeframe))
	tw.AppendHeader(table.Row{"Market", "Symbol", "Name", "Close", fmt.Sprintf("SMA%d", r.Long), fmt.Sprintf("SMA%d", r.Short), "Div"})
	for _, h := range r.Hits {
		tw.AppendRow(table.Row{h.Market, h.Symbol(), h.Entry.DisplayName(),
			fmt.Sprintf("%.4f", h.Close), fmt.Sprintf("%.4f", h.SMALong), fmt.Sprintf("%.4f", h.SMAShort),
			divergenceSummary(h.Divergence)})
	}
	if len(r.Hits) == 0 {
		return tw.Render() + "\nNo SMA pullbacks found.\n"
	}
	return tw.Render() + "\n"
}

func divergenceSummary(res divergence.Result) string {
	if res.Empty() {
		return "-"
	}
	return fmt.Sprintf("%d bull / %d bear", len(res.Bullish), len(res.Bearish))
}

func DonchianTable(r *scanner.DonchianReport) string {
	tw := newTable(fmt.Sprintf("Donchian(%d) %s, watch within %g%%", r.Period, r.Timeframe, r.WarnDistancePercent))
	tw.AppendHeader(table.Row{"Market", "Symbol", "Signal", "Close", "SMA", "Channel high", "Channel low"})
	for _, h := range r.Hits {
		tw.AppendRow(table.Row{h.Market, h.Symbol(), string(h.Signal),
			fmt.Sprintf("%.4f", h.Close), fmt.Sprintf("%.4f", h.SMA),
			fmt.Sprintf("%.4f", h.ChannelHigh), fmt.Sprintf("%.4f", h.ChannelLow)})
	}
	if len(r.Hits) == 0 {
		return tw.Render() + "\nNo signals found.\n"
	}
	return tw.Render() + "\n"
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
