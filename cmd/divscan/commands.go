package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"divscan/internal/analysis/indicator"
	"divscan/internal/chart"
	"divscan/internal/config"
	"divscan/internal/config/writer"
	"divscan/internal/gateway"
	"divscan/internal/logger"
	"divscan/internal/market"
	"divscan/internal/report"
	"divscan/internal/scanner"
	"divscan/internal/transport/http/api"
)

// scanFlags are shared by every multi-symbol command.
type scanFlags struct {
	markets string
	tf      string
	json    bool
	charts  bool
}

func (a *app) parseScanFlags(name string, args []string, withCharts bool) (scanFlags, error) {
	var f scanFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.markets, "markets", "", "comma-separated market groups (default all)")
	fs.StringVar(&f.tf, "tf", a.cfg.Settings.Timeframe, "timeframe: "+strings.Join(a.cfg.TimeframeChoices(), ", "))
	fs.BoolVar(&f.json, "json", false, "print the report as JSON")
	if withCharts {
		fs.BoolVar(&f.charts, "charts", false, "write an HTML chart per hit")
	}
	return f, fs.Parse(args)
}

func (a *app) targets(markets string) ([]scanner.Target, error) {
	doc, err := a.markets.Read()
	if err != nil {
		return nil, err
	}
	var selected []string
	for _, m := range strings.Split(markets, ",") {
		if m = strings.TrimSpace(m); m != "" {
			selected = append(selected, m)
		}
	}
	return scanner.Targets(doc, selected)
}

// partial reports per-target failures without failing the command.
func partial(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "some symbols failed:\n%v\n", err)
	}
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "symbol to analyse, e.g. BTCUSDT")
	marketName := fs.String("market", "", "market group of the symbol")
	source := fs.String("source", "", "data source override (binance, csv)")
	tfName := fs.String("tf", a.cfg.Settings.Timeframe, "timeframe")
	csvPath := fs.String("csv", "", "export the series with indicators to this CSV file")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	withChart := fs.Bool("chart", false, "write an HTML chart")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*symbol) == "" {
		return fmt.Errorf("-symbol is required")
	}
	tf, err := market.ParseTimeframe(*tfName)
	if err != nil {
		return err
	}

	target := a.resolveTarget(strings.ToUpper(strings.TrimSpace(*symbol)), *marketName)
	if *source != "" {
		target.Entry.Source = *source
	}
	hit, err := a.scanner.Analyze(ctx, target, tf)
	if err != nil {
		return err
	}

	if *csvPath != "" {
		opts := report.SeriesCSVOptions{Location: time.UTC, PricePrecision: report.PrecisionAuto}
		if err := report.WriteSeriesCSV(*csvPath, hit.Result.Series, opts); err != nil {
			return err
		}
		logger.Infof("series written to %s", *csvPath)
	}
	if *withChart {
		if err := a.divergenceChart(ctx, *hit, tf); err != nil {
			return err
		}
	}
	if *asJSON {
		return report.WriteJSON(os.Stdout, hit)
	}
	fmt.Print(report.PairsTable(hit))
	return nil
}

// resolveTarget prefers the markets file entry so names and sources
// apply; symbols not listed there are analysed with the default source.
func (a *app) resolveTarget(symbol, marketName string) scanner.Target {
	t := scanner.Target{Market: marketName, Entry: writer.MarketEntry{Symbol: symbol}}
	doc, err := a.markets.Read()
	if err != nil {
		logger.Debugf("markets file unavailable: %v", err)
		return t
	}
	if marketName != "" {
		entries, _ := doc.Markets.Get(marketName)
		for _, e := range entries {
			if strings.EqualFold(e.Symbol, symbol) {
				t.Entry = e
			}
		}
		return t
	}
	if group, e, ok := doc.Markets.Find(symbol); ok {
		t.Market, t.Entry = group, e
	}
	return t
}

func (a *app) scan(ctx context.Context, args []string) error {
	f, err := a.parseScanFlags("scan", args, true)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(f.tf)
	if err != nil {
		return err
	}
	targets, err := a.targets(f.markets)
	if err != nil {
		return err
	}
	rep, scanErr := a.scanner.ScanDivergences(ctx, targets, tf)
	if rep == nil {
		return scanErr
	}
	if f.charts {
		for _, h := range rep.Hits() {
			if err := a.divergenceChart(ctx, h, tf); err != nil {
				logger.Warnf("chart %s: %v", h.Symbol(), err)
			}
		}
	}
	if f.json {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		fmt.Print(report.DivergenceTable(rep))
	}
	partial(scanErr)
	return nil
}

func (a *app) rsi(ctx context.Context, args []string) error {
	f, err := a.parseScanFlags("rsi", args, true)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(f.tf)
	if err != nil {
		return err
	}
	targets, err := a.targets(f.markets)
	if err != nil {
		return err
	}
	rep, scanErr := a.scanner.ScanRSIRange(ctx, targets, tf)
	if rep == nil {
		return scanErr
	}
	if f.charts {
		mode, _ := indicator.ParseSmoothing(a.cfg.Divergence.Smoothing)
		// outliers only: most oversold first, then most overbought
		for _, r := range append(append([]scanner.RSIReading{}, rep.Below...), rep.Above...) {
			name := fmt.Sprintf("%s %s rsi", r.Symbol(), tf.Name)
			if err := a.writeChart(ctx, name, chart.ForRSIReading(r, rep, mode, tf.Name)); err != nil {
				logger.Warnf("chart %s: %v", r.Symbol(), err)
			}
		}
	}
	if f.json {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		fmt.Print(report.RSITable(rep))
	}
	partial(scanErr)
	return nil
}

func (a *app) sma(ctx context.Context, args []string) error {
	f, err := a.parseScanFlags("sma", args, true)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(f.tf)
	if err != nil {
		return err
	}
	targets, err := a.targets(f.markets)
	if err != nil {
		return err
	}
	rep, scanErr := a.scanner.ScanSMAPullbacks(ctx, targets, tf)
	if rep == nil {
		return scanErr
	}
	if f.charts {
		for _, h := range rep.Hits {
			name := fmt.Sprintf("%s %s sma", h.Symbol(), tf.Name)
			if err := a.writeChart(ctx, name, chart.ForSMAPullback(h, rep.Long, rep.Short, tf.Name, a.bounds())); err != nil {
				logger.Warnf("chart %s: %v", h.Symbol(), err)
			}
		}
	}
	if f.json {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		fmt.Print(report.SMATable(rep))
	}
	partial(scanErr)
	return nil
}

func (a *app) donchian(ctx context.Context, args []string) error {
	f, err := a.parseScanFlags("donchian", args, true)
	if err != nil {
		return err
	}
	tf, err := market.ParseTimeframe(f.tf)
	if err != nil {
		return err
	}
	targets, err := a.targets(f.markets)
	if err != nil {
		return err
	}
	rep, scanErr := a.scanner.ScanDonchian(ctx, targets, tf)
	if rep == nil {
		return scanErr
	}
	if f.charts {
		for _, h := range rep.Hits {
			name := fmt.Sprintf("%s %s donchian", h.Symbol(), tf.Name)
			if err := a.writeChart(ctx, name, chart.ForDonchian(h, a.cfg.SMA.Long, rep.Period, tf.Name)); err != nil {
				logger.Warnf("chart %s: %v", h.Symbol(), err)
			}
		}
	}
	if f.json {
		if err := report.WriteJSON(os.Stdout, rep); err != nil {
			return err
		}
	} else {
		fmt.Print(report.DonchianTable(rep))
	}
	partial(scanErr)
	return nil
}

func (a *app) serve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.HTTP.Addr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	srv, err := api.NewServer(api.ServerConfig{
		Addr:             *addr,
		Scanner:          a.scanner,
		Markets:          a.markets,
		DefaultTimeframe: a.cfg.Settings.Timeframe,
	})
	if err != nil {
		return err
	}
	return srv.Start(ctx)
}

func (a *app) bounds() chart.Bounds {
	return chart.Bounds{Lower: a.cfg.RSIScanner.Lower, Upper: a.cfg.RSIScanner.Upper}
}

func (a *app) divergenceChart(ctx context.Context, h scanner.DivergenceHit, tf market.Timeframe) error {
	return a.writeChart(ctx, h.Symbol()+" "+tf.Name, chart.ForDivergence(h, tf.Name, a.bounds()))
}

func (a *app) writeChart(ctx context.Context, name string, o chart.Options) error {
	path, err := chart.WriteFile(a.cfg.Chart.OutDir, name, o)
	if err != nil {
		return err
	}
	logger.Infof("chart written to %s", path)
	if !a.cfg.Chart.PNG {
		return nil
	}
	png, err := chart.Snapshot(ctx, path)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", path, err)
	}
	logger.Infof("snapshot written to %s", png)
	return nil
}

type symbolLister interface {
	ListSymbols(ctx context.Context) ([]market.SymbolInfo, error)
}

func runMarkets(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("markets needs a subcommand: sort | fetch")
	}
	switch args[0] {
	case "sort":
		fs := flag.NewFlagSet("markets sort", flag.ContinueOnError)
		in := fs.String("in", cfg.Settings.MarketsFile, "markets file to read")
		out := fs.String("out", "", "file to write (default <in>.sorted.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *out == "" {
			ext := filepath.Ext(*in)
			*out = strings.TrimSuffix(*in, ext) + ".sorted" + ext
		}
		doc, err := writer.NewMarketsWriter(*in).Read()
		if err != nil {
			return err
		}
		if err := writer.NewMarketsWriter(*out).Write(writer.SortMarkets(doc)); err != nil {
			return err
		}
		fmt.Printf("sorted markets written to %s\n", *out)
		return nil

	case "fetch":
		fs := flag.NewFlagSet("markets fetch", flag.ContinueOnError)
		out := fs.String("out", filepath.Join(filepath.Dir(cfg.Settings.MarketsFile), "binance_perp.yaml"), "file to write")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		reg, err := gateway.NewFromConfig(cfg)
		if err != nil {
			return err
		}
		src, err := reg.Get("binance")
		if err != nil {
			return err
		}
		lister, ok := src.(symbolLister)
		if !ok {
			return fmt.Errorf("source %s cannot list symbols", src.Name())
		}
		symbols, err := lister.ListSymbols(ctx)
		if err != nil {
			return err
		}
		doc := writer.BuildBinanceMarkets(symbols)
		if err := writer.NewMarketsWriter(*out).Write(doc); err != nil {
			return err
		}
		fmt.Printf("%d groups written to %s\n", len(doc.Markets.Names), *out)
		return nil

	default:
		return fmt.Errorf("unknown markets subcommand %q", args[0])
	}
}
