package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"divscan/internal/config"
	"divscan/internal/config/writer"
	"divscan/internal/gateway"
	"divscan/internal/logger"
	"divscan/internal/scanner"
	"divscan/internal/store"
)

const usage = `usage: divscan [-config path] <command> [flags]

commands:
  analyze   -symbol S [-market M] [-source S] [-tf H4] [-csv file] [-json] [-chart]
  scan      [-markets a,b] [-tf H4] [-json] [-charts]
  rsi       [-markets a,b] [-tf H4] [-json] [-charts]
  sma       [-markets a,b] [-tf H4] [-json] [-charts]
  donchian  [-markets a,b] [-tf H4] [-json] [-charts]
  markets   sort [-in file] [-out file] | fetch [-out file]
  serve     [-addr :8080]
`

func main() {
	flags := flag.NewFlagSet("divscan", flag.ExitOnError)
	cfgPath := flags.String("config", config.DefaultPath, "path to config.toml")
	flags.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || *cfgPath != config.DefaultPath {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		def := config.Default()
		cfg = &def
	}
	logger.Init(cfg.Log)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args[0], args[1:]); err != nil {
		logger.Errorf("%s: %v", args[0], err)
		fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, cmd string, args []string) error {
	if cmd == "markets" {
		return runMarkets(ctx, cfg, args)
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	switch cmd {
	case "analyze":
		return app.analyze(ctx, args)
	case "scan":
		return app.scan(ctx, args)
	case "rsi":
		return app.rsi(ctx, args)
	case "sma":
		return app.sma(ctx, args)
	case "donchian":
		return app.donchian(ctx, args)
	case "serve":
		return app.serve(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

// app holds the wired components shared by the scan commands.
type app struct {
	cfg     *config.Config
	store   store.KlineStore
	markets *writer.MarketsWriter
	scanner *scanner.Scanner
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	reg, err := gateway.NewFromConfig(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	loader := scanner.NewLoader(reg, st, cfg.Settings.DefaultSource, cfg.Store.MaxBars)
	sc, err := scanner.New(*cfg, loader)
	if err != nil {
		st.Close()
		return nil, err
	}
	return &app{
		cfg:     cfg,
		store:   st,
		markets: writer.NewMarketsWriter(cfg.Settings.MarketsFile),
		scanner: sc,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		logger.Warnf("close store: %v", err)
	}
}
