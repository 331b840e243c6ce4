// Package config loads the TOML configuration shared by the CLI and the
// HTTP server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"

	"divscan/internal/analysis/divergence"
	"divscan/internal/logger"
	"divscan/internal/market"
)

const DefaultPath = "config/config.toml"

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Settings   SettingsConfig    `toml:"settings"`
	Divergence divergence.Config `toml:"divergence"`
	Analysis   AnalysisConfig    `toml:"analysis"`
	RSIScanner RSIScannerConfig  `toml:"rsi_scanner"`
	SMA        SMAConfig         `toml:"sma"`
	Donchian   DonchianConfig    `toml:"donchian"`
	Binance    BinanceConfig     `toml:"binance"`
	CSV        CSVConfig         `toml:"csv"`
	Store      StoreConfig       `toml:"store"`
	Chart      ChartConfig       `toml:"chart"`
	HTTP       HTTPConfig        `toml:"http"`
	Log        logger.Config     `toml:"log"`
}

type SettingsConfig struct {
	MarketsFile      string   `toml:"markets_file"`
	DefaultSource    string   `toml:"default_source"`
	Timeframe        string   `toml:"timeframe"`
	TimeframeChoices []string `toml:"timeframe_choices"`
	Concurrency      int      `toml:"concurrency"`
	RequestDelayMS   int      `toml:"request_delay_ms"`
}

// AnalysisConfig bounds the window in which divergences count as recent.
type AnalysisConfig struct {
	MaxBars int `toml:"max_bars"`
}

type RSIScannerConfig struct {
	Period       int     `toml:"period"`
	Lower        float64 `toml:"lower"`
	Upper        float64 `toml:"upper"`
	LookbackBars int     `toml:"lookback_bars"`
}

type SMAConfig struct {
	Long  int `toml:"long"`
	Short int `toml:"short"`
}

type DonchianConfig struct {
	Period              int     `toml:"period"`
	WarnDistancePercent float64 `toml:"warn_distance_percent"`
}

type BinanceConfig struct {
	RESTBaseURL        string `toml:"rest_base_url"`
	APIKey             string `toml:"api_key"`
	APISecret          string `toml:"api_secret"`
	HTTPTimeoutSeconds int    `toml:"http_timeout_seconds"`
}

type CSVConfig struct {
	Dir string `toml:"dir"`
}

type StoreConfig struct {
	Driver  string `toml:"driver"`
	Path    string `toml:"path"`
	MaxBars int    `toml:"max_bars"`
}

type ChartConfig struct {
	OutDir string `toml:"out_dir"`
	PNG    bool   `toml:"png"`
}

type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() Config {
	return Config{
		Settings: SettingsConfig{
			MarketsFile:      "config/markets.yaml",
			DefaultSource:    "binance",
			Timeframe:        "H4",
			TimeframeChoices: append([]string(nil), market.DefaultTimeframeChoices...),
			Concurrency:      4,
			RequestDelayMS:   120,
		},
		Divergence: divergence.DefaultConfig(),
		Analysis:   AnalysisConfig{MaxBars: 200},
		RSIScanner: RSIScannerConfig{Period: 14, Lower: 30, Upper: 70, LookbackBars: 200},
		SMA:        SMAConfig{Long: 200, Short: 20},
		Donchian:   DonchianConfig{Period: 20, WarnDistancePercent: 2},
		Binance:    BinanceConfig{RESTBaseURL: "https://fapi.binance.com", HTTPTimeoutSeconds: 15},
		CSV:        CSVConfig{Dir: "data"},
		Store:      StoreConfig{Driver: "memory", Path: "data/klines.db", MaxBars: 3000},
		Chart:      ChartConfig{OutDir: "charts"},
		HTTP:       HTTPConfig{Addr: ":8080"},
		Log:        logger.Config{Level: "info", Console: true, MaxSizeMB: 50, MaxBackups: 5, MaxAgeDays: 14},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML content. Unknown keys are rejected so typos surface early.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strict.String())
		}
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Settings.DefaultSource = strings.ToLower(strings.TrimSpace(c.Settings.DefaultSource))
	c.Settings.Timeframe = strings.ToUpper(strings.TrimSpace(c.Settings.Timeframe))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
}

// Validate collects every problem instead of stopping at the first one.
func (c Config) Validate() error {
	var err error
	if err2 := c.Divergence.Validate(); err2 != nil {
		err = multierr.Append(err, err2)
	}
	switch c.Settings.DefaultSource {
	case "binance", "csv":
	default:
		err = multierr.Append(err, fmt.Errorf("settings.default_source %q is not one of binance, csv", c.Settings.DefaultSource))
	}
	if _, terr := market.ParseTimeframe(c.Settings.Timeframe); terr != nil {
		err = multierr.Append(err, fmt.Errorf("settings.timeframe: %w", terr))
	}
	for _, tf := range c.Settings.TimeframeChoices {
		if _, terr := market.ParseTimeframe(tf); terr != nil {
			err = multierr.Append(err, fmt.Errorf("settings.timeframe_choices: %w", terr))
		}
	}
	if c.Settings.Concurrency < 1 {
		err = multierr.Append(err, fmt.Errorf("settings.concurrency must be >= 1, got %d", c.Settings.Concurrency))
	}
	if c.Settings.RequestDelayMS < 0 {
		err = multierr.Append(err, fmt.Errorf("settings.request_delay_ms must be >= 0"))
	}
	if c.Analysis.MaxBars < 0 {
		err = multierr.Append(err, fmt.Errorf("analysis.max_bars must be >= 0"))
	}
	if c.RSIScanner.Period <= 0 {
		err = multierr.Append(err, fmt.Errorf("rsi_scanner.period must be > 0"))
	}
	if c.RSIScanner.Lower >= c.RSIScanner.Upper {
		err = multierr.Append(err, fmt.Errorf("rsi_scanner.lower (%v) must be smaller than upper (%v)", c.RSIScanner.Lower, c.RSIScanner.Upper))
	}
	if c.SMA.Long <= 0 || c.SMA.Short <= 0 {
		err = multierr.Append(err, fmt.Errorf("sma.long and sma.short must be > 0"))
	}
	if c.Donchian.Period <= 0 {
		err = multierr.Append(err, fmt.Errorf("donchian.period must be > 0"))
	}
	if c.Donchian.WarnDistancePercent < 0 || c.Donchian.WarnDistancePercent >= 100 {
		err = multierr.Append(err, fmt.Errorf("donchian.warn_distance_percent must be in [0,100)"))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if strings.TrimSpace(c.Store.Path) == "" {
			err = multierr.Append(err, fmt.Errorf("store.path is required for sqlite"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("store.driver %q is not one of memory, sqlite", c.Store.Driver))
	}
	if c.Binance.HTTPTimeoutSeconds < 0 {
		err = multierr.Append(err, fmt.Errorf("binance.http_timeout_seconds must be >= 0"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// TimeframeChoices returns the timeframes offered to the user.
func (c Config) TimeframeChoices() []string {
	return market.TimeframeChoices(c.Settings.TimeframeChoices, c.Settings.Timeframe)
}
