package divergence

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"divscan/internal/analysis/indicator"
	"divscan/internal/market"
)

var ErrInvalidConfig = errors.New("invalid divergence config")

// Config mirrors the [divergence] section of the config file.
type Config struct {
	RSIPeriod      int    `toml:"rsi_period" json:"rsi_period"`
	FractalPeriods int    `toml:"fractal_periods" json:"fractal_periods"`
	MaxBarsDiff    int    `toml:"max_bars_diff" json:"max_bars_diff"`
	TrendSpan      int    `toml:"trend_span" json:"trend_span"`
	Smoothing      string `toml:"smoothing" json:"smoothing"`
}

func DefaultConfig() Config {
	return Config{
		RSIPeriod:      14,
		FractalPeriods: 4,
		MaxBarsDiff:    30,
		TrendSpan:      indicator.DefaultTrendSpan,
		Smoothing:      string(indicator.SmoothingEWM),
	}
}

// Validate reports every violation at once. fractal_periods == 0 is
// allowed and disables pivot detection.
func (c Config) Validate() error {
	var err error
	if c.RSIPeriod <= 0 {
		err = multierr.Append(err, fmt.Errorf("rsi_period must be > 0, got %d", c.RSIPeriod))
	}
	if c.FractalPeriods < 0 {
		err = multierr.Append(err, fmt.Errorf("fractal_periods must be >= 0, got %d", c.FractalPeriods))
	}
	if c.MaxBarsDiff < 0 {
		err = multierr.Append(err, fmt.Errorf("max_bars_diff must be >= 0, got %d", c.MaxBarsDiff))
	}
	if c.TrendSpan <= 0 {
		err = multierr.Append(err, fmt.Errorf("trend_span must be > 0, got %d", c.TrendSpan))
	}
	if _, serr := indicator.ParseSmoothing(c.Smoothing); serr != nil {
		err = multierr.Append(err, serr)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Detector finds RSI/price divergences on fractal pivots. It holds no
// mutable state and may be shared between goroutines.
type Detector struct {
	cfg       Config
	smoothing indicator.Smoothing
}

func New(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	smoothing, _ := indicator.ParseSmoothing(cfg.Smoothing)
	return &Detector{cfg: cfg, smoothing: smoothing}, nil
}

func (d *Detector) Config() Config { return d.cfg }

// Detect copies bars into a working series, derives trend and momentum
// columns and runs one scan. It never fails: empty or short input yields
// an empty result.
func (d *Detector) Detect(bars []market.Candle) Result {
	s := NewSeries(bars)
	if s.Len() == 0 {
		return Scan(s, d.cfg)
	}
	s.Trend = indicator.EMA(s.Close, d.cfg.TrendSpan, d.smoothing)
	s.Momentum = indicator.RSI(s.Close, d.cfg.RSIPeriod, d.smoothing)
	s.MomentumCentered = indicator.Centered(s.Momentum)
	return Scan(s, d.cfg)
}
