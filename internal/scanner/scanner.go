// Package scanner runs the detectors over whole market groups.
package scanner

import (
	"context"
	"time"

	"github.com/google/uuid"

	"divscan/internal/analysis/divergence"
	"divscan/internal/analysis/indicator"
	"divscan/internal/config"
	"divscan/internal/market"
)

// Scanner bundles the loader, the divergence detector and the scanner
// settings from the config file.
type Scanner struct {
	loader    *Loader
	detector  *divergence.Detector
	smoothing indicator.Smoothing
	cfg       config.Config
}

func New(cfg config.Config, loader *Loader) (*Scanner, error) {
	det, err := divergence.New(cfg.Divergence)
	if err != nil {
		return nil, err
	}
	smoothing, _ := indicator.ParseSmoothing(cfg.Divergence.Smoothing)
	return &Scanner{loader: loader, detector: det, smoothing: smoothing, cfg: cfg}, nil
}

func (s *Scanner) Detector() *divergence.Detector { return s.detector }

func (s *Scanner) Loader() *Loader { return s.loader }

func (s *Scanner) options() Options {
	return Options{
		Concurrency:  s.cfg.Settings.Concurrency,
		RequestDelay: time.Duration(s.cfg.Settings.RequestDelayMS) * time.Millisecond,
	}
}

// Run identifies one scan invocation in logs and reports.
type Run struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Timeframe string    `json:"timeframe"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Skipped   []Skip    `json:"skipped,omitempty"`
}

func newRun(kind string, tf market.Timeframe) Run {
	return Run{ID: uuid.NewString(), Kind: kind, Timeframe: tf.Name, StartedAt: time.Now()}
}

func (r *Run) finish(skips []Skip) {
	r.Skipped = skips
	r.Duration = time.Since(r.StartedAt).Round(time.Millisecond).String()
}

// load is the common first step of every scan.
func (s *Scanner) load(ctx context.Context, t Target, tf market.Timeframe, lookback int) ([]market.Candle, error) {
	return s.loader.Load(ctx, t.Entry, tf, lookback)
}
