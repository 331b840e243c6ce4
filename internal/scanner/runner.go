package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"divscan/internal/logger"
)

// Options controls how a scan fans out.
type Options struct {
	Concurrency  int
	RequestDelay time.Duration
}

// Skip records a target that produced no result.
type Skip struct {
	Target
	Reason string `json:"reason"`
}

// skipError marks a target that was processed but yields nothing, such
// as a series too short for the indicator. It is not a failure.
type skipError struct{ reason string }

func (e skipError) Error() string { return e.reason }

func skipf(format string, args ...any) error {
	return skipError{reason: fmt.Sprintf(format, args...)}
}

// fanOut runs fn for every target with at most opts.Concurrency calls in
// flight. Results keep the input order; nil results are dropped. Target
// failures are logged, reported as skips and combined into the returned
// error; only cancellation stops the run early.
func fanOut[T any](ctx context.Context, targets []Target, opts Options, fn func(ctx context.Context, t Target) (*T, error)) ([]T, []Skip, error) {
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	slots := make([]*T, len(targets))
	errs := make([]error, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		if gctx.Err() != nil {
			break
		}
		i, t := i, t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(gctx, t)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				errs[i] = fmt.Errorf("%s/%s: %w", t.Market, t.Symbol(), err)
			}
			slots[i] = res
			if opts.RequestDelay > 0 {
				select {
				case <-time.After(opts.RequestDelay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	out := make([]T, 0, len(targets))
	var skips []Skip
	var combined error
	for i, t := range targets {
		var skip skipError
		if errors.As(errs[i], &skip) {
			logger.Debugf("[scan] skip %v", errs[i])
			skips = append(skips, Skip{Target: t, Reason: skip.reason})
			continue
		}
		if errs[i] != nil {
			logger.Warnf("[scan] %v", errs[i])
			skips = append(skips, Skip{Target: t, Reason: errs[i].Error()})
			combined = multierr.Append(combined, errs[i])
			continue
		}
		if slots[i] != nil {
			out = append(out, *slots[i])
		}
	}
	return out, skips, combined
}
