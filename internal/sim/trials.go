package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// Trial is one convergence-time sample from TimeTrials.
type Trial struct {
	N    int64
	Time float64
}

type trialConfig struct {
	convergence   func(map[protocol.State]int64) bool
	checkInterval float64
	numTrials     int
	budget        time.Duration
	simOpts       []Option
}

// TrialOption configures TimeTrials.
type TrialOption func(*trialConfig)

// WithConvergence sets the convergence predicate. Without it, trials run
// until silence.
func WithConvergence(pred func(map[protocol.State]int64) bool) TrialOption {
	return func(c *trialConfig) { c.convergence = pred }
}

// WithCheckInterval sets how much simulated time passes between
// convergence checks. Defaults to 0.1. Smaller values give better
// resolution but spend more time checking.
func WithCheckInterval(v float64) TrialOption {
	return func(c *trialConfig) { c.checkInterval = v }
}

// WithNumTrials sets the number of samples per population size, time
// budget permitting. Defaults to 100.
func WithNumTrials(n int) TrialOption {
	return func(c *trialConfig) { c.numTrials = n }
}

// WithTrialBudget bounds the total wall-clock time spent. Each population
// size gets an equal share of the time remaining when it starts. Defaults
// to 24 hours.
func WithTrialBudget(d time.Duration) TrialOption {
	return func(c *trialConfig) { c.budget = d }
}

// WithSimOptions passes construction options through to each simulation.
func WithSimOptions(opts ...Option) TrialOption {
	return func(c *trialConfig) { c.simOpts = append(c.simOpts, opts...) }
}

// TimeTrials gathers convergence-time samples for a rule across
// population sizes. For each n it builds one simulation and repeatedly
// resets and re-runs it, so every trial starts fully re-synchronized from
// the initial condition. ns should be increasing so the wall-clock budget
// split favors the cheap sizes.
func TimeTrials(ctx context.Context, rule protocol.Rule, ns []int64, initial func(n int64) map[protocol.State]int64, opts ...TrialOption) ([]Trial, error) {
	cfg := trialConfig{
		checkInterval: 0.1,
		numTrials:     100,
		budget:        24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	stop := UntilSilent()
	if cfg.convergence != nil {
		stop = RunUntil(cfg.convergence)
	}

	end := time.Now().Add(cfg.budget)
	var out []Trial
	for i, n := range ns {
		init := initial(n)
		s, err := New(init, rule, cfg.simOpts...)
		if err != nil {
			return out, err
		}
		now := time.Now()
		limit := now.Add(end.Sub(now) / time.Duration(len(ns)-i))
		samples := 0
		for j := 0; j < cfg.numTrials && time.Now().Before(limit); j++ {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			if err := s.Reset(init); err != nil {
				return out, err
			}
			if err := s.Run(ctx, stop, WithStoppingInterval(cfg.checkInterval), WithProgress(false)); err != nil {
				return out, err
			}
			out = append(out, Trial{N: n, Time: s.Time()})
			samples++
		}
		slog.Debug("time trials finished population size", "n", n, "samples", samples)
	}
	return out, nil
}
