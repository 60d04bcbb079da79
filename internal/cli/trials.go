package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
	"github.com/UnHumbleBen/ppsim/internal/sim"
	"github.com/UnHumbleBen/ppsim/internal/store"
)

// TrialsOptions holds flags for the trials command.
type TrialsOptions struct {
	*RootOptions
	Ns            []int64
	NumTrials     int
	CheckInterval float64
	Budget        time.Duration
	Database      string
	Seed          uint64
}

// TrialsResult summarizes a trials run.
type TrialsResult struct {
	Batch    string      `json:"batch"`
	Protocol string      `json:"protocol"`
	Samples  int         `json:"samples"`
	Trials   []sim.Trial `json:"trials,omitempty"`
}

func (r TrialsResult) String() string {
	return fmt.Sprintf("batch %s: %d samples for protocol %q", r.Batch, r.Samples, r.Protocol)
}

// NewTrialsCommand creates the trials command.
func NewTrialsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TrialsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trials <protocol.yaml>",
		Short: "Collect convergence-time samples across population sizes",
		Long: `Repeatedly run a protocol to silence at each population size and record
how long convergence took. The initial configuration of the definition
file is scaled proportionally to each population size. Results are
persisted to a SQLite database under a fresh batch id.

Example:
  ppsim trials --ns 100,1000,10000 --trials 20 --db trials.db majority.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrials(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64SliceVar(&opts.Ns, "ns", []int64{1000}, "population sizes to sample, in increasing order")
	cmd.Flags().IntVar(&opts.NumTrials, "trials", 100, "samples per population size")
	cmd.Flags().Float64Var(&opts.CheckInterval, "check-interval", 0.1, "simulated time between convergence checks")
	cmd.Flags().DurationVar(&opts.Budget, "budget", 24*time.Hour, "total wall-clock budget")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (required)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: time-derived)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrials(opts *TrialsOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, err := LoadProtocol(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load protocol", err)
	}
	rule := p.Rule()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open results database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing results database", "error", closeErr)
		}
	}()

	trialOpts := []sim.TrialOption{
		sim.WithNumTrials(opts.NumTrials),
		sim.WithCheckInterval(opts.CheckInterval),
		sim.WithTrialBudget(opts.Budget),
	}
	if cmd.Flags().Changed("seed") {
		trialOpts = append(trialOpts, sim.WithSimOptions(sim.WithSeed(opts.Seed)))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("collecting trials", "protocol", p.Name, "sizes", opts.Ns, "per_size", opts.NumTrials)
	trials, err := sim.TimeTrials(ctx, rule, opts.Ns, scaledInitial(p), trialOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, "trials failed", err)
	}

	batch := uuid.NewString()
	if err := st.WriteBatch(ctx, batch, p.Name, trials); err != nil {
		return WrapExitError(ExitCommandError, "failed to persist trials", err)
	}
	slog.Info("trials persisted", "batch", batch, "samples", len(trials))

	result := TrialsResult{Batch: batch, Protocol: p.Name, Samples: len(trials)}
	if opts.Format == "json" {
		result.Trials = trials
	}
	return formatter.Success(result)
}

// scaledInitial scales the definition file's initial configuration to a
// target population size, preserving the count proportions. Rounding
// leftovers go to the states in canonical order, so the result is
// deterministic and sums exactly to n.
func scaledInitial(p *ProtocolFile) func(n int64) map[protocol.State]int64 {
	names := make([]string, 0, len(p.Init))
	var total int64
	for s, c := range p.Init {
		names = append(names, s)
		total += c
	}
	sortStateKeys(names)
	return func(n int64) map[protocol.State]int64 {
		out := make(map[protocol.State]int64, len(names))
		var used int64
		for _, s := range names {
			c := n * p.Init[s] / total
			out[s] = c
			used += c
		}
		for i := 0; used < n; i++ {
			out[names[i%len(names)]]++
			used++
		}
		return out
	}
}
