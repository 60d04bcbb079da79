package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
	"github.com/UnHumbleBen/ppsim/internal/engine"
	"github.com/UnHumbleBen/ppsim/internal/protocol"
	"github.com/UnHumbleBen/ppsim/internal/sim"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Time             float64
	HistoryInterval  float64
	StoppingInterval float64
	Seed             uint64
	Engine           string
	Order            string
	Continuous       bool
	Progress         bool
}

// RunResult is the caller-visible outcome of a run.
type RunResult struct {
	Protocol string           `json:"protocol,omitempty"`
	Time     float64          `json:"time"`
	Steps    int64            `json:"steps"`
	Records  int              `json:"records"`
	Config   map[string]int64 `json:"config"`
}

func (r RunResult) String() string {
	var b strings.Builder
	if r.Protocol != "" {
		fmt.Fprintf(&b, "protocol: %s\n", r.Protocol)
	}
	fmt.Fprintf(&b, "time: %v\nsteps: %d\nrecords: %d\nconfig:\n", r.Time, r.Steps, r.Records)
	keys := make([]string, 0, len(r.Config))
	for k := range r.Config {
		keys = append(keys, k)
	}
	sortStateKeys(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %d\n", k, r.Config[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// sortStateKeys orders state names the way the simulation orders states.
func sortStateKeys(keys []string) {
	states := make([]protocol.State, len(keys))
	for i := range keys {
		states[i] = keys[i]
	}
	protocol.SortByRepr(states)
	for i := range keys {
		keys[i] = states[i].(string)
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <protocol.yaml>",
		Short: "Run a protocol simulation",
		Long: `Run a population protocol described by a YAML definition file.

Without --time the simulation runs until the configuration is silent
(every possible interaction is null), which requires the batch stepper.

Example:
  ppsim run --time 20 --seed 1 approx_majority.yaml
  ppsim run --engine sequential --time 5 approx_majority.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(opts, args[0], cmd)
		},
	}

	cmd.Flags().Float64Var(&opts.Time, "time", -1, "simulated time to run for (default: run until silent)")
	cmd.Flags().Float64Var(&opts.HistoryInterval, "history-interval", 1, "simulated time between history records")
	cmd.Flags().Float64Var(&opts.StoppingInterval, "stopping-interval", 1, "simulated time between stop checks")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default: time-derived)")
	cmd.Flags().StringVar(&opts.Engine, "engine", string(engine.KindBatch), "stepper implementation (batch|sequential)")
	cmd.Flags().StringVar(&opts.Order, "order", string(compiler.OrderAsymmetric), "transition order (asymmetric|symmetric|symmetric_enforced)")
	cmd.Flags().BoolVar(&opts.Continuous, "continuous", false, "use the continuous-time Poisson model")
	cmd.Flags().BoolVar(&opts.Progress, "progress", true, "print a progress line while running")

	return cmd
}

// buildSimulation assembles a simulation from a protocol file and shared
// flags. Used by run and show.
func buildSimulation(p *ProtocolFile, cmd *cobra.Command, engineKind, order string, seed uint64, continuous bool) (*sim.Simulation, error) {
	kind, err := engine.ParseKind(engineKind)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid engine", err)
	}
	ord, err := compiler.ParseOrder(order)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid transition order", err)
	}
	simOpts := []sim.Option{
		sim.WithEngine(kind),
		sim.WithTransitionOrder(ord),
	}
	if cmd.Flags().Changed("seed") {
		simOpts = append(simOpts, sim.WithSeed(seed))
	}
	if continuous {
		simOpts = append(simOpts, sim.WithContinuousTime())
	}
	s, err := sim.New(p.InitConfig(), p.Rule(), simOpts...)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to build simulation", err)
	}
	return s, nil
}

func runSimulation(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, err := LoadProtocol(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load protocol", err)
	}
	formatter.VerboseLog("loaded protocol %q with %d transitions", p.Name, len(p.Transitions))

	s, err := buildSimulation(p, cmd, opts.Engine, opts.Order, opts.Seed, opts.Continuous)
	if err != nil {
		return err
	}
	slog.Debug("simulation ready", "states", len(s.States()), "n", s.N(), "seed", s.Seed())

	stop := sim.UntilSilent()
	if opts.Time >= 0 {
		stop = sim.RunFor(opts.Time)
	}
	progress := opts.Progress && opts.Format != "json"

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := s.Run(ctx, stop,
		sim.WithHistoryInterval(opts.HistoryInterval),
		sim.WithStoppingInterval(opts.StoppingInterval),
		sim.WithProgress(progress),
	); err != nil {
		if ctx.Err() != nil {
			return WrapExitError(ExitFailure, "run interrupted", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}

	config := make(map[string]int64)
	for st, c := range s.ConfigMap() {
		config[protocol.Repr(st)] = c
	}
	return formatter.Success(RunResult{
		Protocol: p.Name,
		Time:     s.Time(),
		Steps:    s.Step(),
		Records:  s.History().Len(),
		Config:   config,
	})
}
