// Package sim orchestrates population-protocol simulations: it compiles a
// rule into transition tables, owns a stepping engine, and drives it
// through simulated time under stop conditions, wall-clock budgets, and
// periodic history recording.
//
// The run loop is single-threaded and cooperative. The only suspension
// point is the bounded call into the stepper, which may return early under
// a wall-clock ceiling; cancellation is honored at checkpoint boundaries
// only.
package sim

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
	"github.com/UnHumbleBen/ppsim/internal/engine"
	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// Simulation owns one compiled protocol and one stepper. The state
// universe and transition table are computed at construction and are
// immutable; the configuration and clock mutate on every step.
type Simulation struct {
	states     []protocol.State
	index      map[protocol.State]int
	table      *compiler.Table
	stepper    engine.Stepper
	engineKind engine.Kind
	order      compiler.Order
	clock      *Clock
	history    *History
	snapshots  []*scheduledSnapshot
	n          int64
	seed       uint64
	now        func() time.Time
}

type simConfig struct {
	engineKind engine.Kind
	order      compiler.Order
	seed       uint64
	seedSet    bool
	continuous bool
	timeUnits  string
	now        func() time.Time
}

// Option configures a simulation at construction time.
type Option func(*simConfig)

// WithEngine selects the stepper implementation. Defaults to the batch
// stepper.
func WithEngine(kind engine.Kind) Option {
	return func(c *simConfig) { c.engineKind = kind }
}

// WithTransitionOrder selects how the rule's input pairs are interpreted.
// Defaults to asymmetric.
func WithTransitionOrder(order compiler.Order) Option {
	return func(c *simConfig) { c.order = order }
}

// WithSeed fixes the seed for all pseudorandom number generation. Without
// it a time-derived seed is used.
func WithSeed(seed uint64) Option {
	return func(c *simConfig) {
		c.seed = seed
		c.seedSet = true
	}
}

// WithContinuousTime selects the Poisson continuous-time model.
// Reaction-derived rules force this regardless.
func WithContinuousTime() Option {
	return func(c *simConfig) { c.continuous = true }
}

// WithTimeUnits attaches a unit label to reported times.
func WithTimeUnits(units string) Option {
	return func(c *simConfig) { c.timeUnits = units }
}

// WithWallClock overrides the wall-clock source used for snapshot
// scheduling. Tests use this with a fake clock.
func WithWallClock(now func() time.Time) Option {
	return func(c *simConfig) { c.now = now }
}

// New builds a simulation from an initial configuration and a rule. It
// enumerates the reachable state universe, compiles the transition table,
// and constructs the stepper; all configuration and compile errors are
// returned here, before any stepping.
func New(init map[protocol.State]int64, rule protocol.Rule, opts ...Option) (*Simulation, error) {
	cfg := simConfig{
		engineKind: engine.KindBatch,
		order:      compiler.OrderAsymmetric,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.seedSet {
		cfg.seed = uint64(time.Now().UnixNano())
	}

	var n int64
	for _, c := range init {
		if c < 0 {
			return nil, &ConfigError{Message: "initial configuration counts must be nonnegative"}
		}
		n += c
	}

	stepsPerUnit := float64(n)
	if rr, ok := rule.(protocol.ReactionRule); ok {
		stepsPerUnit *= rr.RateScale
		cfg.continuous = true
	}

	states := protocol.Enumerate(init, rule)
	protocol.SortByRepr(states)
	index := make(map[protocol.State]int, len(states))
	for i, st := range states {
		index[st] = i
	}

	table, err := compiler.Compile(states, rule, cfg.order)
	if err != nil {
		return nil, err
	}

	config := make([]int64, len(states))
	for st, c := range init {
		config[index[st]] += c
	}

	stepper, err := engine.New(cfg.engineKind, table, config, cfg.seed)
	if err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}

	return &Simulation{
		states:     states,
		index:      index,
		table:      table,
		stepper:    stepper,
		engineKind: cfg.engineKind,
		order:      cfg.order,
		clock:      newClock(stepsPerUnit, cfg.continuous, cfg.timeUnits, cfg.seed),
		history:    newHistory(config),
		n:          n,
		seed:       cfg.seed,
		now:        cfg.now,
	}, nil
}

// N returns the population size.
func (s *Simulation) N() int64 { return s.n }

// Time returns the current simulated time.
func (s *Simulation) Time() float64 { return s.clock.Time }

// Step returns the stepper's current interaction step count.
func (s *Simulation) Step() int64 { return s.stepper.Step() }

// Seed returns the seed in use.
func (s *Simulation) Seed() uint64 { return s.seed }

// History returns the recorded history.
func (s *Simulation) History() *History { return s.history }

// Table returns the compiled transition table.
func (s *Simulation) Table() *compiler.Table { return s.table }

// States returns the state universe in its canonical order.
func (s *Simulation) States() []protocol.State {
	return append([]protocol.State(nil), s.states...)
}

// StateIndex returns the dense index of a state.
func (s *Simulation) StateIndex(st protocol.State) (int, bool) {
	i, ok := s.index[st]
	return i, ok
}

// Config returns a copy of the current per-state counts.
func (s *Simulation) Config() []int64 {
	return append([]int64(nil), s.stepper.Config()...)
}

// ConfigMap returns the current configuration as a map from states to
// their nonzero counts.
func (s *Simulation) ConfigMap() map[protocol.State]int64 {
	out := make(map[protocol.State]int64)
	for i, c := range s.stepper.Config() {
		if c != 0 {
			out[s.states[i]] = c
		}
	}
	return out
}

func (s *Simulation) configFromMap(m map[protocol.State]int64) ([]int64, error) {
	config := make([]int64, len(s.states))
	for st, c := range m {
		i, ok := s.index[st]
		if !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("state %v is not in the state universe", st)}
		}
		config[i] += c
	}
	return config, nil
}

// Reset reinstalls an initial configuration: history truncates to a
// single initial entry, simulated time and step count return to zero, and
// the stepper is fully re-synchronized with no carry-over. A nil init
// reuses the original initial configuration. The compiled table is
// preserved.
func (s *Simulation) Reset(init map[protocol.State]int64) error {
	var config []int64
	if init == nil {
		_, first := s.history.At(0)
		config = append([]int64(nil), first...)
	} else {
		var err error
		config, err = s.configFromMap(init)
		if err != nil {
			return err
		}
	}
	s.history.Reset(config)
	s.clock.Time = 0
	s.stepper.Reset(config, 0)
	var n int64
	for _, c := range config {
		n += c
	}
	s.n = n
	return nil
}

// SetConfig swaps the live configuration at the current time and step
// count, and records it in history.
func (s *Simulation) SetConfig(m map[protocol.State]int64) error {
	config, err := s.configFromMap(m)
	if err != nil {
		return err
	}
	s.stepper.Reset(config, s.stepper.Step())
	var n int64
	for _, c := range config {
		n += c
	}
	s.n = n
	return s.history.Append(s.clock.Time, config)
}

// StopCondition decides when a run ends. Construct one with RunFor,
// RunUntil, or UntilSilent.
type StopCondition interface {
	isStop()
}

type runFor float64

func (runFor) isStop() {}

type runUntil func(map[protocol.State]int64) bool

func (runUntil) isStop() {}

type untilSilent struct{}

func (untilSilent) isStop() {}

// RunFor stops after a fixed amount of simulated time.
func RunFor(d float64) StopCondition { return runFor(d) }

// RunUntil stops once the predicate holds on the live configuration.
func RunUntil(pred func(map[protocol.State]int64) bool) StopCondition { return runUntil(pred) }

// UntilSilent stops once the stepper reports that every possible
// interaction is null. Only steppers with quiescence detection support it.
func UntilSilent() StopCondition { return untilSilent{} }

type runConfig struct {
	historyInterval func(t float64) float64
	stopInterval    float64
	progress        bool
}

// RunOption configures a single run.
type RunOption func(*runConfig)

// WithHistoryInterval sets the simulated-time length between history
// records. Defaults to 1.
func WithHistoryInterval(v float64) RunOption {
	return func(c *runConfig) { c.historyInterval = func(float64) float64 { return v } }
}

// WithHistoryIntervalFunc sets the recording interval as a function of
// the current simulated time.
func WithHistoryIntervalFunc(f func(t float64) float64) RunOption {
	return func(c *runConfig) { c.historyInterval = f }
}

// WithStoppingInterval sets how much simulated time passes between stop
// condition checks. Defaults to 1.
func WithStoppingInterval(v float64) RunOption {
	return func(c *runConfig) { c.stopInterval = v }
}

// WithProgress controls the auto-attached progress snapshot. When
// enabled (the default) and no snapshots are attached, a TimeUpdate is
// attached for the duration of the run.
func WithProgress(enabled bool) RunOption {
	return func(c *runConfig) { c.progress = enabled }
}

// Run advances the simulation until the stop condition holds.
//
// The loop repeatedly picks the next checkpoint time (the earliest of the
// next history record, the next stop check, and the end time for
// time-bounded runs), converts the delta to a step target, and asks the
// stepper to advance. A stepper may return early under the wall-clock
// ceiling derived from the attached snapshots' update intervals; simulated
// time then advances by the fraction of requested progress actually made,
// so interrupted advances lose no progress and keep the time/step
// correspondence intact.
//
// ctx is checked at checkpoint boundaries only; there is no mid-checkpoint
// cancellation.
func (s *Simulation) Run(ctx context.Context, stop StopCondition, opts ...RunOption) error {
	rc := runConfig{
		historyInterval: func(float64) float64 { return 1 },
		stopInterval:    1,
		progress:        true,
	}
	for _, opt := range opts {
		opt(&rc)
	}
	if rc.stopInterval <= 0 {
		return &ConfigError{Message: "stopping interval must be strictly positive"}
	}

	var endTime float64
	hasEnd := false
	var stopNow func() bool
	switch c := stop.(type) {
	case nil, untilSilent:
		qd, ok := s.stepper.(engine.QuiescenceDetector)
		if !ok {
			return &ConfigError{Message: fmt.Sprintf("running until silence requires quiescence detection; the %s stepper has none", s.engineKind)}
		}
		stopNow = qd.Silent
	case runFor:
		endTime = s.clock.Time + float64(c)
		hasEnd = true
		stopNow = func() bool { return s.clock.Time >= endTime }
	case runUntil:
		if c == nil {
			return &ConfigError{Message: "stop predicate must not be nil"}
		}
		stopNow = func() bool { return c(s.ConfigMap()) }
	default:
		return &ConfigError{Message: fmt.Sprintf("unknown stop condition %T", stop)}
	}

	// No-op run when the condition already holds.
	if stopNow() {
		return nil
	}

	nextHistoryAfter := func() (float64, error) {
		length := rc.historyInterval(s.clock.Time)
		if length <= 0 {
			return 0, &ConfigError{Message: "history interval must be strictly positive"}
		}
		return s.clock.Time + length, nil
	}
	nextHistory, err := nextHistoryAfter()
	if err != nil {
		return err
	}

	auto := false
	if rc.progress && len(s.snapshots) == 0 {
		s.AddSnapshot(&TimeUpdate{})
		auto = true
	}

	nextCheckpoint := func() float64 {
		t := math.Min(nextHistory, s.clock.Time+rc.stopInterval)
		if hasEnd {
			t = math.Min(t, endTime)
		}
		return t
	}
	nextTime := nextCheckpoint()
	nextStep := s.stepper.Step() + s.clock.StepsFor(nextTime-s.clock.Time)

	armed := s.now()
	for _, sc := range s.snapshots {
		sc.deadline = armed.Add(sc.snap.Interval())
	}
	ceiling := s.minSnapshotInterval()

	for !stopNow() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.clock.Time >= nextTime {
			t := nextCheckpoint()
			nextStep += s.clock.StepsFor(t - nextTime)
			nextTime = t
		}
		before := s.stepper.Step()
		s.stepper.Run(nextStep, ceiling)
		after := s.stepper.Step()
		switch {
		case after == nextStep:
			s.clock.Time = nextTime
		case after < nextStep:
			// Early return under the wall-clock ceiling: advance by the
			// fraction of the requested steps actually executed.
			s.clock.Time += (nextTime - s.clock.Time) * float64(after-before) / float64(nextStep-before)
		default:
			return &ContractError{Message: fmt.Sprintf("stepper ran to step %d past the target %d", after, nextStep)}
		}
		if s.clock.Time >= nextHistory {
			if s.clock.Time > nextHistory {
				return &ContractError{Message: fmt.Sprintf("time %v overshot the history checkpoint %v", s.clock.Time, nextHistory)}
			}
			if err := s.history.Append(s.clock.Time, s.stepper.Config()); err != nil {
				return err
			}
			nextHistory, err = nextHistoryAfter()
			if err != nil {
				return err
			}
		}
		wall := s.now()
		for _, sc := range s.snapshots {
			if !wall.Before(sc.deadline) {
				sc.snap.Update(s.clock.Time, s.stepper.Config())
				sc.deadline = wall.Add(sc.snap.Interval())
			}
		}
	}

	// Record the true final time if no entry exists there yet.
	if s.clock.Time > s.history.LastTime() {
		if err := s.history.Append(s.clock.Time, s.stepper.Config()); err != nil {
			return err
		}
	}
	for _, sc := range s.snapshots {
		sc.snap.Update(s.clock.Time, s.stepper.Config())
	}
	if auto && len(s.snapshots) == 1 {
		if tu, ok := s.snapshots[0].snap.(*TimeUpdate); ok {
			fmt.Fprintln(tu.out())
			s.snapshots = s.snapshots[:0]
		}
	}
	return nil
}

// SampleSilenceTime starts a fresh trial from the initial configuration
// and returns the simulated time at which it became silent.
func (s *Simulation) SampleSilenceTime(ctx context.Context) (float64, error) {
	if err := s.Reset(nil); err != nil {
		return 0, err
	}
	if err := s.Run(ctx, UntilSilent(), WithProgress(false)); err != nil {
		return 0, err
	}
	return s.clock.Time, nil
}

// SampleFutureConfiguration repeatedly samples the configuration a fixed
// simulated-time delta ahead of the last recorded configuration. Each
// sample fully re-synchronizes the stepper to that configuration and the
// current step count before running, so samples are independent trials.
func (s *Simulation) SampleFutureConfiguration(delta float64, samples int) ([][]int64, error) {
	if samples <= 0 {
		return nil, &ConfigError{Message: "sample count must be positive"}
	}
	_, last := s.history.At(s.history.Len() - 1)
	start := s.stepper.Step()
	out := make([][]int64, 0, samples)
	for k := 0; k < samples; k++ {
		s.stepper.Reset(last, start)
		s.stepper.Run(start+s.clock.StepsFor(delta), 0)
		out = append(out, append([]int64(nil), s.stepper.Config()...))
	}
	return out, nil
}
