// Package engine provides the interaction steppers that advance a
// population configuration through interaction steps, driven by the
// compiled transition table.
//
// Two interchangeable steppers are provided. Sequential keeps an explicit
// agent array and simulates one interaction at a time; it is the reference
// implementation. Batch works on per-state counts and skips runs of null
// interactions in a single draw, which makes it much faster once most
// interactions are null, and gives it global quiescence detection.
//
// Steppers are single-owner: no concurrent use. Any internal batching is
// invisible to callers beyond the step counter.
package engine

import (
	"fmt"
	"time"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
)

// Kind selects a stepper implementation.
type Kind string

const (
	// KindBatch is the count-based stepper with null-run batching and
	// quiescence detection.
	KindBatch Kind = "batch"

	// KindSequential is the reference agent-array stepper.
	KindSequential Kind = "sequential"
)

// ParseKind validates a stepper kind given as a string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindBatch, KindSequential:
		return Kind(s), nil
	}
	return "", fmt.Errorf("stepper kind must be %q or %q, got %q", KindBatch, KindSequential, s)
}

// Stepper advances a configuration by executing interaction steps.
//
// The contract consumed by the simulation loop:
//   - Run never advances past target.
//   - Step and Config reflect all progress made so far, including partial
//     progress when Run returns early under a wall-clock ceiling.
type Stepper interface {
	// Run advances from the current step toward target. A positive
	// ceiling bounds the wall-clock duration of the call; Run may return
	// early with partial progress once the ceiling has elapsed. A zero
	// ceiling means unbounded.
	Run(target int64, ceiling time.Duration)

	// Reset reinstalls a configuration and step count, with no carry-over
	// from the previous state.
	Reset(config []int64, step int64)

	// Step is the number of interaction steps executed so far.
	Step() int64

	// Config is a live view of the per-state counts, indexed like the
	// compiled table. Callers must copy before retaining.
	Config() []int64
}

// QuiescenceDetector is implemented by steppers that detect global
// silence: a configuration in which every possible interaction is null.
type QuiescenceDetector interface {
	Silent() bool
}

// ReactionLister is implemented by steppers that can enumerate the
// non-null ordered pairs enabled by the current configuration.
type ReactionLister interface {
	EnabledPairs() [][2]int
}

// New builds a stepper of the given kind over a compiled table and an
// initial configuration. The configuration is copied.
func New(kind Kind, table *compiler.Table, config []int64, seed uint64) (Stepper, error) {
	switch kind {
	case KindBatch:
		return NewBatch(table, config, seed), nil
	case KindSequential:
		return NewSequential(table, config, seed), nil
	}
	return nil, fmt.Errorf("stepper kind must be %q or %q, got %q", KindBatch, KindSequential, kind)
}
