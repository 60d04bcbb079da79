package sim

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Clock tracks simulated time and converts simulated-time deltas to
// interaction step counts.
//
// In the discrete model, StepsPerUnit steps make up one unit of time and
// conversions round up, so a positive delta never under-advances. In the
// continuous model, steps arrive as a Poisson process with rate
// StepsPerUnit per time unit; StepsFor draws the count for a whole delta
// in a single Poisson sample. One draw per checkpoint interval is
// equivalent to drawing per step because arrivals within the interval are
// memoryless; this is a modeling assumption of the clock, not a
// requirement on the stepper.
type Clock struct {
	// Time is the current simulated time.
	Time float64

	// StepsPerUnit is the number of interaction steps per unit of
	// simulated time. Defaults to the population size, so one time unit
	// is n interactions ("parallel time").
	StepsPerUnit float64

	// Continuous selects the Poisson model over deterministic rounding.
	Continuous bool

	// TimeUnits is an optional label for time values, carried through
	// saved state for external presenters. It has no effect here.
	TimeUnits string

	src rand.Source
}

func newClock(stepsPerUnit float64, continuous bool, units string, seed uint64) *Clock {
	return &Clock{
		StepsPerUnit: stepsPerUnit,
		Continuous:   continuous,
		TimeUnits:    units,
		src:          rand.NewSource(seed),
	}
}

// StepsFor converts a simulated-time delta into a step count.
func (c *Clock) StepsFor(delta float64) int64 {
	expected := delta * c.StepsPerUnit
	if expected <= 0 {
		return 0
	}
	if c.Continuous {
		return int64(distuv.Poisson{Lambda: expected, Src: c.src}.Rand())
	}
	return int64(math.Ceil(expected))
}
