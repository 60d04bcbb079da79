package sim

import (
	"fmt"
	"time"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
	"github.com/UnHumbleBen/ppsim/internal/engine"
	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// SavedState is the persistable value snapshot of a simulation: the
// ordered state universe, the compiled transition table, the recorded
// history, the clock parameters, and the seed. The stepping engine is
// deliberately excluded; Restore rebuilds it from the last recorded
// configuration, the table, and the seed.
//
// States are persisted by their display representation, so a restored
// simulation sees string states. That is enough to resume stepping,
// recording, and serialization; callers that need their original
// structured state values keep them on their side of the boundary.
type SavedState struct {
	States       []string        `json:"states"`
	Table        *compiler.Table `json:"table"`
	Times        []float64       `json:"times"`
	Configs      [][]int64       `json:"configs"`
	Time         float64         `json:"time"`
	Step         int64           `json:"step"`
	StepsPerUnit float64         `json:"steps_per_unit"`
	Continuous   bool            `json:"continuous"`
	TimeUnits    string          `json:"time_units,omitempty"`
	Seed         uint64          `json:"seed"`
	Engine       engine.Kind     `json:"engine"`
	Order        compiler.Order  `json:"order"`
}

// Save captures the current simulation as a SavedState. All sequences are
// copied; the saved value is independent of the live simulation.
func (s *Simulation) Save() *SavedState {
	times := append([]float64(nil), s.history.Times()...)
	configs := make([][]int64, s.history.Len())
	for i := range configs {
		_, c := s.history.At(i)
		configs[i] = append([]int64(nil), c...)
	}
	states := make([]string, len(s.states))
	for i, st := range s.states {
		states[i] = protocol.Repr(st)
	}
	return &SavedState{
		States:       states,
		Table:        s.table,
		Times:        times,
		Configs:      configs,
		Time:         s.clock.Time,
		Step:         s.stepper.Step(),
		StepsPerUnit: s.clock.StepsPerUnit,
		Continuous:   s.clock.Continuous,
		TimeUnits:    s.clock.TimeUnits,
		Seed:         s.seed,
		Engine:       s.engineKind,
		Order:        s.order,
	}
}

// Restore rehydrates a simulation from saved state. The stepper is
// reconstructed from the last recorded configuration and reinstalled at
// the saved step count; nothing of the original engine instance is
// required.
func Restore(sv *SavedState) (*Simulation, error) {
	if sv.Table == nil {
		return nil, &ConfigError{Message: "saved state has no transition table"}
	}
	if sv.Table.Q != len(sv.States) {
		return nil, &ConfigError{Message: fmt.Sprintf("saved table is %dx%d but %d states are recorded", sv.Table.Q, sv.Table.Q, len(sv.States))}
	}
	history, err := historyFromSequences(sv.Times, sv.Configs)
	if err != nil {
		return nil, err
	}

	states := make([]protocol.State, len(sv.States))
	index := make(map[protocol.State]int, len(sv.States))
	for i, r := range sv.States {
		states[i] = r
		index[r] = i
	}

	_, last := history.At(history.Len() - 1)
	stepper, err := engine.New(sv.Engine, sv.Table, last, sv.Seed)
	if err != nil {
		return nil, &ConfigError{Message: err.Error()}
	}
	stepper.Reset(last, sv.Step)

	var n int64
	for _, c := range last {
		n += c
	}

	clock := newClock(sv.StepsPerUnit, sv.Continuous, sv.TimeUnits, sv.Seed)
	clock.Time = sv.Time

	return &Simulation{
		states:     states,
		index:      index,
		table:      sv.Table,
		stepper:    stepper,
		engineKind: sv.Engine,
		order:      sv.Order,
		clock:      clock,
		history:    history,
		n:          n,
		seed:       sv.Seed,
		now:        time.Now,
	}, nil
}
