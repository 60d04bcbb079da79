package sim

import (
	"fmt"
	"strings"

	"github.com/UnHumbleBen/ppsim/internal/engine"
	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// Reactions returns every non-null transition in reaction notation, one
// per line:
//
//	A, B  -->  U, U
//	C, C  -->  C, D      with probability 0.5
//
// Reactants and products are listed in canonical state order and
// symmetric duplicates are collapsed. Only steppers that enumerate
// reactions support this; others return a ConfigError.
func (s *Simulation) Reactions() (string, error) {
	if _, ok := s.stepper.(engine.ReactionLister); !ok {
		return "", &ConfigError{Message: fmt.Sprintf("reaction listings require the %s stepper", engine.KindBatch)}
	}
	var lines []string
	seen := make(map[string]bool)
	w := s.maxStateWidth()
	for i := 0; i < s.table.Q; i++ {
		for j := 0; j < s.table.Q; j++ {
			for _, line := range s.cellReactions(i, j, w) {
				if !seen[line] {
					seen[line] = true
					lines = append(lines, line)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// EnabledReactions returns the non-null transitions enabled by the
// current configuration, in the same notation as Reactions.
func (s *Simulation) EnabledReactions() (string, error) {
	lister, ok := s.stepper.(engine.ReactionLister)
	if !ok {
		return "", &ConfigError{Message: fmt.Sprintf("reaction listings require the %s stepper", engine.KindBatch)}
	}
	var lines []string
	seen := make(map[string]bool)
	w := s.maxStateWidth()
	for _, pair := range lister.EnabledPairs() {
		for _, line := range s.cellReactions(pair[0], pair[1], w) {
			if !seen[line] {
				seen[line] = true
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// cellReactions renders the reaction lines for table cell (i, j).
func (s *Simulation) cellReactions(i, j, width int) []string {
	if s.table.IsNull(i, j) {
		return nil
	}
	if count, offset := s.table.RandomAt(i, j); count > 0 {
		lines := make([]string, 0, count)
		for k := 0; k < count; k++ {
			out := s.table.RandomOutputs[offset+k]
			lines = append(lines, s.reactionLine(i, j, out[0], out[1], s.table.RandomProbs[offset+k], width))
		}
		return lines
	}
	x, y := s.table.DeltaAt(i, j)
	return []string{s.reactionLine(i, j, x, y, 1, width)}
}

func (s *Simulation) reactionLine(i, j, x, y int, p float64, width int) string {
	if i > j {
		i, j = j, i
	}
	if x > y {
		x, y = y, x
	}
	line := fmt.Sprintf("%s, %s  -->  %s, %s",
		s.pad(i, width), s.pad(j, width), s.pad(x, width), s.pad(y, width))
	if p < 1 {
		line += fmt.Sprintf("      with probability %v", p)
	}
	return line
}

func (s *Simulation) pad(i, width int) string {
	r := protocol.Repr(s.states[i])
	if len(r) < width {
		return strings.Repeat(" ", width-len(r)) + r
	}
	return r
}

func (s *Simulation) maxStateWidth() int {
	w := 1
	for _, st := range s.states {
		if l := len(protocol.Repr(st)); l > w {
			w = l
		}
	}
	return w
}
