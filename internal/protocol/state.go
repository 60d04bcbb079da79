package protocol

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// State is an agent state. States must be comparable (usable as map keys)
// and are treated as immutable: a state value passed into rule evaluation
// must not be observably mutated from the caller's point of view.
type State any

// Cloner is implemented by structured states that a rule function may
// mutate in place. Evaluate clones such states before invoking the
// function, so mutation is never observable through the original value.
type Cloner interface {
	Clone() State
}

func cloneState(s State) State {
	if c, ok := s.(Cloner); ok {
		return c.Clone()
	}
	return s
}

// Repr returns the display representation of a state. Reprs define the
// total order over the state universe and name states in reaction
// listings; they carry no semantics.
func Repr(s State) string {
	return fmt.Sprintf("%v", s)
}

// SortByRepr sorts states in place by their representation, using a
// numeric-aware collation so that e.g. "L2" sorts before "L10". The order
// is chosen for determinism and stable display only.
func SortByRepr(states []State) {
	c := collate.New(language.Und, collate.Numeric)
	sort.SliceStable(states, func(i, j int) bool {
		return c.CompareString(Repr(states[i]), Repr(states[j])) < 0
	})
}
