package compiler

import "fmt"

// Order selects how the rule's input pairs are interpreted during
// compilation.
type Order string

const (
	// OrderAsymmetric uses the table exactly as evaluated: input order
	// matters and absent pairs are null.
	OrderAsymmetric Order = "asymmetric"

	// OrderSymmetric copies the reverse pair's output into a null cell, so
	// unordered rules only need one direction. Pairs given in both
	// directions are left as evaluated.
	OrderSymmetric Order = "symmetric"

	// OrderSymmetricEnforced is OrderSymmetric plus a consistency check:
	// if both directions are non-null their output sets must match.
	OrderSymmetricEnforced Order = "symmetric_enforced"
)

// ParseOrder validates a transition order mode given as a string.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case OrderAsymmetric, OrderSymmetric, OrderSymmetricEnforced:
		return Order(s), nil
	}
	return "", &Error{
		Code:    ErrUnknownOrder,
		Message: fmt.Sprintf("transition order must be asymmetric, symmetric, or symmetric_enforced, got %q", s),
	}
}

// Table is the compiled q x q transition table over state indices.
// Per-cell arrays are row-major: cell (i, j) lives at index i*Q + j.
//
// Every cell is exactly one of null, deterministic, or random:
//   - Null[c] reports a null transition; Delta[c] equals (i, j).
//   - A deterministic cell has Delta[c] set to the output index pair.
//   - A random cell has RandomCount[c] > 0 distinct outcomes starting at
//     RandomOffset[c] in RandomOutputs/RandomProbs; Delta[c] is unused.
//
// Tables are immutable after compilation and JSON-serializable for saved
// simulation state.
type Table struct {
	Q             int       `json:"q"`
	Delta         [][2]int  `json:"delta"`
	Null          []bool    `json:"null"`
	RandomCount   []int     `json:"random_count"`
	RandomOffset  []int     `json:"random_offset"`
	RandomOutputs [][2]int  `json:"random_outputs"`
	RandomProbs   []float64 `json:"random_probs"`
}

func (t *Table) cell(i, j int) int { return i*t.Q + j }

// IsNull reports whether cell (i, j) is a null transition.
func (t *Table) IsNull(i, j int) bool { return t.Null[t.cell(i, j)] }

// IsRandom reports whether cell (i, j) is a probability distribution.
func (t *Table) IsRandom(i, j int) bool { return t.RandomCount[t.cell(i, j)] > 0 }

// DeltaAt returns the deterministic output indices for cell (i, j).
func (t *Table) DeltaAt(i, j int) (int, int) {
	d := t.Delta[t.cell(i, j)]
	return d[0], d[1]
}

// RandomAt returns the outcome count and the offset into
// RandomOutputs/RandomProbs for cell (i, j).
func (t *Table) RandomAt(i, j int) (count, offset int) {
	c := t.cell(i, j)
	return t.RandomCount[c], t.RandomOffset[c]
}
