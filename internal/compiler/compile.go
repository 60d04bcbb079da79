package compiler

import (
	"fmt"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// Compile evaluates rule over every ordered pair of the state universe and
// synthesizes the dense transition table. states must be the full
// reachable set (see protocol.Enumerate) in its canonical order; an output
// naming a state outside it is an error.
func Compile(states []protocol.State, rule protocol.Rule, order Order) (*Table, error) {
	q := len(states)
	index := make(map[protocol.State]int, q)
	for i, s := range states {
		index[s] = i
	}
	lookup := func(s protocol.State) (int, error) {
		i, ok := index[s]
		if !ok {
			return 0, &Error{
				Code:    ErrUnknownState,
				Message: fmt.Sprintf("rule output names state %v outside the state universe", s),
			}
		}
		return i, nil
	}

	t := &Table{
		Q:            q,
		Delta:        make([][2]int, q*q),
		Null:         make([]bool, q*q),
		RandomCount:  make([]int, q*q),
		RandomOffset: make([]int, q*q),
	}

	for i, a := range states {
		for j, b := range states {
			out, err := normalize(rule.Evaluate(a, b), a, b)
			if err != nil {
				return nil, err
			}
			c := t.cell(i, j)
			switch o := out.(type) {
			case nil:
				t.Null[c] = true
				t.Delta[c] = [2]int{i, j}
			case protocol.Deterministic:
				if isIdentity(o, a, b) {
					t.Null[c] = true
					t.Delta[c] = [2]int{i, j}
					break
				}
				x, err := lookup(o.A)
				if err != nil {
					return nil, err
				}
				y, err := lookup(o.B)
				if err != nil {
					return nil, err
				}
				t.Delta[c] = [2]int{x, y}
			case protocol.Distribution:
				t.RandomCount[c] = len(o)
				t.RandomOffset[c] = len(t.RandomOutputs)
				for _, choice := range o {
					x, err := lookup(choice.Out.A)
					if err != nil {
						return nil, err
					}
					y, err := lookup(choice.Out.B)
					if err != nil {
						return nil, err
					}
					t.RandomOutputs = append(t.RandomOutputs, [2]int{x, y})
					t.RandomProbs = append(t.RandomProbs, choice.Prob)
				}
			}
		}
	}

	if order == OrderSymmetric || order == OrderSymmetricEnforced {
		for i := 0; i < q; i++ {
			for j := 0; j < q; j++ {
				ij, ji := t.cell(i, j), t.cell(j, i)
				if t.Null[ij] {
					if !t.Null[ji] {
						// Inherit the reverse pair's full cell.
						t.Null[ij] = false
						t.Delta[ij] = t.Delta[ji]
						t.RandomCount[ij] = t.RandomCount[ji]
						t.RandomOffset[ij] = t.RandomOffset[ji]
					}
				} else if order == OrderSymmetricEnforced && !t.Null[ji] {
					if !sameOutputSet(t.Delta[ij], t.Delta[ji]) || t.RandomCount[ij] != t.RandomCount[ji] {
						a, b := states[i], states[j]
						return nil, &InconsistentRuleError{
							A:  a,
							B:  b,
							AB: rule.Evaluate(a, b),
							BA: rule.Evaluate(b, a),
						}
					}
				}
			}
		}
	}
	return t, nil
}

// normalize applies the compile-time rewrites of probabilistic outputs:
// validate the probability sum, assign any shortfall to the identity
// outcome (a, b), and collapse a single-outcome distribution to a
// deterministic output. Deterministic and nil outputs pass through.
func normalize(out protocol.Output, a, b protocol.State) (protocol.Output, error) {
	dist, ok := out.(protocol.Distribution)
	if !ok {
		return out, nil
	}
	var sum float64
	for _, c := range dist {
		sum += c.Prob
	}
	if sum > 1 {
		return nil, &Error{
			Code:    ErrBadProbability,
			Message: fmt.Sprintf("output probabilities for (%v, %v) sum to %v > 1", a, b, sum),
		}
	}
	if sum < 1 {
		shortfall := 1 - sum
		identity := protocol.Pair{A: a, B: b}
		norm := make(protocol.Distribution, len(dist))
		copy(norm, dist)
		found := false
		for k := range norm {
			if norm[k].Out == identity {
				norm[k].Prob += shortfall
				found = true
				break
			}
		}
		if !found {
			norm = append(norm, protocol.Choice{Out: identity, Prob: shortfall})
		}
		dist = norm
	}
	if len(dist) == 1 {
		// Only one outcome left: not actually random.
		return protocol.Deterministic(dist[0].Out), nil
	}
	return dist, nil
}

func isIdentity(o protocol.Deterministic, a, b protocol.State) bool {
	return (o.A == a && o.B == b) || (o.A == b && o.B == a)
}

func sameOutputSet(d, e [2]int) bool {
	return (d[0] == e[0] && d[1] == e[1]) || (d[0] == e[1] && d[1] == e[0])
}
