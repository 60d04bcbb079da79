package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

func approxMajority() protocol.MapRule {
	return protocol.MapRule{
		protocol.Pair{A: "A", B: "B"}: protocol.Deterministic{A: "U", B: "U"},
		protocol.Pair{A: "A", B: "U"}: protocol.Deterministic{A: "A", B: "A"},
		protocol.Pair{A: "B", B: "U"}: protocol.Deterministic{A: "B", B: "B"},
	}
}

func approxMajorityStates() []protocol.State {
	return []protocol.State{"A", "B", "U"}
}

func TestCompile_ApproxMajority(t *testing.T) {
	tbl, err := Compile(approxMajorityStates(), approxMajority(), OrderAsymmetric)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Q)
	assert.Len(t, tbl.Delta, 9)
	assert.Len(t, tbl.Null, 9)

	// (A, B) -> (U, U)
	assert.False(t, tbl.IsNull(0, 1))
	x, y := tbl.DeltaAt(0, 1)
	assert.Equal(t, [2]int{2, 2}, [2]int{x, y})

	// (U, A) is absent from the rule, hence null with identity delta.
	assert.True(t, tbl.IsNull(2, 0))
	x, y = tbl.DeltaAt(2, 0)
	assert.Equal(t, [2]int{2, 0}, [2]int{x, y})
}

func TestCompile_IdentityOutputIsNull(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "B"}: protocol.Deterministic{A: "A", B: "B"},
		protocol.Pair{A: "B", B: "A"}: protocol.Deterministic{A: "A", B: "B"},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)
	require.NoError(t, err)

	assert.True(t, tbl.IsNull(0, 1), "explicit identity output is a null transition")
	assert.True(t, tbl.IsNull(1, 0), "swapped identity output is also null")
}

func TestCompile_DistributionShortfallAppended(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Distribution{
			{Out: protocol.Pair{A: "B", B: "B"}, Prob: 0.25},
		},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)
	require.NoError(t, err)

	require.True(t, tbl.IsRandom(0, 0))
	count, offset := tbl.RandomAt(0, 0)
	require.Equal(t, 2, count)
	assert.Equal(t, [2]int{1, 1}, tbl.RandomOutputs[offset])
	assert.Equal(t, 0.25, tbl.RandomProbs[offset])
	assert.Equal(t, [2]int{0, 0}, tbl.RandomOutputs[offset+1], "shortfall goes to the identity outcome")
	assert.Equal(t, 0.75, tbl.RandomProbs[offset+1])
}

func TestCompile_DistributionShortfallMerged(t *testing.T) {
	// The identity outcome is already listed: the shortfall is added to it
	// rather than duplicating the entry.
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Distribution{
			{Out: protocol.Pair{A: "B", B: "B"}, Prob: 0.5},
			{Out: protocol.Pair{A: "A", B: "A"}, Prob: 0.25},
		},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)
	require.NoError(t, err)

	count, offset := tbl.RandomAt(0, 0)
	require.Equal(t, 2, count)
	assert.Equal(t, 0.75, tbl.RandomProbs[offset+1])
}

func TestCompile_SingleOutcomeCollapsesToDeterministic(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Distribution{
			{Out: protocol.Pair{A: "B", B: "B"}, Prob: 1},
		},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)
	require.NoError(t, err)

	assert.False(t, tbl.IsRandom(0, 0))
	assert.False(t, tbl.IsNull(0, 0))
	x, y := tbl.DeltaAt(0, 0)
	assert.Equal(t, [2]int{1, 1}, [2]int{x, y})
}

func TestCompile_IdentityDistributionCollapsesToNull(t *testing.T) {
	// After the shortfall rewrite the whole mass sits on the identity
	// outcome, so the cell is null.
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Distribution{
			{Out: protocol.Pair{A: "A", B: "A"}, Prob: 0.5},
		},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)
	require.NoError(t, err)

	assert.True(t, tbl.IsNull(0, 0))
}

func TestCompile_ProbabilitySumAboveOne(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Distribution{
			{Out: protocol.Pair{A: "B", B: "B"}, Prob: 0.75},
			{Out: protocol.Pair{A: "A", B: "B"}, Prob: 0.5},
		},
	}

	_, err := Compile([]protocol.State{"A", "B"}, rule, OrderAsymmetric)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrBadProbability, cerr.Code)
}

func TestCompile_UnknownOutputState(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "A"}: protocol.Deterministic{A: "Z", B: "A"},
	}

	_, err := Compile([]protocol.State{"A"}, rule, OrderAsymmetric)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrUnknownState, cerr.Code)
}

func TestCompile_SymmetricFillsReverse(t *testing.T) {
	tbl, err := Compile(approxMajorityStates(), approxMajority(), OrderSymmetric)
	require.NoError(t, err)

	// (B, A) is absent from the rule but inherits (A, B) -> (U, U).
	assert.False(t, tbl.IsNull(1, 0))
	x, y := tbl.DeltaAt(1, 0)
	assert.Equal(t, [2]int{2, 2}, [2]int{x, y})

	// (U, A) inherits (A, U) -> (A, A).
	assert.False(t, tbl.IsNull(2, 0))
	x, y = tbl.DeltaAt(2, 0)
	assert.Equal(t, [2]int{0, 0}, [2]int{x, y})
}

func TestCompile_SymmetricKeepsExplicitBothDirections(t *testing.T) {
	// Both directions given with different outputs: symmetric mode leaves
	// them as evaluated.
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "B"}: protocol.Deterministic{A: "A", B: "A"},
		protocol.Pair{A: "B", B: "A"}: protocol.Deterministic{A: "B", B: "B"},
	}

	tbl, err := Compile([]protocol.State{"A", "B"}, rule, OrderSymmetric)
	require.NoError(t, err)

	x, y := tbl.DeltaAt(0, 1)
	assert.Equal(t, [2]int{0, 0}, [2]int{x, y})
	x, y = tbl.DeltaAt(1, 0)
	assert.Equal(t, [2]int{1, 1}, [2]int{x, y})
}

func TestCompile_SymmetricEnforcedRejectsInconsistency(t *testing.T) {
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "B"}: protocol.Deterministic{A: "A", B: "A"},
		protocol.Pair{A: "B", B: "A"}: protocol.Deterministic{A: "B", B: "B"},
	}

	_, err := Compile([]protocol.State{"A", "B"}, rule, OrderSymmetricEnforced)

	var ierr *InconsistentRuleError
	require.ErrorAs(t, err, &ierr)
}

func TestCompile_SymmetricEnforcedAcceptsSwappedOutputs(t *testing.T) {
	// (A, B) -> (U, A) and (B, A) -> (A, U) are the same unordered output.
	rule := protocol.MapRule{
		protocol.Pair{A: "A", B: "B"}: protocol.Deterministic{A: "U", B: "A"},
		protocol.Pair{A: "B", B: "A"}: protocol.Deterministic{A: "A", B: "U"},
	}

	_, err := Compile([]protocol.State{"A", "B", "U"}, rule, OrderSymmetricEnforced)
	assert.NoError(t, err)
}

func TestParseOrder(t *testing.T) {
	for _, s := range []string{"asymmetric", "symmetric", "symmetric_enforced"} {
		order, err := ParseOrder(s)
		require.NoError(t, err)
		assert.Equal(t, Order(s), order)
	}

	_, err := ParseOrder("bidirectional")
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrUnknownOrder, cerr.Code)
}
