package protocol

// Pair is an ordered pair of states. The first component is the initiator
// of an interaction, the second the responder.
type Pair struct {
	A, B State
}

// Output is the result of evaluating a rule on an ordered pair of states.
// A nil Output is a null transition. The two concrete forms are
// Deterministic (a single output pair) and Distribution (a probability
// distribution over output pairs).
type Output interface {
	isOutput()
}

// Deterministic is an output consisting of a single pair of states.
type Deterministic Pair

func (Deterministic) isOutput() {}

// Choice is one outcome of a probabilistic transition.
type Choice struct {
	Out  Pair
	Prob float64
}

// Distribution is a probability distribution over output pairs. Order is
// significant: outcomes keep their declaration order through compilation.
// Probabilities must sum to at most 1; any shortfall is assigned to the
// identity outcome at compile time.
type Distribution []Choice

func (Distribution) isOutput() {}

// Rule evaluates the transition for an ordered pair of states. A nil
// result is a null transition: both agents keep their states.
type Rule interface {
	Evaluate(a, b State) Output
}

// MapRule is a rule given as a mapping from ordered pairs to outputs.
// Pairs absent from the map are null transitions.
type MapRule map[Pair]Output

func (r MapRule) Evaluate(a, b State) Output {
	return r[Pair{A: a, B: b}]
}

// TransitionFunc computes the output for an ordered pair of states.
// params carries optional named parameters supplied at rule construction.
type TransitionFunc func(a, b State, params map[string]any) Output

// FuncRule is a rule given as a function. States implementing Cloner are
// copied before each call, and a nil return means the outputs are the
// (possibly mutated) input copies; this mutate-in-place fallback lets a
// function express its transition by editing its arguments.
type FuncRule struct {
	Fn     TransitionFunc
	Params map[string]any
}

func (r FuncRule) Evaluate(a, b State) Output {
	ca, cb := cloneState(a), cloneState(b)
	out := r.Fn(ca, cb, r.Params)
	if out == nil {
		return Deterministic{A: ca, B: cb}
	}
	return out
}

// ReactionRule is a rule pre-translated from a reaction network by an
// external collaborator. RateScale is the rate-derived factor applied to
// the steps-per-time-unit conversion; reaction rules force continuous-time
// semantics.
type ReactionRule struct {
	Mapping   MapRule
	RateScale float64
}

func (r ReactionRule) Evaluate(a, b State) Output {
	return r.Mapping.Evaluate(a, b)
}
