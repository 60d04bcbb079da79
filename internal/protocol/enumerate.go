package protocol

// Enumerate discovers the reachable state set: the states of the initial
// distribution, plus every state named by rule(a, b) or rule(b, a) for any
// pair of discovered states, recursively. The search uses an explicit FIFO
// queue so traversal is deterministic; the resulting set does not depend
// on visitation order.
//
// The returned slice is in discovery order. Callers wanting the canonical
// order sort it with SortByRepr.
//
// Termination requires a finite reachable state set. An unbounded state
// space makes Enumerate diverge; that is a caller error.
func Enumerate(init map[State]int64, rule Rule) []State {
	seen := make(map[State]bool, len(init))
	var discovered []State
	var queue []State

	initial := make([]State, 0, len(init))
	for s := range init {
		initial = append(initial, s)
	}
	SortByRepr(initial)
	for _, s := range initial {
		seen[s] = true
		discovered = append(discovered, s)
		queue = append(queue, s)
	}

	add := func(s State) {
		if !seen[s] {
			seen[s] = true
			discovered = append(discovered, s)
			queue = append(queue, s)
		}
	}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		// Pair s with every state discovered so far, itself included.
		// States discovered later pick up the pair when they dequeue.
		known := discovered[:len(discovered):len(discovered)]
		for _, t := range known {
			for _, out := range []Output{rule.Evaluate(t, s), rule.Evaluate(s, t)} {
				switch o := out.(type) {
				case Deterministic:
					add(o.A)
					add(o.B)
				case Distribution:
					for _, c := range o {
						add(c.Out.A)
						add(c.Out.B)
					}
				}
			}
		}
	}
	return discovered
}
