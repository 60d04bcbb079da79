// Package protocol defines the state and rule model for population
// protocols: opaque agent states, pairwise transition rules (deterministic
// or probabilistic), and breadth-first enumeration of the reachable state
// set from an initial distribution.
//
// States are opaque values that must be comparable; they are used as map
// keys and compared for identity only. Structured states that a rule
// function may mutate in place should implement Cloner so evaluation can
// pass defensive copies.
package protocol
