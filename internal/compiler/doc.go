// Package compiler turns a pairwise protocol rule into the dense numeric
// transition tables consumed by the stepping engines.
//
// Compilation evaluates the rule for every ordered pair of the state
// universe and classifies each cell as null, deterministic, or random.
// Probabilistic cells are normalized so their probabilities sum to exactly
// 1, with any shortfall assigned to the identity outcome. The transition
// order mode controls whether a null cell inherits the output of its
// reverse pair, and whether mismatched reverse outputs are an error.
//
// All errors are raised synchronously at compile time; a failed Compile
// leaves no partially built table.
package compiler
