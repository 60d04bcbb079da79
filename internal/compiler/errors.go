package compiler

import (
	"fmt"
	"strings"

	"github.com/UnHumbleBen/ppsim/internal/protocol"
)

// ErrorCode categorizes compile-time errors.
type ErrorCode string

const (
	// ErrBadProbability indicates a distribution whose probabilities sum
	// to more than 1.
	ErrBadProbability ErrorCode = "BAD_PROBABILITY"

	// ErrUnknownState indicates a rule output naming a state outside the
	// supplied state universe.
	ErrUnknownState ErrorCode = "UNKNOWN_STATE"

	// ErrUnknownOrder indicates an unrecognized transition order mode.
	ErrUnknownOrder ErrorCode = "UNKNOWN_TRANSITION_ORDER"
)

// Error is a configuration error detected during compilation.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// InconsistentRuleError reports a pair whose forward and reverse outputs
// disagree under the symmetric_enforced transition order. Both observed
// outputs are included so the offending rule entries can be found.
type InconsistentRuleError struct {
	A, B   protocol.State
	AB, BA protocol.Output
}

func (e *InconsistentRuleError) Error() string {
	return fmt.Sprintf("asymmetric interaction: (%v, %v) -> %s but (%v, %v) -> %s",
		e.A, e.B, FormatOutput(e.AB), e.B, e.A, FormatOutput(e.BA))
}

// FormatOutput renders an output for error messages and listings.
func FormatOutput(out protocol.Output) string {
	switch o := out.(type) {
	case nil:
		return "null"
	case protocol.Deterministic:
		return fmt.Sprintf("(%v, %v)", o.A, o.B)
	case protocol.Distribution:
		parts := make([]string, len(o))
		for i, c := range o {
			parts[i] = fmt.Sprintf("(%v, %v): %v", c.Out.A, c.Out.B, c.Prob)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", out)
	}
}
