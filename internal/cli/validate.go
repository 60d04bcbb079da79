package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// ValidationResult holds the outcome of validating a protocol file.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (r ValidationResult) String() string {
	if r.Valid {
		return "valid"
	}
	s := "invalid:"
	for _, e := range r.Errors {
		s += "\n  " + e
	}
	return s
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <protocol.yaml>",
		Short: "Validate a protocol definition file",
		Long: `Validate a YAML protocol definition against the protocol schema
without running it. Checks the file shape (init counts, transition pairs,
choice probabilities) and the semantic constraints the loader enforces.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if _, err := os.Stat(path); err != nil {
		return WrapExitError(ExitCommandError, "cannot read protocol file", err)
	}

	if _, err := LoadProtocol(path); err != nil {
		if outErr := formatter.Success(ValidationResult{Valid: false, Errors: []string{err.Error()}}); outErr != nil {
			return outErr
		}
		return NewExitError(ExitFailure, "protocol validation failed")
	}
	return formatter.Success(ValidationResult{Valid: true})
}
