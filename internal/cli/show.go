package cli

import (
	"github.com/spf13/cobra"

	"github.com/UnHumbleBen/ppsim/internal/compiler"
	"github.com/UnHumbleBen/ppsim/internal/engine"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Order   string
	Enabled bool
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <protocol.yaml>",
		Short: "List a protocol's compiled reactions",
		Long: `Compile a protocol definition and list its non-null transitions in
reaction notation. With --enabled, only transitions enabled by the
initial configuration are listed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Order, "order", string(compiler.OrderAsymmetric), "transition order (asymmetric|symmetric|symmetric_enforced)")
	cmd.Flags().BoolVar(&opts.Enabled, "enabled", false, "list only reactions enabled by the initial configuration")

	return cmd
}

func runShow(opts *ShowOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	p, err := LoadProtocol(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load protocol", err)
	}
	s, err := buildSimulation(p, cmd, string(engine.KindBatch), opts.Order, 0, false)
	if err != nil {
		return err
	}

	var listing string
	if opts.Enabled {
		listing, err = s.EnabledReactions()
	} else {
		listing, err = s.Reactions()
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list reactions", err)
	}
	return formatter.Success(listing)
}
