package root

import (
	"github.com/spf13/cobra"

	"github.com/tjfontaine/estimate-executor/cmd/estimator/quote"
	"github.com/tjfontaine/estimate-executor/cmd/estimator/serve"
	"github.com/tjfontaine/estimate-executor/cmd/estimator/version"
)

// NewRootCmd creates the root command for estimator.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimator",
		Short: "Instant estimate request executor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serve.NewCmd())
	cmd.AddCommand(quote.NewCmd())
	cmd.AddCommand(version.NewCmd())

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
