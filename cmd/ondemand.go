package cmd

import (
	"github.com/spf13/cobra"
)

func newOnDemandCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ondemand",
		Aliases: []string{"od"},
		Short:   "Print on-demand offers for the configured instance type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnDemand(cmd.Context(), cmd.OutOrStdout(), d)
		},
	}
}
