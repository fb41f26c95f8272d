package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSpotCmd() *cobra.Command {
	var (
		regions    []string
		maxResults int32
	)

	cmd := &cobra.Command{
		Use:   "spot",
		Short: "Print recent spot prices joined with vCPU counts from the lookup table",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(regions) == 0 {
				regions = d.cfg.TargetRegions
			}
			if cmd.Flags().Changed("max-results") {
				if maxResults < 1 {
					return fmt.Errorf("--max-results must be positive, got %d", maxResults)
				}
				d.cfg.SpotMaxResults = maxResults
			}
			table, err := obtainTable(cmd.Context(), d, false)
			if err != nil {
				return err
			}
			return runSpot(cmd.Context(), cmd.OutOrStdout(), d, regions, table)
		},
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", nil, "Regions to report (default from config target_regions)")
	cmd.Flags().Int32Var(&maxResults, "max-results", 10, "Spot history entries per region")
	return cmd
}
