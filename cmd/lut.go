package cmd

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func newLUTCmd() *cobra.Command {
	var (
		rebuild bool
		region  string
	)

	cmd := &cobra.Command{
		Use:   "lut",
		Short: "Build or show the instance lookup table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLUT(cmd.Context(), cmd.OutOrStdout(), d, rebuild, region)
		},
	}

	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "Rebuild even if lut.json is fresh")
	cmd.Flags().StringVar(&region, "region", "", "Show every instance type of one region")
	return cmd
}

func showLUT(ctx context.Context, w io.Writer, d deps, rebuild bool, region string) error {
	table, err := obtainTable(ctx, d, rebuild)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if region == "" {
		fmt.Fprintln(tw, "REGION\tINSTANCE TYPES")
		for _, r := range table.Regions() {
			fmt.Fprintf(tw, "%s\t%d\n", r, len(table[r]))
		}
		return tw.Flush()
	}

	byType, ok := table[region]
	if !ok {
		return fmt.Errorf("no lookup data for region %s", region)
	}
	names := lo.Keys(byType)
	sort.Strings(names)
	fmt.Fprintln(tw, "INSTANCE TYPE\tVCPU\tMEMORY\tARCH")
	for _, name := range names {
		desc := byType[name]
		fmt.Fprintf(tw, "%s\t%d\t%.1f GiB\t%s\n", name, desc.VCPU, float64(desc.MemoryMiB)/1024.0, desc.Arch)
	}
	return tw.Flush()
}
