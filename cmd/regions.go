package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/emaland/pricedata/internal/lut"
)

func newRegionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List the regions enabled for this account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRegions(cmd.Context(), cmd.OutOrStdout(), d)
		},
	}
}

func listRegions(ctx context.Context, w io.Writer, d deps) error {
	regions, err := lut.ListRegions(ctx, d.home, d.store)
	if err != nil {
		return err
	}
	for _, r := range regions {
		fmt.Fprintln(w, r)
	}
	return nil
}
