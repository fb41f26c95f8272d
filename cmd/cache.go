package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/emaland/pricedata/internal/cache"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear cached API responses",
	}
	ls := &cobra.Command{
		Use:         "ls",
		Short:       "List cached responses",
		Annotations: map[string]string{skipAWSAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCache(cmd.OutOrStdout(), d.store)
		},
	}
	purge := &cobra.Command{
		Use:         "purge",
		Short:       "Delete every cached response, lut.json included",
		Annotations: map[string]string{skipAWSAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := d.store.Purge()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached files from %s\n", n, d.store.Dir())
			return nil
		},
	}
	cmd.AddCommand(ls, purge)
	return cmd
}

func listCache(w io.Writer, store *cache.Store) error {
	entries, err := store.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(w, "No cached responses in %s.\n", store.Dir())
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.Size, e.ModTime.Format(time.RFC3339))
	}
	return tw.Flush()
}
