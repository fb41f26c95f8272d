package cmd

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/emaland/pricedata/internal/lut"
	"github.com/emaland/pricedata/internal/ondemand"
	"github.com/emaland/pricedata/internal/output"
	"github.com/emaland/pricedata/internal/spot"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Build or load the lookup table, then print on-demand and spot prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), d)
		},
	}
}

func runReport(ctx context.Context, w io.Writer, d deps) error {
	table, err := obtainTable(ctx, d, false)
	if err != nil {
		return err
	}
	if err := runOnDemand(ctx, w, d); err != nil {
		return err
	}
	return runSpot(ctx, w, d, d.cfg.TargetRegions, table)
}

func newBuilder(d deps) *lut.Builder {
	return &lut.Builder{
		Home:    d.home,
		Clients: d.clients,
		Store:   d.store,
		Workers: d.cfg.Workers,
		Logger:  d.log,
	}
}

// obtainTable loads lut.json when fresh. rebuild ignores whatever is on disk.
func obtainTable(ctx context.Context, d deps, rebuild bool) (lut.Table, error) {
	path := d.cfg.LUTPath()
	if !rebuild {
		return lut.Obtain(ctx, path, time.Duration(d.cfg.LUTMaxAge), newBuilder(d), d.log)
	}
	table, err := newBuilder(d).Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := lut.Save(path, table, time.Now()); err != nil {
		return nil, err
	}
	d.log.Info().Str("file", path).Int("regions", len(table)).Msg("rebuilt instance lookup table")
	return table, nil
}

func runOnDemand(ctx context.Context, w io.Writer, d deps) error {
	r := &ondemand.Reporter{
		Client: d.pricing,
		Store:  d.store,
		Filter: ondemand.Filter{
			InstanceType:          d.cfg.InstanceType,
			OperatingSystem:       d.cfg.OperatingSystem,
			ProcessorArchitecture: d.cfg.ProcessorArchitecture,
			AVXRequired:           d.cfg.AVXRequired,
			PreInstalledSW:        d.cfg.PreInstalledSW,
			Region:                d.cfg.PricingRegion,
		},
		Logger: d.log,
	}
	offers, _, err := r.Offers(ctx)
	if err != nil {
		return err
	}
	return output.WriteOffers(w, d.cfg.Format, offers)
}

func runSpot(ctx context.Context, w io.Writer, d deps, regions []string, table lut.Table) error {
	r := &spot.Reporter{
		Clients:            d.clients,
		Store:              d.store,
		InstanceType:       d.cfg.InstanceType,
		ProductDescription: d.cfg.ProductDescription,
		MaxResults:         d.cfg.SpotMaxResults,
	}
	for _, region := range regions {
		records, err := r.Records(ctx, region, table)
		if err != nil {
			return err
		}
		if err := output.WriteSpot(w, d.cfg.Format, records); err != nil {
			return err
		}
	}
	return nil
}
