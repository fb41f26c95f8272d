package output

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/emaland/pricedata/internal/config"
	"github.com/emaland/pricedata/internal/ondemand"
	"github.com/emaland/pricedata/internal/spot"
)

// WriteOffers prints one row per offer: usage type, vCPU, instance type,
// price per unit.
func WriteOffers(w io.Writer, format string, offers []ondemand.Offer) error {
	if format == config.FormatTable {
		t := newTable(w)
		t.AppendHeader(table.Row{"Usage Type", "vCPU", "Instance Type", "USD/Hour"})
		for _, o := range offers {
			t.AppendRow(table.Row{o.UsageType, o.VCPU, o.InstanceType, formatPrice(o.PricePerUnit)})
		}
		t.Render()
		return nil
	}
	for _, o := range offers {
		if _, err := fmt.Fprintln(w, o.UsageType, o.VCPU, o.InstanceType, formatPrice(o.PricePerUnit)); err != nil {
			return err
		}
	}
	return nil
}

// WriteSpot prints one row per record: availability zone, vCPU, instance
// type, spot price, Unix timestamp.
func WriteSpot(w io.Writer, format string, records []spot.Record) error {
	if format == config.FormatTable {
		t := newTable(w)
		t.AppendHeader(table.Row{"Availability Zone", "vCPU", "Instance Type", "USD/Hour", "Timestamp"})
		for _, r := range records {
			t.AppendRow(table.Row{r.AvailabilityZone, r.VCPU, r.InstanceType, r.SpotPrice, unixSeconds(r.Timestamp)})
		}
		t.Render()
		return nil
	}
	for _, r := range records {
		if _, err := fmt.Fprintln(w, r.AvailabilityZone, r.VCPU, r.InstanceType, r.SpotPrice, unixSeconds(r.Timestamp)); err != nil {
			return err
		}
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	return t
}

// unixSeconds prints an unknown time as 0 rather than year 1.
func unixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
