// Package spot joins recent spot price history with the instance lookup table.
package spot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
	"github.com/emaland/pricedata/internal/lut"
)

const callSite = "spot-history"

type Record struct {
	AvailabilityZone string
	VCPU             int32
	InstanceType     string
	SpotPrice        string
	Timestamp        time.Time
}

// query is the part of a Reporter that decides what the API returns.
type query struct {
	InstanceType       string
	ProductDescription string
	MaxResults         int32
}

type Reporter struct {
	// Clients returns the EC2 client for the region being reported.
	Clients            awsutil.EC2Factory
	Store              *cache.Store
	InstanceType       string
	ProductDescription string
	MaxResults         int32
}

// Records returns one record per history entry, at most MaxResults. vCPU comes
// from table and is 0 when the table has no entry for the region and type.
func (r *Reporter) Records(ctx context.Context, region string, table lut.Table) ([]Record, error) {
	params, err := cache.ParamsHash(query{
		InstanceType:       r.InstanceType,
		ProductDescription: r.ProductDescription,
		MaxResults:         r.MaxResults,
	})
	if err != nil {
		return nil, err
	}
	key := cache.Key{CallSite: callSite, Region: region, Params: params}
	history, err := cache.Fetch(ctx, r.Store, key, func(ctx context.Context) ([]types.SpotPrice, error) {
		return awsutil.RecentSpotPrices(ctx, r.Clients(region), r.InstanceType, r.ProductDescription, r.MaxResults)
	})
	if err != nil {
		return nil, fmt.Errorf("spot prices in %s: %w", region, err)
	}
	if r.MaxResults > 0 && len(history) > int(r.MaxResults) {
		history = history[:r.MaxResults]
	}
	return lo.Map(history, func(sp types.SpotPrice, _ int) Record {
		return Join(region, sp, table)
	}), nil
}

// Join attaches the vCPU count for sp's instance type in region.
func Join(region string, sp types.SpotPrice, table lut.Table) Record {
	itype := string(sp.InstanceType)
	vcpu, _ := table.VCPU(region, itype)
	return Record{
		AvailabilityZone: aws.ToString(sp.AvailabilityZone),
		VCPU:             vcpu,
		InstanceType:     itype,
		SpotPrice:        aws.ToString(sp.SpotPrice),
		Timestamp:        aws.ToTime(sp.Timestamp),
	}
}
