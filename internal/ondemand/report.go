package ondemand

import (
	"context"
	"fmt"

	ptypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/rs/zerolog"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
)

const (
	serviceCode = "AmazonEC2"
	callSite    = "pricing"
)

// Filter selects the products to price. Region is where the Pricing API is
// called, not the region being priced.
type Filter struct {
	InstanceType          string
	OperatingSystem       string
	ProcessorArchitecture string
	AVXRequired           bool
	PreInstalledSW        string
	Region                string
}

func (f Filter) TermMatches() []ptypes.Filter {
	filters := []ptypes.Filter{
		awsutil.TermMatch("instanceType", f.InstanceType),
		awsutil.TermMatch("operatingSystem", f.OperatingSystem),
		awsutil.TermMatch("processorArchitecture", f.ProcessorArchitecture),
	}
	if f.AVXRequired {
		filters = append(filters, awsutil.TermMatch("intelAvxAvailable", "Yes"))
	}
	return filters
}

// Summary counts documents per classification.
type Summary map[Status]int

func (s Summary) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

type Reporter struct {
	Client awsutil.PricingAPI
	Store  *cache.Store
	Filter Filter
	Logger zerolog.Logger
}

// Offers returns the valid offers in the order the API listed them. Documents
// with missing or unusable price data are counted in the summary and logged.
func (r *Reporter) Offers(ctx context.Context) ([]Offer, Summary, error) {
	params, err := cache.ParamsHash(r.Filter)
	if err != nil {
		return nil, nil, err
	}
	key := cache.Key{CallSite: callSite, Region: r.Filter.Region, Params: params}
	docs, err := cache.Fetch(ctx, r.Store, key, func(ctx context.Context) ([]string, error) {
		return awsutil.PriceList(ctx, r.Client, serviceCode, r.Filter.TermMatches())
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetching on-demand prices for %s: %w", r.Filter.InstanceType, err)
	}

	summary := Summary{}
	var offers []Offer
	for i, doc := range docs {
		res := Classify(doc, r.Filter.PreInstalledSW)
		summary[res.Status]++
		switch res.Status {
		case OfferValid:
			offers = append(offers, res.Offer)
		case OfferMissingPrice, OfferMalformed:
			r.Logger.Warn().Int("document", i).Str("status", res.Status.String()).
				Str("usage_type", res.Offer.UsageType).Msg("skipping price document")
		default:
			r.Logger.Debug().Int("document", i).Str("status", res.Status.String()).
				Str("usage_type", res.Offer.UsageType).Msg("filtered price document")
		}
	}

	r.Logger.Info().
		Int("documents", summary.Total()).
		Int("valid", summary[OfferValid]).
		Int("no_on_demand_terms", summary[OfferNoOnDemandTerms]).
		Int("preinstalled_software", summary[OfferPreinstalledSoftware]).
		Int("missing_price", summary[OfferMissingPrice]).
		Int("below_epsilon", summary[OfferBelowEpsilon]).
		Int("malformed", summary[OfferMalformed]).
		Msg("classified on-demand price documents")
	return offers, summary, nil
}
