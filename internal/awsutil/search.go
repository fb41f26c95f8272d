package awsutil

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	ptypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
)

// MaxSpotResults is the largest page DescribeSpotPriceHistory accepts.
const MaxSpotResults = 1000

// EnabledRegions lists the regions enabled for the account, not every region
// AWS has.
func EnabledRegions(ctx context.Context, client EC2API) ([]types.Region, error) {
	result, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("describing regions: %w", err)
	}
	return result.Regions, nil
}

// AllInstanceTypes pages through the full instance type catalog of the
// client's region.
func AllInstanceTypes(ctx context.Context, client EC2API) ([]types.InstanceTypeInfo, error) {
	var results []types.InstanceTypeInfo
	paginator := ec2.NewDescribeInstanceTypesPaginator(client, &ec2.DescribeInstanceTypesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describing instance types: %w", err)
		}
		results = append(results, page.InstanceTypes...)
	}
	return results, nil
}

// RecentSpotPrices makes a single DescribeSpotPriceHistory call and never
// returns more than maxResults entries.
func RecentSpotPrices(ctx context.Context, client EC2API, instanceType, productDescription string, maxResults int32) ([]types.SpotPrice, error) {
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > MaxSpotResults {
		maxResults = MaxSpotResults
	}
	result, err := client.DescribeSpotPriceHistory(ctx, &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []types.InstanceType{types.InstanceType(instanceType)},
		ProductDescriptions: []string{productDescription},
		MaxResults:          aws.Int32(maxResults),
	})
	if err != nil {
		return nil, fmt.Errorf("describing spot price history: %w", err)
	}
	history := result.SpotPriceHistory
	if len(history) > int(maxResults) {
		history = history[:maxResults]
	}
	return history, nil
}

// TermMatch builds a TERM_MATCH pricing filter.
func TermMatch(field, value string) ptypes.Filter {
	return ptypes.Filter{
		Type:  ptypes.FilterTypeTermMatch,
		Field: aws.String(field),
		Value: aws.String(value),
	}
}

// PriceList pages through GetProducts and concatenates the price list
// documents. Each element is one JSON document.
func PriceList(ctx context.Context, client PricingAPI, serviceCode string, filters []ptypes.Filter) ([]string, error) {
	var docs []string
	paginator := pricing.NewGetProductsPaginator(client, &pricing.GetProductsInput{
		ServiceCode: aws.String(serviceCode),
		Filters:     filters,
		MaxResults:  aws.Int32(100),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("getting %s products: %w", serviceCode, err)
		}
		docs = append(docs, page.PriceList...)
	}
	return docs, nil
}
