package awsutil

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
)

// RegionalEC2 builds per-region EC2 clients from one shared config. A
// non-empty baseEndpoint points every client at it (LocalStack in tests).
func RegionalEC2(cfg aws.Config, baseEndpoint string) EC2Factory {
	return func(region string) EC2API {
		return ec2.NewFromConfig(cfg, func(o *ec2.Options) {
			o.Region = region
			if baseEndpoint != "" {
				o.BaseEndpoint = aws.String(baseEndpoint)
			}
		})
	}
}

// NewPricing returns a Pricing client. The Pricing API is only served from a
// few regions, so the region is explicit rather than taken from cfg.
func NewPricing(cfg aws.Config, region, baseEndpoint string) *pricing.Client {
	return pricing.NewFromConfig(cfg, func(o *pricing.Options) {
		o.Region = region
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
	})
}
