// Package lut builds and persists the lookup table of instance specifications
// per region: region -> instance type -> descriptor.
package lut

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/samber/lo"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
)

const (
	callSiteRegions       = "regions"
	callSiteInstanceTypes = "instance-types"
)

type Descriptor struct {
	VCPU      int32  `json:"vcpu"`
	MemoryMiB int64  `json:"mem"`
	Arch      string `json:"arch"`
}

// Table maps region to instance type to descriptor. A missing region or
// instance type means no data, never an error.
type Table map[string]map[string]Descriptor

func (t Table) Lookup(region, instanceType string) (Descriptor, bool) {
	byType, ok := t[region]
	if !ok {
		return Descriptor{}, false
	}
	d, ok := byType[instanceType]
	return d, ok
}

// VCPU returns 0, false when the table has nothing for the pair.
func (t Table) VCPU(region, instanceType string) (int32, bool) {
	d, ok := t.Lookup(region, instanceType)
	if !ok {
		return 0, false
	}
	return d.VCPU, true
}

func (t Table) Regions() []string {
	regions := lo.Keys(t)
	sort.Strings(regions)
	return regions
}

func (t Table) InstanceTypeCount() int {
	return lo.SumBy(lo.Values(t), func(m map[string]Descriptor) int { return len(m) })
}

// ListRegions returns the names of the regions enabled for the account.
func ListRegions(ctx context.Context, client awsutil.EC2API, store *cache.Store) ([]string, error) {
	regions, err := cache.Fetch(ctx, store, cache.Key{CallSite: callSiteRegions}, func(ctx context.Context) ([]types.Region, error) {
		return awsutil.EnabledRegions(ctx, client)
	})
	if err != nil {
		return nil, err
	}
	names := lo.FilterMap(regions, func(r types.Region, _ int) (string, bool) {
		if r.RegionName == nil {
			return "", false
		}
		return *r.RegionName, true
	})
	return names, nil
}

// DescribeRegion flattens the instance type catalog of one region. When a type
// supports several architectures each one is written under the same key, so
// the last listed architecture is the one kept.
func DescribeRegion(ctx context.Context, client awsutil.EC2API, store *cache.Store, region string) (map[string]Descriptor, error) {
	key := cache.Key{CallSite: callSiteInstanceTypes, Region: region}
	infos, err := cache.Fetch(ctx, store, key, func(ctx context.Context) ([]types.InstanceTypeInfo, error) {
		return awsutil.AllInstanceTypes(ctx, client)
	})
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", region, err)
	}
	return Flatten(infos), nil
}

// Flatten converts raw catalog entries into descriptors keyed by type name.
func Flatten(infos []types.InstanceTypeInfo) map[string]Descriptor {
	result := make(map[string]Descriptor, len(infos))
	for _, it := range infos {
		if it.ProcessorInfo == nil {
			continue
		}
		var vcpu int32
		if it.VCpuInfo != nil && it.VCpuInfo.DefaultVCpus != nil {
			vcpu = *it.VCpuInfo.DefaultVCpus
		}
		var mem int64
		if it.MemoryInfo != nil && it.MemoryInfo.SizeInMiB != nil {
			mem = *it.MemoryInfo.SizeInMiB
		}
		for _, arch := range it.ProcessorInfo.SupportedArchitectures {
			result[string(it.InstanceType)] = Descriptor{
				VCPU:      vcpu,
				MemoryMiB: mem,
				Arch:      string(arch),
			}
		}
	}
	return result
}
