package lut

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
)

type Builder struct {
	// Home answers DescribeRegions.
	Home    awsutil.EC2API
	Clients awsutil.EC2Factory
	Store   *cache.Store
	Workers int
	Logger  zerolog.Logger
}

// Build describes every enabled region. Regions are described on a pool of
// Workers goroutines; each writes its own cache file. Any failed region fails
// the build and all failures are reported together.
func (b *Builder) Build(ctx context.Context) (Table, error) {
	regions, err := ListRegions(ctx, b.Home, b.Store)
	if err != nil {
		return nil, err
	}
	b.Logger.Info().Int("regions", len(regions)).Int("workers", b.workers()).Msg("building instance lookup table")

	pool, err := ants.NewPool(b.workers())
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		table = make(Table, len(regions))
		errs  error
	)
	for _, region := range regions {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			b.Logger.Info().Str("region", region).Msg("checking region")
			descriptions, err := DescribeRegion(ctx, b.Clients(region), b.Store, region)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = multierr.Append(errs, err)
				return
			}
			table[region] = descriptions
		})
		if submitErr != nil {
			wg.Done()
			mu.Lock()
			errs = multierr.Append(errs, submitErr)
			mu.Unlock()
		}
	}
	wg.Wait()

	if errs != nil {
		return nil, errs
	}
	return table, nil
}

func (b *Builder) workers() int {
	if b.Workers < 1 {
		return 1
	}
	return b.Workers
}
