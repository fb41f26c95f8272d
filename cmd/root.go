package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emaland/pricedata/internal/awsutil"
	"github.com/emaland/pricedata/internal/cache"
	pricedataconfig "github.com/emaland/pricedata/internal/config"
	"github.com/emaland/pricedata/internal/logging"
)

// deps is what every command works from. It is filled in by the root
// command's PersistentPreRunE.
type deps struct {
	cfg     pricedataconfig.PricedataConfig
	log     zerolog.Logger
	store   *cache.Store
	home    awsutil.EC2API
	clients awsutil.EC2Factory
	pricing awsutil.PricingAPI
}

var (
	d deps

	BaseEndpointOverride string
)

const skipAWSAnnotation = "pricedata/skip-aws"

const awsCredentialGuidance = `AWS credentials not found. Configure them using one of:

  aws sso login                        If you use AWS IAM Identity Center (SSO)
  aws configure                        Interactive setup for ~/.aws/credentials
  export AWS_ACCESS_KEY_ID=...         Set credentials via environment variables
  export AWS_SECRET_ACCESS_KEY=...
  export AWS_PROFILE=my-profile        Use a named profile from ~/.aws/config

Or rerun with --offline to report from previously cached responses.`

type globalFlags struct {
	cacheDir     string
	format       string
	logLevel     string
	instanceType string
	workers      int
	lutMaxAge    time.Duration
	offline      bool
}

func NewRootCmd() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "pricedata",
		Short: "Report EC2 on-demand and spot prices with instance specs",
		Long: `pricedata builds a per-region lookup table of EC2 instance specs, then prints
on-demand offers and recent spot prices for one instance type.

Run without a subcommand it does the full report.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pricedataconfig.LoadConfig()
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, gf)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return setup(cmd.Context(), cfg, gf.offline, cmd.Annotations[skipAWSAnnotation] == "true")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), d)
		},
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&gf.cacheDir, "cache-dir", "", "Directory for cached API responses and lut.json")
	pf.StringVar(&gf.format, "format", "", "Output format: plain or table")
	pf.StringVar(&gf.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&gf.instanceType, "instance-type", "", "Instance type to price")
	pf.IntVar(&gf.workers, "workers", 0, "Regions described in parallel when building the lookup table")
	pf.DurationVar(&gf.lutMaxAge, "lut-max-age", 0, "Rebuild lut.json when older than this (0 = never)")
	pf.BoolVar(&gf.offline, "offline", false, "Answer from cached API responses where present")

	root.AddCommand(
		newReportCmd(),
		newLUTCmd(),
		newOnDemandCmd(),
		newSpotCmd(),
		newRegionsCmd(),
		newCacheCmd(),
	)
	return root
}

// applyFlags overrides config values with flags the user actually set.
func applyFlags(cmd *cobra.Command, cfg *pricedataconfig.PricedataConfig, gf globalFlags) {
	flags := cmd.Flags()
	if flags.Changed("cache-dir") {
		cfg.CacheDir = gf.cacheDir
	}
	if flags.Changed("format") {
		cfg.Format = gf.format
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = gf.logLevel
	}
	if flags.Changed("instance-type") {
		cfg.InstanceType = gf.instanceType
	}
	if flags.Changed("workers") {
		cfg.Workers = gf.workers
	}
	if flags.Changed("lut-max-age") {
		cfg.LUTMaxAge = pricedataconfig.Duration(gf.lutMaxAge)
	}
}

func setup(ctx context.Context, cfg pricedataconfig.PricedataConfig, offline, skipAWS bool) error {
	d = deps{
		cfg: cfg,
		log: logging.New(cfg.LogLevel, os.Stderr),
	}
	d.store = cache.New(cfg.ResolveCacheDir(), d.log, cache.WithReuse(offline))
	if skipAWS {
		return nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	if awsCfg.Region == "" {
		awsCfg.Region = cfg.PricingRegion
	}
	if BaseEndpointOverride != "" {
		awsCfg.BaseEndpoint = aws.String(BaseEndpointOverride)
	}

	if !offline {
		// Verify credentials are valid before any command runs.
		stsClient := sts.NewFromConfig(awsCfg)
		if _, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
			fmt.Fprintln(os.Stderr, awsCredentialGuidance)
			return err
		}
	}

	d.clients = awsutil.RegionalEC2(awsCfg, BaseEndpointOverride)
	d.home = d.clients(awsCfg.Region)
	d.pricing = awsutil.NewPricing(awsCfg, cfg.PricingRegion, BaseEndpointOverride)
	return nil
}

func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
