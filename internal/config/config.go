package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	FormatPlain = "plain"
	FormatTable = "table"
)

// Duration is a time.Duration that reads and writes Go duration strings ("24h").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"24h\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type PricedataConfig struct {
	InstanceType          string   `json:"instance_type"`
	OperatingSystem       string   `json:"operating_system"`
	ProcessorArchitecture string   `json:"processor_architecture"`
	AVXRequired           bool     `json:"avx_required"`
	PreInstalledSW        string   `json:"preinstalled_sw"`
	ProductDescription    string   `json:"product_description"`
	PricingRegion         string   `json:"pricing_region"`
	TargetRegions         []string `json:"target_regions"`
	CacheDir              string   `json:"cache_dir"`
	LUTMaxAge             Duration `json:"lut_max_age"`
	SpotMaxResults        int32    `json:"spot_max_results"`
	Workers               int      `json:"workers"`
	Format                string   `json:"format"`
	LogLevel              string   `json:"log_level"`
}

func Defaults() PricedataConfig {
	return PricedataConfig{
		InstanceType:          "t3.micro",
		OperatingSystem:       "Linux",
		ProcessorArchitecture: "64-bit",
		AVXRequired:           true,
		PreInstalledSW:        "NA",
		ProductDescription:    "Linux/UNIX",
		PricingRegion:         "us-east-1",
		TargetRegions:         []string{"us-east-2"},
		CacheDir:              "cache",
		LUTMaxAge:             Duration(24 * time.Hour),
		SpotMaxResults:        10,
		Workers:               4,
		Format:                FormatPlain,
		LogLevel:              "info",
	}
}

// LoadConfig layers ~/.config/pricedata/default.json over Defaults. A missing
// file is not an error.
func LoadConfig() (PricedataConfig, error) {
	cfg := Defaults()

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, nil
	}

	path := filepath.Join(home, ".config", "pricedata", "default.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

func (c PricedataConfig) Validate() error {
	if strings.TrimSpace(c.InstanceType) == "" {
		return fmt.Errorf("instance_type must not be empty")
	}
	if len(c.TargetRegions) == 0 {
		return fmt.Errorf("target_regions must name at least one region")
	}
	if c.PricingRegion == "" {
		return fmt.Errorf("pricing_region must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.SpotMaxResults < 1 {
		return fmt.Errorf("spot_max_results must be positive, got %d", c.SpotMaxResults)
	}
	if c.LUTMaxAge < 0 {
		return fmt.Errorf("lut_max_age must not be negative")
	}
	switch c.Format {
	case FormatPlain, FormatTable:
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", c.Format, FormatPlain, FormatTable)
	}
	return nil
}

// ResolveCacheDir expands a leading "~/" in CacheDir.
func (c PricedataConfig) ResolveCacheDir() string {
	if strings.HasPrefix(c.CacheDir, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, c.CacheDir[2:])
		}
	}
	return c.CacheDir
}

func (c PricedataConfig) LUTPath() string {
	return filepath.Join(c.ResolveCacheDir(), "lut.json")
}
