package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".config", "pricedata")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := `{"instance_type":"m6i.large","target_regions":["eu-west-1","eu-west-2"],"lut_max_age":"2h"}`
	if err := os.WriteFile(filepath.Join(cfgDir, "default.json"), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	// Override HOME so LoadConfig reads our temp file.
	t.Setenv("HOME", dir)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InstanceType != "m6i.large" {
		t.Errorf("InstanceType = %q, want %q", cfg.InstanceType, "m6i.large")
	}
	if len(cfg.TargetRegions) != 2 || cfg.TargetRegions[1] != "eu-west-2" {
		t.Errorf("TargetRegions = %v", cfg.TargetRegions)
	}
	if time.Duration(cfg.LUTMaxAge) != 2*time.Hour {
		t.Errorf("LUTMaxAge = %v, want 2h", time.Duration(cfg.LUTMaxAge))
	}
	// Non-overridden fields keep defaults.
	if cfg.PricingRegion != "us-east-1" {
		t.Errorf("PricingRegion = %q, want default %q", cfg.PricingRegion, "us-east-1")
	}
	if !cfg.AVXRequired {
		t.Error("AVXRequired lost its default")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.InstanceType != "t3.micro" {
		t.Errorf("default InstanceType = %q, want %q", cfg.InstanceType, "t3.micro")
	}
	if cfg.SpotMaxResults != 10 {
		t.Errorf("default SpotMaxResults = %d, want 10", cfg.SpotMaxResults)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadConfigBadJSON(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".config", "pricedata")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "default.json"), []byte("{bad json"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for bad JSON")
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".config", "pricedata")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "default.json"), []byte(`{"lut_max_age":"soon"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for unparsable lut_max_age")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PricedataConfig)
	}{
		{"empty instance type", func(c *PricedataConfig) { c.InstanceType = " " }},
		{"no target regions", func(c *PricedataConfig) { c.TargetRegions = nil }},
		{"no pricing region", func(c *PricedataConfig) { c.PricingRegion = "" }},
		{"zero workers", func(c *PricedataConfig) { c.Workers = 0 }},
		{"zero spot max results", func(c *PricedataConfig) { c.SpotMaxResults = 0 }},
		{"negative spot max results", func(c *PricedataConfig) { c.SpotMaxResults = -5 }},
		{"negative max age", func(c *PricedataConfig) { c.LUTMaxAge = Duration(-time.Second) }},
		{"unknown format", func(c *PricedataConfig) { c.Format = "csv" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted %s", tt.name)
			}
		})
	}
}

func TestResolveCacheDir(t *testing.T) {
	cfg := PricedataConfig{CacheDir: "~/.cache/pricedata"}
	got := cfg.ResolveCacheDir()
	if strings.HasPrefix(got, "~") {
		t.Errorf("ResolveCacheDir still starts with ~: %s", got)
	}
	home, _ := os.UserHomeDir()
	want := filepath.Join(home, ".cache", "pricedata")
	if got != want {
		t.Errorf("ResolveCacheDir = %q, want %q", got, want)
	}
	if p := (PricedataConfig{CacheDir: "cache"}).LUTPath(); p != filepath.Join("cache", "lut.json") {
		t.Errorf("LUTPath = %q", p)
	}
}

// the duration type must survive a JSON round trip as a string
func TestDurationJSON(t *testing.T) {
	cfg := Defaults()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"lut_max_age":"24h0m0s"`) {
		t.Errorf("lut_max_age not encoded as string: %s", data)
	}
	var parsed PricedataConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatal(err)
	}
	if parsed.LUTMaxAge != cfg.LUTMaxAge {
		t.Errorf("LUTMaxAge = %v, want %v", parsed.LUTMaxAge, cfg.LUTMaxAge)
	}
}
