package lut

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

type fileFormat struct {
	GeneratedAt time.Time `json:"generated_at"`
	Regions     Table     `json:"regions"`
}

// Load reads the table at path. ok is false when the file does not exist or
// is older than maxAge; maxAge 0 never expires. A file without a regions
// object is also reported as absent so it gets rebuilt. A file that cannot be
// parsed is an error.
func Load(path string, maxAge time.Duration, now time.Time) (Table, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("reading lookup table %s: %w", path, err)
	}
	var f fileFormat
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, false, fmt.Errorf("parsing lookup table %s: %w", path, err)
	}
	if Expired(f.GeneratedAt, maxAge, now) {
		return nil, false, nil
	}
	if f.Regions == nil {
		return nil, false, nil
	}
	return f.Regions, true, nil
}

// Expired reports whether a table generated at generatedAt is past maxAge. An
// unknown generation time counts as expired unless expiry is disabled.
func Expired(generatedAt time.Time, maxAge time.Duration, now time.Time) bool {
	if maxAge == 0 {
		return false
	}
	if generatedAt.IsZero() {
		return true
	}
	return now.Sub(generatedAt) > maxAge
}

// Save writes table to path as indented JSON stamped with now.
func Save(path string, table Table, now time.Time) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := sonic.ConfigStd.MarshalIndent(fileFormat{GeneratedAt: now.UTC(), Regions: table}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding lookup table: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing lookup table %s: %w", path, err)
	}
	return nil
}

// Obtain returns the table from path when it is fresh, otherwise builds it and
// writes it back.
func Obtain(ctx context.Context, path string, maxAge time.Duration, b *Builder, log zerolog.Logger) (Table, error) {
	table, ok, err := Load(path, maxAge, time.Now())
	if err != nil {
		return nil, err
	}
	if ok {
		log.Info().Str("file", path).Int("regions", len(table)).Msg("loaded instance lookup table")
		return table, nil
	}
	table, err = b.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := Save(path, table, time.Now()); err != nil {
		return nil, err
	}
	log.Info().Str("file", path).Int("regions", len(table)).Int("instance_types", table.InstanceTypeCount()).Msg("saved instance lookup table")
	return table, nil
}
