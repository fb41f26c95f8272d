// Package cache keeps raw API responses on disk so a run can be inspected or
// replayed without calling AWS again.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mitchellh/hashstructure/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
)

// Key names one cached response. Region and Params are optional; when set
// they become part of the file name so per-region calls never share a file.
type Key struct {
	CallSite string
	Region   string
	Params   uint64
}

func (k Key) Filename() string {
	parts := []string{k.CallSite}
	if k.Region != "" {
		parts = append(parts, k.Region)
	}
	if k.Params != 0 {
		parts = append(parts, fmt.Sprintf("%016x", k.Params))
	}
	return strings.Join(parts, ".") + ".json"
}

// ParamsHash hashes request parameters for use in Key.Params.
func ParamsHash(v any) (uint64, error) {
	h, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
	if err != nil {
		return 0, fmt.Errorf("hashing cache parameters: %w", err)
	}
	return h, nil
}

type envelope struct {
	CallSite  string          `json:"call_site"`
	Region    string          `json:"region,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

type Store struct {
	dir   string
	reuse bool
	mem   *gocache.Cache
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Store)

// WithReuse makes Fetch answer from existing entries instead of calling out.
func WithReuse(reuse bool) Option {
	return func(s *Store) { s.reuse = reuse }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(dir string, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		dir: dir,
		mem: gocache.New(gocache.NoExpiration, 0),
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) Reuse() bool { return s.reuse }

func (s *Store) Path(key Key) string {
	return filepath.Join(s.dir, key.Filename())
}

// Save writes v under key and hands it back unchanged, so a fetch can be
// wrapped in place. Every call rewrites the file.
func Save[T any](s *Store, key Key, v T) (T, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return v, fmt.Errorf("creating cache dir %s: %w", s.dir, err)
	}
	payload, err := sonic.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encoding %s: %w", key.Filename(), err)
	}
	data, err := sonic.Marshal(envelope{
		CallSite:  key.CallSite,
		Region:    key.Region,
		FetchedAt: s.now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		return v, fmt.Errorf("encoding %s: %w", key.Filename(), err)
	}
	path := s.Path(key)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return v, fmt.Errorf("writing %s: %w", path, err)
	}
	s.mem.Set(key.Filename(), data, gocache.NoExpiration)
	s.log.Debug().Str("file", path).Int("bytes", len(data)).Msg("cached api response")
	return v, nil
}

// Load reads the entry for key. ok is false when nothing has been cached.
func Load[T any](s *Store, key Key) (v T, fetchedAt time.Time, ok bool, err error) {
	var data []byte
	if cached, found := s.mem.Get(key.Filename()); found {
		data = cached.([]byte)
	} else {
		path := s.Path(key)
		data, err = os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return v, fetchedAt, false, nil
			}
			return v, fetchedAt, false, fmt.Errorf("reading %s: %w", path, err)
		}
		s.mem.Set(key.Filename(), data, gocache.NoExpiration)
	}

	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return v, fetchedAt, false, fmt.Errorf("decoding %s: %w", key.Filename(), err)
	}
	if err := sonic.Unmarshal(env.Payload, &v); err != nil {
		return v, fetchedAt, false, fmt.Errorf("decoding payload of %s: %w", key.Filename(), err)
	}
	return v, env.FetchedAt, true, nil
}

// Fetch calls fn and saves its result. In reuse mode an existing entry is
// returned instead and fn is not called.
func Fetch[T any](ctx context.Context, s *Store, key Key, fn func(context.Context) (T, error)) (T, error) {
	if s.reuse {
		v, fetchedAt, ok, err := Load[T](s, key)
		if err != nil {
			return v, err
		}
		if ok {
			s.log.Debug().Str("file", key.Filename()).Time("fetched_at", fetchedAt).Msg("reusing cached response")
			return v, nil
		}
	}
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	return Save(s, key, v)
}

// Entries lists every JSON file in the cache directory, sorted by name.
func (s *Store) Entries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing cache dir %s: %w", s.dir, err)
	}
	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".json" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", de.Name(), err)
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Purge removes every JSON file in the cache directory, the lookup table
// included, and returns how many were removed.
func (s *Store) Purge() (int, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(s.dir, e.Name)); err != nil {
			return 0, fmt.Errorf("removing %s: %w", e.Name, err)
		}
	}
	s.mem.Flush()
	return len(entries), nil
}
