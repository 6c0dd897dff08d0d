// Package cache memoizes raw source fetches as JSON files on disk.
//
// Entries are presence-based: a file that exists is used as-is, with no TTL,
// schema version or refresh timestamp. Staleness is the caller's concern, and
// two processes writing the same entry race without locking.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Store reads and writes cache entries under a directory.
type Store struct {
	dir     string
	enabled bool
}

// New returns a Store rooted at dir. A disabled store never reads or writes.
func New(dir string, enabled bool) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir, enabled: enabled}
}

// Enabled reports whether the store reads and writes entries.
func (s *Store) Enabled() bool {
	return s != nil && s.enabled
}

// Path returns the file path of the named entry.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Load decodes the named entry into v. It reports false when the entry does
// not exist or the store is disabled.
func (s *Store) Load(name string, v any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "cache: read %s", name)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, eris.Wrapf(err, "cache: decode %s", name)
	}
	return true, nil
}

// Save writes v as the named entry, replacing any previous content.
func (s *Store) Save(name string, v any) error {
	if !s.Enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return eris.Wrapf(err, "cache: encode %s", name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return eris.Wrapf(err, "cache: create dir %s", s.dir)
	}
	if err := os.WriteFile(s.Path(name), data, 0o644); err != nil {
		return eris.Wrapf(err, "cache: write %s", name)
	}
	return nil
}

// Through returns the cached entry when present and otherwise calls fetch,
// saving its result. Nothing is written when fetch fails. A failed save is
// logged and the fetched value is still returned.
func Through[T any](ctx context.Context, s *Store, name string, fetch func(ctx context.Context) (T, error)) (T, error) {
	log := zap.L().With(zap.String("component", "cache"), zap.String("entry", name))

	var cached T
	ok, err := s.Load(name, &cached)
	if err != nil {
		var zero T
		return zero, err
	}
	if ok {
		log.Debug("cache hit", zap.String("path", s.Path(name)))
		return cached, nil
	}

	log.Debug("cache miss, fetching")
	v, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if err := s.Save(name, v); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return v, nil
}
