package cache

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/singleflight"

	"github.com/kilnproject/kiln/internal/paths"
)

// A file-backed content-addressed store.
//
// Entries are immutable once committed. Writes go to a staging file first
// and are renamed into place, so readers never observe a partial entry and
// concurrent writers of the same key converge on identical content.
type Store struct {
	dir      string
	entries  string
	staging  string
	resolver string

	group  singleflight.Group
	hits   atomic.Uint64
	misses atomic.Uint64
}

// Cache access counters for one process.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Opens (creating if needed) a store rooted at dir.
func Open(dir string) (*Store, error) {
	s := &Store{
		dir:      dir,
		entries:  filepath.Join(dir, "entries"),
		staging:  filepath.Join(dir, "staging"),
		resolver: filepath.Join(dir, "resolver"),
	}

	for _, d := range []string{s.entries, s.staging, s.resolver} {
		if err := os.MkdirAll(d, paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCache, err)
		}
	}

	return s, nil
}

// Returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// Returns the directory handed to the external resolver as its package
// cache. The resolver owns its layout and locking; this store only provides
// the location.
func (s *Store) ResolverDir() string {
	return s.resolver
}

// Reports whether a committed entry exists for the key.
func (s *Store) Contains(key digest.Digest) bool {
	_, err := os.Stat(s.entryPath(key))
	return err == nil
}

// Returns the path of the committed entry for the key.
func (s *Store) Path(key digest.Digest) (string, error) {
	path := s.entryPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return path, nil
}

// Opens the committed entry for the key.
func (s *Store) Get(key digest.Digest) (io.ReadCloser, error) {
	path, err := s.Path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCache, err)
	}
	return f, nil
}

// Commits the reader's contents as the entry for the key.
//
// The data is written to a staging file and renamed into place. Committing
// a key that already exists replaces it atomically; since entries are
// content-addressed by their inputs, both writers produced the same bytes.
func (s *Store) Put(key digest.Digest, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(s.staging, key.Encoded()+"-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}

	path := s.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrCache, err)
	}

	return path, nil
}

// Returns the committed entry for the key, producing it on a miss.
//
// On a hit the fill function is not called. On a miss fill writes the entry
// body, which is committed and returned. Concurrent calls for the same key
// are collapsed into a single fill; the other callers share its result.
//
// The second return value reports whether this caller's entry came from the
// store rather than from its own fill. Callers that restore side effects of
// fill (files on disk, for example) must do so whenever it is true, which
// includes sharing another caller's flight.
func (s *Store) Materialize(key digest.Digest, fill func(w io.Writer) error) (string, bool, error) {
	if path, err := s.Path(key); err == nil {
		s.hits.Add(1)
		slog.Debug("cache hit", "key", key)
		return path, true, nil
	}

	// Tracks whether this caller's own fill executed. Callers that share a
	// flight (or find the entry committed meanwhile) see a hit: the entry
	// exists in the store but their fill wrote nothing locally.
	filled := false

	v, err, _ := s.group.Do(key.String(), func() (any, error) {
		if path, err := s.Path(key); err == nil {
			return path, nil
		}

		s.misses.Add(1)
		slog.Debug("cache miss", "key", key)
		filled = true

		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(fill(pw))
		}()

		return s.Put(key, pr)
	})
	if err != nil {
		return "", false, err
	}

	return v.(string), !filled, nil
}

// Returns the access counters accumulated by this store instance.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Returns the committed location for a key.
//
// Entries are fanned out by the first two digest characters to keep
// directory sizes bounded.
func (s *Store) entryPath(key digest.Digest) string {
	enc := key.Encoded()
	return filepath.Join(s.entries, string(key.Algorithm()), enc[:2], enc)
}
