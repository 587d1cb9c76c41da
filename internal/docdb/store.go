package docdb

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidName is returned for collection names that cannot map to a file.
var ErrInvalidName = errors.New("invalid collection name")

// Store owns a data directory and hands out collection handles. Each
// collection keeps its own lock and cache inside its handle, so handles for
// different names never contend with each other.
type Store struct {
	dir     string
	log     *slog.Logger
	watcher *dirWatcher // nil unless WithWatcher was given

	mu          sync.Mutex
	collections map[string]*Collection
}

// Option configures a Store.
type Option func(*options)

type options struct {
	log   *slog.Logger
	watch bool
}

// WithLogger sets the logger used for operational messages. Defaults to
// slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithWatcher watches the data directory and invalidates a collection's
// cache when its backing file changes, so files edited outside the store are
// picked up by the next mutation. Without it, out-of-band edits are only
// visible to queries (which always re-read the file) until the cache is
// repopulated.
func WithWatcher() Option {
	return func(o *options) {
		o.watch = true
	}
}

// Open initializes a Store rooted at dir, creating the directory if needed.
func Open(dir string, opts ...Option) (*Store, error) {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &Store{
		dir:         dir,
		log:         o.log,
		collections: make(map[string]*Collection),
	}
	if o.watch {
		w, err := newDirWatcher(s)
		if err != nil {
			return nil, fmt.Errorf("failed to watch data directory: %w", err)
		}
		s.watcher = w
	}
	return s, nil
}

// Dir returns the data directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Collection returns the handle for the named collection, creating the
// backing file with an empty array on first use. Handles are memoized: every
// call with the same name returns the same handle, which is what makes the
// per-collection lock and cache authoritative.
func (s *Store) Collection(name string) (*Collection, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	path := filepath.Join(s.dir, name+".json")
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat collection %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte("[]\n"), 0o644); err != nil {
			return nil, fmt.Errorf("failed to bootstrap collection %s: %w", name, err)
		}
		s.log.Info("Created collection", "collection", name, "path", path)
	}

	c := newCollection(name, path, s.log)
	s.collections[name] = c
	return c, nil
}

// Collections lists the names of all collections present on disk, sorted.
func (s *Store) Collections() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// lookup returns the memoized handle for name, or nil if none was created.
func (s *Store) lookup(name string) *Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collections[name]
}

// Close releases the directory watcher if one is running. Collection handles
// stay usable; they hold no resources beyond their cache.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.close()
	}
	return nil
}
