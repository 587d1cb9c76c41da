package docdb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
)

// ErrMissingID is returned by Update when the record carries no identifier.
var ErrMissingID = errors.New("record has no _id field")

// Collection is the handle for one named collection. Obtain it through
// Store.Collection; the zero value is not usable.
//
// Mutations are mutually exclusive per collection and may be cancelled via
// context while waiting for their turn. Queries never take the collection
// lock and always reflect the file's current contents, so a query racing a
// mutation observes either the pre- or post-write state.
type Collection struct {
	name string
	path string
	log  *slog.Logger

	// lock gates the mutation pipeline. Capacity 1: waiters block on the
	// channel send and are woken when the holder releases, instead of
	// re-checking a busy flag on a timer.
	lock chan struct{}

	mu     sync.Mutex // guards cache and cached
	cache  []Record
	cached bool
}

func newCollection(name, path string, log *slog.Logger) *Collection {
	return &Collection{
		name: name,
		path: path,
		log:  log.With("collection", name),
		lock: make(chan struct{}, 1),
	}
}

// Name returns the collection's name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) acquire(ctx context.Context) error {
	select {
	case c.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Collection) release() {
	<-c.lock
}

// current returns the working state for a mutation: the cache when
// populated, otherwise the decoded file. Must be called with the collection
// lock held. A missing file reads as an empty collection.
func (c *Collection) current() ([]Record, error) {
	c.mu.Lock()
	if c.cached {
		recs := c.cache
		c.mu.Unlock()
		return recs, nil
	}
	c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}
	return decodeRecords(c.path, data, c.log), nil
}

// mutate runs one pipeline pass: lock, read state, transform, write the
// whole file, refresh the cache, unlock. The transform must treat its input
// as immutable and return a fresh slice when it changes anything; returned
// elements may be aliased into the cache afterwards. On write failure the
// cache keeps its pre-transform contents.
func (c *Collection) mutate(ctx context.Context, transform func([]Record) []Record) error {
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	cur, err := c.current()
	if err != nil {
		return err
	}

	next := transform(cur)

	data, err := encodeRecords(next)
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", c.name, err)
	}

	c.mu.Lock()
	c.cache = next
	c.cached = true
	c.mu.Unlock()
	return nil
}

// Insert stores a new record and returns a copy carrying its assigned
// identifier. Any identifier already present on the input is replaced.
func (c *Collection) Insert(ctx context.Context, rec Record) (Record, error) {
	stored := rec.Clone()
	if stored == nil {
		stored = Record{}
	}
	stored[IDField] = newID()

	err := c.mutate(ctx, func(cur []Record) []Record {
		return append(slices.Clone(cur), stored)
	})
	if err != nil {
		return nil, err
	}
	return stored.Clone(), nil
}

// Update replaces the record whose identifier matches rec's identifier with
// rec verbatim. When no record matches, the collection is left unchanged and
// Update still succeeds; callers must not take a nil error to mean the
// record existed. The input record must carry an identifier.
func (c *Collection) Update(ctx context.Context, rec Record) (Record, error) {
	id := rec.ID()
	if id == "" {
		return nil, ErrMissingID
	}
	stored := rec.Clone()

	err := c.mutate(ctx, func(cur []Record) []Record {
		for i, r := range cur {
			if r.ID() == id {
				next := slices.Clone(cur)
				next[i] = stored
				return next
			}
		}
		return cur
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Patch merges partial onto the matching record's fields, partial winning on
// key conflict. The identifier cannot be changed this way. Like Update, a
// missing identifier is a silent no-op, and the id is returned either way.
func (c *Collection) Patch(ctx context.Context, id string, partial map[string]any) (string, error) {
	err := c.mutate(ctx, func(cur []Record) []Record {
		for i, r := range cur {
			if r.ID() == id {
				next := slices.Clone(cur)
				next[i] = r.merge(partial)
				return next
			}
		}
		return cur
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes the record with the matching identifier. Deleting an
// identifier that does not exist succeeds and returns the id, so deletes are
// idempotent.
func (c *Collection) Delete(ctx context.Context, id string) (string, error) {
	err := c.mutate(ctx, func(cur []Record) []Record {
		for i, r := range cur {
			if r.ID() == id {
				return slices.Delete(slices.Clone(cur), i, i+1)
			}
		}
		return cur
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Find returns all records matching pred, or every record when pred is nil.
// It re-reads the backing file on every call and bypasses the mutation
// cache. A missing file reads as an empty collection.
func (c *Collection) Find(pred func(Record) bool) ([]Record, error) {
	recs, err := c.readAll()
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range recs {
		if pred == nil || pred(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

// FindOne returns the first record matching pred, or nil when none does.
func (c *Collection) FindOne(pred func(Record) bool) (Record, error) {
	recs, err := c.readAll()
	if err != nil {
		return nil, err
	}
	for _, r := range recs {
		if pred == nil || pred(r) {
			return r, nil
		}
	}
	return nil, nil
}

// Count returns the number of records currently on disk.
func (c *Collection) Count() (int, error) {
	recs, err := c.readAll()
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (c *Collection) readAll() ([]Record, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}
	return decodeRecords(c.path, data, c.log), nil
}

// invalidate drops the cached state so the next mutation reloads from disk.
func (c *Collection) invalidate() {
	c.mu.Lock()
	c.cache = nil
	c.cached = false
	c.mu.Unlock()
}
