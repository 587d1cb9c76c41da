package docdb

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// dirWatcher invalidates collection caches when their backing files change
// on disk. The pipeline's own writes land here too; invalidating after a
// self-write only costs a re-read on the next mutation, since the file is
// the source of truth either way.
type dirWatcher struct {
	store *Store
	w     *fsnotify.Watcher
}

func newDirWatcher(s *Store) (*dirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(s.dir); err != nil {
		_ = w.Close()
		return nil, err
	}
	dw := &dirWatcher{store: s, w: w}
	go dw.loop()
	return dw, nil
}

func (dw *dirWatcher) loop() {
	for {
		select {
		case event, ok := <-dw.w.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".json") {
				continue
			}
			name := strings.TrimSuffix(base, ".json")
			if c := dw.store.lookup(name); c != nil {
				c.invalidate()
				dw.store.log.Debug("Invalidated collection cache", "collection", name, "op", event.Op.String())
			}
		case err, ok := <-dw.w.Errors:
			if !ok {
				return
			}
			dw.store.log.Warn("Error watching data directory", "err", err)
		}
	}
}

func (dw *dirWatcher) close() error {
	return dw.w.Close()
}
