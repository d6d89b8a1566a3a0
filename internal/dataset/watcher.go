package dataset

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"datanerd/internal/logging"
)

// Watcher reloads a dataset file when it changes on disk. Reloads happen
// between exchanges, never mid-dispatch: the callback receives a fully
// parsed replacement Dataset and the caller decides when to swap it in.
type Watcher struct {
	path     string
	enrich   bool
	onReload func(*Dataset)
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the given dataset file. onReload is
// invoked with the freshly loaded (and optionally enriched) Dataset after
// each write settles.
func NewWatcher(path string, enrich bool, onReload func(*Dataset)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the parent directory: editors replace files via rename, which
	// drops a watch on the file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		enrich:   enrich,
		onReload: onReload,
		watcher:  fw,
	}, nil
}

// Run processes file events until the context is cancelled. Write bursts
// are debounced so a reload only fires once the file settles.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	const settle = 250 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(settle)
				timerC = timer.C
			} else {
				timer.Reset(settle)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logging.Get(logging.CategoryDataset).Warn("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	ds, err := LoadFile(w.path)
	if err != nil {
		logging.Get(logging.CategoryDataset).Error("Reload failed for %s: %v", w.path, err)
		return
	}
	if w.enrich {
		ds = ds.Enrich()
	}
	logging.Dataset("Dataset reloaded from %s: %d rows", w.path, len(ds.Rows))
	w.onReload(ds)
}
