package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teranos/lore/config"
	"github.com/teranos/lore/errors"
	"github.com/teranos/lore/graph"
	"github.com/teranos/lore/logger"
)

// Watcher watches the records directory and rebuilds the graph when
// record files change. Hosts receive a freshly built graph through
// registered callbacks and swap their snapshot; the graph itself is
// never mutated after Build.
type Watcher struct {
	cfg            *config.Config
	root           string
	watcher        *fsnotify.Watcher
	callbacks      []ReloadCallback
	mu             sync.RWMutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
}

// ReloadCallback receives the rebuilt graph after a workspace change.
type ReloadCallback func(*graph.Graph) error

// NewWatcher creates a watcher over the workspace's records directory,
// including its subdirectories.
func NewWatcher(cfg *config.Config, root string) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	recordsDir := cfg.RecordsDir(root)
	if err := addRecursive(watcher, recordsDir); err != nil {
		watcher.Close()
		return nil, err
	}

	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	return &Watcher{
		cfg:            cfg,
		root:           root,
		watcher:        watcher,
		debouncePeriod: debounce,
	}, nil
}

func addRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.Wrapf(err, "failed to watch %s", path)
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return errors.Wrapf(err, "failed to watch directory %s", path)
			}
		}
		return nil
	})
}

// OnReload registers a callback invoked with each rebuilt graph.
func (w *Watcher) OnReload(callback ReloadCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for record file changes.
func (w *Watcher) Start() {
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New subdirectories must be watched before their files
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addRecursive(w.watcher, event.Name)
				}
			}

			if !isRecordEvent(event) {
				continue
			}
			logger.Debugw("workspace change detected",
				"file", event.Name,
				"op", event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("workspace watcher error",
				"error", err)
		}
	}
}

func isRecordEvent(event fsnotify.Event) bool {
	if !strings.HasSuffix(event.Name, ".toml") {
		return false
	}
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	return event.Op&relevant != 0
}

// scheduleReload debounces rapid file changes before rebuilding.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		if err := w.reload(); err != nil {
			logger.Errorw("workspace reload failed",
				"error", err)
		}
	})
}

func (w *Watcher) reload() error {
	g, err := Load(w.cfg, w.root)
	if err != nil {
		return err
	}

	logger.Infow("workspace reloaded",
		"entities", g.Len())

	w.mu.RLock()
	callbacks := make([]ReloadCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		if err := callback(g); err != nil {
			logger.Warnw("workspace reload callback error",
				"error", err)
		}
	}
	return nil
}

// Stop stops watching for workspace changes.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
