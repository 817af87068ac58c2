package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before its change
// callback runs. Editors and SaveProfiles produce bursts of events.
const DefaultDebounce = 250 * time.Millisecond

// Watcher calls a callback when one of its files changes on disk.
//
// The parent directory of each file is watched rather than the file itself,
// because atomic saves replace the file and a watch on the old inode would
// go quiet. Callbacks run on the Run goroutine, one at a time.
type Watcher struct {
	log      logs.Log
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu    sync.Mutex
	files map[string]func()
	dirs  map[string]bool
}

// NewWatcher creates a watcher. A debounce of 0 selects DefaultDebounce.
func NewWatcher(log logs.Log, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		log:      log,
		fsw:      fsw,
		debounce: debounce,
		files:    make(map[string]func()),
		dirs:     make(map[string]bool),
	}, nil
}

// Add registers onChange for path. The file does not need to exist yet, but
// its directory does.
func (w *Watcher) Add(path string, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.dirs[dir] {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.dirs[dir] = true
	}
	w.files[abs] = onChange
	return nil
}

func (w *Watcher) callback(path string) (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn, ok := w.files[path]
	return fn, ok
}

// Run delivers change callbacks until ctx is cancelled or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]*time.Timer)
	fire := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			path := filepath.Clean(ev.Name)
			if _, tracked := w.callback(path); !tracked {
				continue
			}
			if t, ok := pending[path]; ok {
				t.Reset(w.debounce)
				continue
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- path:
				case <-ctx.Done():
				}
			})

		case path := <-fire:
			delete(pending, path)
			if fn, ok := w.callback(path); ok {
				w.log.Debugf("config: %s changed", path)
				fn()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("config: watcher error: %v", err)
		}
	}
}

// Close stops watching. Run returns once its channels close.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
