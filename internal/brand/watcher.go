package brand

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a brand profile when its file changes, so long-running
// servers pick up edits without a restart
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration

	mu      sync.RWMutex
	current *Profile
	timer   *time.Timer

	cancel context.CancelFunc
}

// NewWatcher loads the profile at path and prepares a file watcher for it
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	profile, err := Load(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files on save, which would drop a
	// watch on the file itself
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	return &Watcher{
		path:     path,
		watcher:  fw,
		log:      log,
		debounce: 500 * time.Millisecond,
		current:  profile,
	}, nil
}

// Profile returns the most recently loaded profile
func (w *Watcher) Profile() *Profile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for profile changes
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.log.Warn("brand watcher error", "error", err)
			}
		}
	}()
}

// Stop stops watching for profile changes
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.watcher.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	profile, err := Load(w.path)
	if err != nil {
		// Keep serving the last good profile
		w.log.Warn("brand profile reload failed", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.current = profile
	w.mu.Unlock()

	w.log.Info("brand profile reloaded", "name", profile.Name)
}
