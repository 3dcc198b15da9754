// Package watch re-runs generation when watched sources or templates change.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of events, such as an editor saving
// several files at once.
const DefaultDebounce = 300 * time.Millisecond

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before onChange runs.
	Debounce time.Duration
	// Logger receives watcher output. Defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// Watcher watches directory trees for changes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu      sync.RWMutex
	ignored map[string]bool
}

// New watches dirs and every directory below them. Hidden directories such
// as .git are skipped.
func New(dirs []string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		ignored:  make(map[string]bool),
	}

	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			_ = fw.Close()

			return nil, err
		}
	}

	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		return nil
	})
}

// Ignore excludes paths from triggering runs, typically the tool's own outputs.
func (w *Watcher) Ignore(paths ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, p := range paths {
		w.ignored[filepath.Clean(p)] = true
	}
}

func (w *Watcher) isIgnored(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.Contains(base, ".generated.") ||
		strings.HasSuffix(base, ".unformatted") {
		return true
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.ignored[filepath.Clean(path)]
}

// Run calls onChange after each debounced burst of relevant events until ctx
// is done. Errors from onChange are logged, not returned.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context) error) error {
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			if w.isIgnored(event.Name) {
				w.logger.Debugw("watcher ignoring own output", "file", event.Name)

				continue
			}

			if event.Has(fsnotify.Create) {
				w.watchIfDir(event.Name)
			}

			w.logger.Debugw("watcher detected change", "file", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}

			timerCh = timer.C

		case <-timerCh:
			timerCh = nil

			if err := onChange(ctx); err != nil {
				w.logger.Errorw("regeneration failed", "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warnw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) watchIfDir(path string) {
	if err := w.addTree(path); err != nil {
		w.logger.Debugw("not watching new path", "path", path, "error", err)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
