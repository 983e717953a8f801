package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval batches filesystem events: a sync trigger fires only
// after the library has been quiet for this long, so a burst of imports
// produces one run instead of hundreds.
const debounceInterval = 500 * time.Millisecond

// Watcher observes the library directory and emits a signal on Changes()
// after each settled burst of modifications.
type Watcher struct {
	library *Library
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	changes chan struct{}
}

// NewWatcher creates a watcher over the library, recursively watching
// every non-hidden subdirectory.
func NewWatcher(library *Library, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	w := &Watcher{
		library: library,
		logger:  logger,
		fsw:     fsw,
		changes: make(chan struct{}, 1),
	}

	if err := w.addRecursive(library.Dir()); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Changes returns the debounced trigger channel. Capacity one; a pending
// trigger coalesces with later ones.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Run processes filesystem events until the context is done. New
// directories are added to the watch set as they appear.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			if w.shouldIgnore(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("watching new directory",
							slog.String("path", event.Name),
							slog.String("error", err.Error()),
						)
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(debounceInterval)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}

				timer.Reset(debounceInterval)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil

			select {
			case w.changes <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", err.Error()))
		}
	}
}

// addRecursive watches dir and every non-hidden directory under it.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != dir && strings.HasPrefix(filepath.Base(path), ".") {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}

		return nil
	})
}

// shouldIgnore filters events for hidden files and directories anywhere
// in the path.
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.library.Dir(), path)
	if err != nil {
		return true
	}

	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return true
		}
	}

	return false
}
