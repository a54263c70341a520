package syncengine

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch supplements the one-shot Sync operation with a debounced
// filesystem-event loop: it calls Sync once immediately, then again every
// time the source tree settles after a burst of changes, until ctx is
// canceled. It never replaces the synchronous Sync contract; a CLI "sync
// --watch" flag is the only caller.
func (e *Engine) Watch(ctx context.Context, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, e.Project.SourceDir); err != nil {
		return err
	}

	if _, err := e.Sync(ctx); err != nil {
		e.Logger.Error("initial sync failed", "error", err)
	}

	var timer *time.Timer
	resetTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			if _, err := e.Sync(ctx); err != nil {
				e.Logger.Error("watch-triggered sync failed", "error", err)
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				resetTimer()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.Logger.Warn("watch error", "error", err)
		}
	}
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if isHidden(info.Name()) && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
