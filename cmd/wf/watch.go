package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/weftlabs/weft/internal/lockfile"
)

// watchDebounce coalesces bursts of document writes into one re-render.
const watchDebounce = 500 * time.Millisecond

// watchWeftDir re-runs render whenever the workspace documents change,
// until the context is cancelled (Ctrl-C). Single-instance per workspace
// via a flock on .weft/watch.lock; the lock guards the watcher only,
// never the documents. Watching is read-only.
func watchWeftDir(ctx context.Context, weftDir string, render func() error) error {
	lock, err := lockfile.Acquire(filepath.Join(weftDir, "watch.lock"))
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			return fmt.Errorf("another wf --watch is already running for this workspace")
		}
		return err
	}
	defer func() { _ = lock.Release() }()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(weftDir); err != nil {
		return fmt.Errorf("watch %s: %w", weftDir, err)
	}

	if err := render(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var debounce *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if debounce == nil {
					debounce = time.NewTimer(watchDebounce)
					fire = debounce.C
				} else {
					debounce.Reset(watchDebounce)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				WarnError("watch: %v", err)
			case <-fire:
				debounce = nil
				fire = nil
				if err := render(); err != nil {
					return err
				}
			}
		}
	})
	return g.Wait()
}
