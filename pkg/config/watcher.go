package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before a reload fires.
const DefaultDebounce = 500 * time.Millisecond

// WatchConfig watches the given files and emits the absolute path of a file
// once its changes have settled for the debounce duration. The parent
// directories are watched rather than the files themselves so editors that
// save by rename (vim, nano) keep triggering reloads.
// The returned channel is closed when ctx is canceled.
func WatchConfig(ctx context.Context, debounce time.Duration, files ...string) <-chan string {
	reloadCh := make(chan string, len(files)+1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		close(reloadCh)
		return reloadCh
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		watched[absPath] = true

		dir := filepath.Dir(absPath)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			slog.Warn("Could not watch directory", "dir", dir, "error", err)
			continue
		}
		dirs[dir] = true
		slog.Debug("Watching configuration file", "file", absPath)
	}

	go func() {
		defer watcher.Close()
		defer close(reloadCh)

		// 計時器只通知迴圈，reloadCh 只由迴圈寫入
		fired := make(chan string)
		done := make(chan struct{})
		defer close(done)

		timers := make(map[string]*time.Timer)
		defer func() {
			for _, t := range timers {
				t.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case name := <-fired:
				slog.Info("Configuration change detected", "file", name)
				select {
				case reloadCh <- name:
				case <-ctx.Done():
					return
				}
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				name := filepath.Clean(event.Name)
				if !watched[name] {
					continue
				}
				// 只在寫入或重新建立時觸發
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}
				if t, ok := timers[name]; ok {
					t.Stop()
				}
				timers[name] = time.AfterFunc(debounce, func() {
					select {
					case fired <- name:
					case <-done:
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}
