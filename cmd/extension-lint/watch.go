package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const watchDebounce = 200 * time.Millisecond

// watch lints once, then again after every burst of changes under the
// configured paths, until ctx is done.
func watch(ctx context.Context, config *Config, out io.Writer, logger *logrus.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range config.Paths {
		if err := setupWatcher(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	lint := func() {
		if _, err := run(config, out, logger); err != nil {
			logger.WithError(err).Error("Lint failed")
		}
	}
	lint()
	logger.Infof("Watching %d paths for descriptor changes", len(config.Paths))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			logger.Debugf("Changed: %s (%s)", event.Name, event.Op)

			// Watch new directories
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := setupWatcher(watcher, event.Name); err != nil {
						logger.WithError(err).Warn("Error watching new directory")
					}
				}
			}

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			lint()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Watcher error")
		}
	}
}

// setupWatcher adds root, and every directory beneath it, to the watcher.
// A file is watched through its parent directory.
func setupWatcher(watcher *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(filepath.Dir(root))
	}
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
