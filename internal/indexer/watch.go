package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle
const DefaultDebounce = 200 * time.Millisecond

// WatchFunc receives the outcome of every incremental run
type WatchFunc func(stats *Statistics, err error)

// Watch keeps the index of rootPath current until ctx is cancelled. Changes
// are collected until no event has arrived for debounce, then the changed
// files are re-indexed with IndexFiles. The initial full index is the
// caller's job.
func (idx *Indexer) Watch(ctx context.Context, rootPath string, config *Config, debounce time.Duration, onRun WatchFunc) error {
	config = normalizeConfig(config)
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	root, err := filepath.Abs(rootPath)
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	m, err := newMatcher(config.Include, config.Exclude)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	if err := addDirs(w, root, root, m); err != nil {
		return err
	}
	idx.logger.Info("watching for changes", "root", root, "debounce", debounce)

	pending := make(map[string]bool)
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = addDirs(w, root, event.Name, m)
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			rel, ok := relativePath(root, event.Name)
			if !ok || !m.Match(rel) {
				continue
			}
			pending[rel] = true
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			idx.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)

			stats, err := idx.IndexFiles(ctx, root, paths, config)
			if err != nil {
				idx.logger.Error("incremental index failed", "error", err)
			}
			if onRun != nil {
				onRun(stats, err)
			}
		}
	}
}

// addDirs watches dir and every subdirectory the matcher does not prune
func addDirs(w *fsnotify.Watcher, root, dir string, m *matcher) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr == nil && m.SkipDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
