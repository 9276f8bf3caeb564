package storage

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Object event kinds reported by Watch.
const (
	ObjectPut     = "put"
	ObjectRemoved = "removed"
)

// EventCallback is called for every object change seen on disk.
type EventCallback func(kind string, key string)

// Watch starts an fsnotify watcher on the object root and reports object
// changes until ctx is cancelled. Uploads land through a temp file and a
// rename, so temp files are ignored and the final Create is reported.
//
// New directories created at runtime (keys containing slashes) are added
// to the watch list.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if strings.HasPrefix(filepath.Base(ev.Name), tmpPrefix) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			key := filepath.ToSlash(rel)

			var kind string
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind = ObjectPut
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = ObjectRemoved
			default:
				continue
			}

			logger.Debug("watcher: object changed", slog.String("key", key), slog.String("op", kind))
			if cb != nil {
				cb(kind, key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
