package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted"; path is absolute.
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on every library root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// New directories created at runtime are automatically added to the watch
// list unless they are hidden or carry a .nomedia marker. Rename events
// trigger a debounced reconciliation pass over all roots.
func Watch(ctx context.Context, db *DB, roots []string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return err
		}
		if err := addDirsRecursive(w, a); err != nil {
			return err
		}
		abs = append(abs, a)
		logger.Info("watcher: started", slog.String("root", a))
	}

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, p string) {
		if cb != nil {
			cb(kind, p)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := reconcile(db, abs, logger, cb); err != nil {
				logger.Warn("reconcile: failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			p := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(p); statErr == nil && info.IsDir() {
					if skipDir(p, false) {
						continue
					}
					if addErr := addDirsRecursive(w, p); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", p),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", p))
					}
					indexNewDir(db, p, logger, notify)
					continue
				}
			}

			// A .nomedia marker appearing or disappearing changes what the
			// whole directory contributes.
			if filepath.Base(p) == NoMediaMarker {
				scheduleReconcile()
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				if !IsImage(p) || hasMarker(filepath.Dir(p)) {
					continue
				}
				info, statErr := os.Stat(p)
				if statErr != nil || info.IsDir() {
					continue
				}
				_, known := lookup(db, p)
				if _, idxErr := db.UpsertImage(RowFromInfo(p, info)); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", p), slog.String("error", idxErr.Error()))
					continue
				}
				kind := "updated"
				if !known {
					kind = "created"
				}
				logger.Debug("watcher: indexed", slog.String("path", p), slog.String("op", kind))
				notify(kind, p)

			case ev.Op&fsnotify.Remove != 0:
				removePath(db, p, logger, notify)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the old path only; the new path
				// arrives as a Create if it stays inside a watched dir.
				removePath(db, p, logger, notify)
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func lookup(db *DB, p string) (*ImageRow, bool) {
	r, err := db.GetByPath(p)
	return r, err == nil
}

// removePath drops p from the index. p may be a file or a whole directory.
func removePath(db *DB, p string, logger *slog.Logger, notify func(string, string)) {
	if _, ok := lookup(db, p); ok {
		if err := db.DeleteImage(p); err != nil {
			logger.Warn("watcher: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			return
		}
		logger.Debug("watcher: deleted", slog.String("path", p))
		notify("deleted", p)
		return
	}
	n, err := db.DeleteUnder(p)
	if err != nil {
		logger.Warn("watcher: delete dir failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		logger.Debug("watcher: deleted dir", slog.String("path", p), slog.Int64("rows", n))
		notify("deleted", p)
	}
}

// indexNewDir indexes any images already present in a newly created directory.
func indexNewDir(db *DB, dir string, logger *slog.Logger, notify func(string, string)) {
	_ = walkImages(dir, func(p string, info os.FileInfo) {
		if _, err := db.UpsertImage(RowFromInfo(p, info)); err == nil {
			logger.Debug("watcher: indexed from new dir", slog.String("path", p))
			notify("created", p)
		}
	})
}

// addDirsRecursive adds root and all its indexable subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		// The root is watched even when marked so that removing the
		// marker is noticed.
		if p != root && skipDir(p, false) {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
