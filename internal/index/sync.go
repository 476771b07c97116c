package index

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NoMediaMarker hides a directory (and everything below it) from the index.
const NoMediaMarker = ".nomedia"

var imageExts = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {}, ".bmp": {},
}

// IsImage reports whether name has one of the indexed image extensions.
func IsImage(name string) bool {
	_, ok := imageExts[strings.ToLower(filepath.Ext(name))]
	return ok && !strings.HasPrefix(filepath.Base(name), ".")
}

// skipDir reports whether the directory at p must not be indexed.
func skipDir(p string, isRoot bool) bool {
	if !isRoot && strings.HasPrefix(filepath.Base(p), ".") {
		return true
	}
	return hasMarker(p)
}

func hasMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, NoMediaMarker))
	return err == nil
}

// Sync walks the library roots and brings the index up to date:
//   - new/changed image files are upserted
//   - rows whose files are gone are deleted
func Sync(db *DB, roots []string, logger *slog.Logger) error {
	return reconcile(db, roots, logger, nil)
}

func reconcile(db *DB, roots []string, logger *slog.Logger, cb EventCallback) error {
	stamps, err := db.AllStamps()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(stamps))
	complete := true
	for _, root := range roots {
		err := walkImages(root, func(p string, info os.FileInfo) {
			disk[p] = struct{}{}
			old, known := stamps[p]
			row := RowFromInfo(p, info)
			if known && old.Size == row.Size && old.DateModified == row.DateModified {
				return
			}
			if _, err := db.UpsertImage(row); err != nil {
				logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
				return
			}
			logger.Debug("sync: indexed", slog.String("path", p))
			if cb != nil {
				kind := "updated"
				if !known {
					kind = "created"
				}
				cb(kind, p)
			}
		})
		if err != nil {
			complete = false
			logger.Warn("sync: walk failed", slog.String("root", root), slog.String("error", err.Error()))
		}
	}

	// A root that could not be walked says nothing about its files.
	if !complete {
		return nil
	}

	for p := range stamps {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteImage(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb("deleted", p)
		}
	}
	return nil
}

// walkImages calls fn for every indexable image below root.
func walkImages(root string, fn func(p string, info os.FileInfo)) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == root {
				return walkErr
			}
			return nil
		}
		if d.IsDir() {
			if skipDir(p, p == root) {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsImage(d.Name()) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		fn(p, info)
		return nil
	})
}
