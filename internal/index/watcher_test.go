package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, p string) bool {
	_, err := db.GetByPath(p)
	return err == nil
}

func startWatch(t *testing.T, db *DB, root string, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go Watch(ctx, db, []string{root}, quietLogger(), cb)
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()

	var mu sync.Mutex
	var events []string
	startWatch(t, db, root, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+filepath.Base(path))
		mu.Unlock()
	})

	p := filepath.Join(root, "new.png")
	_ = os.WriteFile(p, []byte("png"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, p)
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.png" {
				return true
			}
		}
		return false
	}, "expected created:new.png callback")
}

func TestWatcher_IgnoresNonImages(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	startWatch(t, db, root, nil)

	_ = os.WriteFile(filepath.Join(root, "readme.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(root, "ok.jpg"), []byte("x"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, filepath.Join(root, "ok.jpg"))
	}, "image not indexed")
	if indexed(db, filepath.Join(root, "readme.txt")) {
		t.Error("text file should not be indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	startWatch(t, db, root, nil)

	subDir := filepath.Join(root, "Trip")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	p := filepath.Join(subDir, "deep.jpg")
	_ = os.WriteFile(p, []byte("jpg"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, p)
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	p := filepath.Join(root, "del.png")
	_ = os.WriteFile(p, []byte("png"), 0o644)
	_ = Sync(db, []string{root}, quietLogger())
	if !indexed(db, p) {
		t.Fatal("precondition: file should be indexed")
	}

	startWatch(t, db, root, nil)
	_ = os.Remove(p)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, p)
	}, "deleted file still in index")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	db := testDB(t)
	root := t.TempDir()
	oldPath := filepath.Join(root, "old.png")
	newPath := filepath.Join(root, "renamed.png")
	_ = os.WriteFile(oldPath, []byte("png"), 0o644)
	_ = Sync(db, []string{root}, quietLogger())

	startWatch(t, db, root, nil)
	_ = os.Rename(oldPath, newPath)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return !indexed(db, oldPath) && indexed(db, newPath)
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
