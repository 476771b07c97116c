// Package testutil wires a throwaway library, index and notes store for
// tests of the outer surfaces.
package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/noor/internal/index"
	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/notes"
	"github.com/starford/noor/internal/ocr"
	"github.com/starford/noor/internal/prefs"
	"github.com/starford/noor/internal/screenshots"
	"github.com/starford/noor/internal/tags"
)

// Logger returns a logger that only reports errors.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestIndex creates a temporary media index that is closed on cleanup.
func TestIndex(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPrefs creates a temporary prefs database that is closed on cleanup.
func TestPrefs(t *testing.T) *prefs.DB {
	t.Helper()
	db, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// PNG returns a small encoded image.
func PNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// WriteImage writes a PNG at p (creating parents) with the given mtime.
func WriteImage(t *testing.T, p string, mtime time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, PNG(t), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

// Recognizer returns the same text for every image.
type Recognizer string

// Recognize implements ocr.Recognizer.
func (r Recognizer) Recognize(context.Context, image.Image) (string, error) {
	return string(r), nil
}

// Env is a fully wired set of repositories over temp directories.
type Env struct {
	Root     string // library root
	Index    *index.DB
	Prefs    *prefs.DB
	Tags     *tags.Store
	Library  *media.Library
	Notes    *notes.Repository
	Pipeline *screenshots.Pipeline
}

// NewEnv builds an Env whose OCR always answers with rec. Notes live in a
// marked directory under the library root so they are never indexed.
func NewEnv(t *testing.T, rec ocr.Recognizer) *Env {
	t.Helper()
	logger := Logger()
	root := filepath.Join(t.TempDir(), "library")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	db := TestIndex(t)
	pdb := TestPrefs(t)

	ts := tags.New(pdb.Namespace(tags.Namespace), logger)
	lib := media.New(db, ts, []string{root}, "", logger)
	repo, err := notes.Open(root, pdb.Namespace(notes.Namespace), logger)
	if err != nil {
		t.Fatal(err)
	}
	proc := ocr.NewProcessor(lib, rec, logger)
	pipe := screenshots.New(lib, repo, proc, pdb.Namespace(screenshots.Namespace), logger)

	return &Env{Root: root, Index: db, Prefs: pdb, Tags: ts, Library: lib, Notes: repo, Pipeline: pipe}
}

// Sync indexes the library root.
func (e *Env) Sync(t *testing.T) {
	t.Helper()
	if err := index.Sync(e.Index, []string{e.Root}, Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
