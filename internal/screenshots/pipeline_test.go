package screenshots

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/prefs"
)

type fakeLibrary struct {
	root     string
	items    []models.ImageItem
	err      error
	readable bool
}

func (f *fakeLibrary) IsScreenshot(it models.ImageItem) bool {
	rel := strings.TrimPrefix(filepath.Join(it.FolderPath, it.DisplayName), f.root+"/")
	return media.MatchesScreenshot(rel)
}

func (f *fakeLibrary) Images(context.Context) ([]models.ImageItem, error) { return f.items, f.err }
func (f *fakeLibrary) Readable() bool                                      { return f.readable }

type fakeNotes struct {
	mu       sync.Mutex
	notes    map[string]models.Note
	next     int
	failSave bool
	deleted  []string
}

func newFakeNotes() *fakeNotes { return &fakeNotes{notes: map[string]models.Note{}} }

func (f *fakeNotes) Create(_ context.Context, title string, _ *string) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	n := models.Note{ID: "note-" + strconv.Itoa(f.next), Title: title, FilePath: "/notes/" + title + ".md"}
	f.notes[n.ID] = n
	return n, nil
}

func (f *fakeNotes) Save(_ context.Context, n models.Note) (models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return models.Note{}, errors.New("disk full")
	}
	f.notes[n.ID] = n
	return n, nil
}

func (f *fakeNotes) Delete(_ context.Context, n models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.notes, n.ID)
	f.deleted = append(f.deleted, n.ID)
	return nil
}

type fakeOCR map[string]string

func (f fakeOCR) ExtractText(_ context.Context, uri string) string { return f[uri] }

type harness struct {
	lib   *fakeLibrary
	notes *fakeNotes
	ocr   fakeOCR
	db    *prefs.DB
	p     *Pipeline
	now   time.Time
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h := &harness{
		lib:   &fakeLibrary{root: "/p", readable: true},
		notes: newFakeNotes(),
		ocr:   fakeOCR{},
		db:    db,
		now:   time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC),
	}
	h.p = h.newPipeline()
	return h
}

func (h *harness) newPipeline() *Pipeline {
	p := New(h.lib, h.notes, h.ocr, h.db.Namespace(Namespace), quietLogger())
	p.now = func() time.Time { return h.now }
	p.loc = time.UTC
	return p
}

func shot(id int64, folder, name string, modified time.Time) models.ImageItem {
	return models.ImageItem{
		ID:           id,
		URI:          "media://images/" + strconv.FormatInt(id, 10),
		DisplayName:  name,
		DateModified: modified.UnixMilli(),
		FolderName:   filepath.Base(folder),
		FolderPath:   folder,
	}
}

func TestScanIgnoresScreenshotInRoot(t *testing.T) {
	h := newHarness(t)
	h.lib.root = "/home/me/Screenshots-archive"
	day := h.now.Add(-time.Hour)
	h.lib.items = []models.ImageItem{
		shot(1, "/home/me/Screenshots-archive/Camera", "beach.jpg", day),
		shot(2, "/home/me/Screenshots-archive/Phone", "Screenshot_3.png", day),
	}

	res := h.p.Scan(context.Background())
	if res.NewImagesFound != 1 {
		t.Fatalf("NewImagesFound = %d, want 1", res.NewImagesFound)
	}
	if got := h.p.Pending(); len(got) != 1 || got[0].ID != 2 {
		t.Errorf("pending = %+v", got)
	}
}

func TestScanFindsNewScreenshots(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	day := h.now.Add(-time.Hour)
	h.lib.items = []models.ImageItem{
		shot(1, "/p/Screenshots", "a.png", day),
		shot(2, "/p/Camera", "beach.jpg", day),
		shot(3, "/p/Camera", "Screenshot_2.png", day),
	}

	res := h.p.Scan(ctx)
	if !res.Success || res.NewImagesFound != 2 || res.TotalPending != 2 {
		t.Fatalf("Scan = %+v", res)
	}
	if res.Message != "Found 2 new screenshots" {
		t.Errorf("message = %q", res.Message)
	}

	// nothing newer than the last scan
	res = h.p.Scan(ctx)
	if res.NewImagesFound != 0 || res.TotalPending != 2 {
		t.Errorf("second scan = %+v", res)
	}
	if res.Message != "You're doing well! No new screenshots today." {
		t.Errorf("message = %q", res.Message)
	}
	if got := h.db.Namespace(Namespace).Int64(keyPendCount, -1); got != 2 {
		t.Errorf("persisted pending count = %d", got)
	}
}

func TestScanMessages(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "You're doing well! No new screenshots today."},
		{1, "Found 1 new screenshot"},
		{4, "Found 4 new screenshots"},
		{5, "Found 5 new screenshots!"},
	}
	for _, tt := range tests {
		if got := scanMessage(tt.n); got != tt.want {
			t.Errorf("scanMessage(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestScanDedupesPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Minute))
	h.lib.items = []models.ImageItem{item}
	h.p.Scan(ctx)

	// the same image shows up again with a newer mtime
	h.now = h.now.Add(time.Hour)
	item.DateModified = h.now.Add(-time.Minute).UnixMilli()
	h.lib.items = []models.ImageItem{item}
	res := h.p.Scan(ctx)
	if res.NewImagesFound != 1 || res.TotalPending != 1 {
		t.Errorf("Scan = %+v, want the item counted but not duplicated", res)
	}
}

func TestScanFailures(t *testing.T) {
	h := newHarness(t)
	h.lib.readable = false
	res := h.p.Scan(context.Background())
	if res.Success || res.Message != "Media permission required to scan screenshots" {
		t.Errorf("unreadable = %+v", res)
	}

	h.lib.readable = true
	h.lib.err = errors.New("index locked")
	res = h.p.Scan(context.Background())
	if res.Success || res.Message != "Scan failed: index locked" {
		t.Errorf("list failure = %+v", res)
	}
}

func TestProcessImage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	modified := time.Date(2024, 5, 19, 14, 3, 7, 0, time.UTC)
	item := shot(1, "/p/Screenshots", "Screenshot_1.png", modified)
	h.ocr[item.URI] = "\n  Meeting notes for the quarterly planning session\nsecond line"
	h.lib.items = []models.ImageItem{item}
	h.p.Scan(ctx)

	n, err := h.p.ProcessImage(ctx, item)
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	wantTitle := "OCR May 19, 14:03 - Meeting notes for the quarterl..."
	if n.Title != wantTitle {
		t.Errorf("title = %q, want %q", n.Title, wantTitle)
	}
	for _, part := range []string{
		"# " + wantTitle + "\n\n",
		"**Source:** Screenshot_1.png\n",
		"**Date:** 2024-05-19 14:03:07\n",
		"## Extracted Text\n\nMeeting notes for the quarterly planning session\nsecond line\n\n---\n",
		"*Processed with OCR on 2024-05-20 09:00:00*",
	} {
		if !strings.Contains(n.Content, part) {
			t.Errorf("content missing %q:\n%s", part, n.Content)
		}
	}
	if len(n.Tags) != 1 || n.Tags[0].Type != models.TagScreenshot {
		t.Errorf("tags = %+v", n.Tags)
	}
	if n.WordCount == 0 {
		t.Error("word count not computed")
	}
	if h.p.PendingCount() != 0 || h.p.ProcessedCount() != 1 {
		t.Errorf("pending=%d processed=%d", h.p.PendingCount(), h.p.ProcessedCount())
	}

	// a later scan with a reset clock must not pick it up again
	_ = h.db.Namespace(Namespace).PutInt64(keyLastScan, 0)
	if res := h.p.Scan(ctx); res.NewImagesFound != 0 {
		t.Errorf("processed image rescanned: %+v", res)
	}
}

func TestProcessedMatchesByPath(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Hour))
	h.ocr[item.URI] = "text"
	if _, err := h.p.ProcessImage(ctx, item); err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}

	// the index re-created the row under a new id
	again := item
	again.ID = 9
	again.URI = "media://images/9"
	h.lib.items = []models.ImageItem{again}
	_ = h.db.Namespace(Namespace).PutInt64(keyLastScan, 0)
	if res := h.p.Scan(ctx); res.NewImagesFound != 0 {
		t.Errorf("same file under a new uri was rescanned: %+v", res)
	}
}

func TestProcessImageNoText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := shot(1, "/p/Screenshots", "blank.png", h.now.Add(-time.Hour))
	h.ocr[item.URI] = "   \n "
	h.lib.items = []models.ImageItem{item}
	h.p.Scan(ctx)

	if _, err := h.p.ProcessImage(ctx, item); !errors.Is(err, apperr.ErrNoText) {
		t.Errorf("err = %v, want ErrNoText", err)
	}
	if h.p.PendingCount() != 1 {
		t.Error("failed image should stay pending")
	}
	if len(h.notes.notes) != 0 {
		t.Error("no note should be created")
	}
}

func TestProcessImageSaveFailureCleansUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	item := shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Hour))
	h.ocr[item.URI] = "hello"
	h.lib.items = []models.ImageItem{item}
	h.p.Scan(ctx)
	h.notes.failSave = true

	if _, err := h.p.ProcessImage(ctx, item); err == nil {
		t.Fatal("expected error")
	}
	if len(h.notes.deleted) != 1 || len(h.notes.notes) != 0 {
		t.Errorf("created note not cleaned up: deleted=%v notes=%v", h.notes.deleted, h.notes.notes)
	}
	if h.p.PendingCount() != 1 || h.p.ProcessedCount() != 0 {
		t.Errorf("pending=%d processed=%d", h.p.PendingCount(), h.p.ProcessedCount())
	}
}

func TestProcessPending(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.p.ProcessPending(ctx)
	if !res.Success || res.Message != "No images to process" {
		t.Errorf("empty = %+v", res)
	}

	a := shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Hour))
	b := shot(2, "/p/Screenshots", "b.png", h.now.Add(-time.Hour))
	c := shot(3, "/p/Screenshots", "c.png", h.now.Add(-time.Hour))
	h.ocr[a.URI] = "alpha"
	h.ocr[c.URI] = "gamma"
	h.lib.items = []models.ImageItem{a, b, c}
	h.p.Scan(ctx)

	res = h.p.ProcessPending(ctx)
	if res.Processed != 2 || res.Failed != 1 || res.Success {
		t.Errorf("ProcessPending = %+v", res)
	}
	if res.Message != "Processed 2 images, 1 failed" {
		t.Errorf("message = %q", res.Message)
	}
	pending := h.p.Pending()
	if len(pending) != 1 || pending[0].URI != b.URI {
		t.Errorf("pending = %+v", pending)
	}
}

func TestPendingSurvivesRestart(t *testing.T) {
	h := newHarness(t)
	h.lib.items = []models.ImageItem{shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Hour))}
	h.p.Scan(context.Background())

	restarted := h.newPipeline()
	if restarted.PendingCount() != 1 {
		t.Errorf("pending after restart = %d", restarted.PendingCount())
	}
	if restarted.LastScan().IsZero() {
		t.Error("last scan time not persisted")
	}
}

func TestScanAndProcess(t *testing.T) {
	h := newHarness(t)
	item := shot(1, "/p/Screenshots", "a.png", h.now.Add(-time.Hour))
	h.ocr[item.URI] = "text"
	h.lib.items = []models.ImageItem{item}

	var events []string
	h.p.OnChange(func(event string, _ any) { events = append(events, event) })

	scan, proc := h.p.ScanAndProcess(context.Background())
	if scan.NewImagesFound != 1 || proc.Processed != 1 || !proc.Success {
		t.Errorf("scan=%+v proc=%+v", scan, proc)
	}
	if proc.Message != "Processed 1 images" {
		t.Errorf("message = %q", proc.Message)
	}
	if len(events) == 0 || events[0] != "pending.updated" {
		t.Errorf("events = %v", events)
	}
}

func TestNoteTitle(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC)
	tests := []struct {
		text string
		want string
	}{
		{"short", "OCR Jan 02, 03:04 - short"},
		{"\n\n   padded line  \nnext", "OCR Jan 02, 03:04 - padded line"},
		{strings.Repeat("x", 30), "OCR Jan 02, 03:04 - " + strings.Repeat("x", 30) + "..."},
		{strings.Repeat("é", 31), "OCR Jan 02, 03:04 - " + strings.Repeat("é", 30) + "..."},
		{"   ", "OCR Jan 02, 03:04"},
	}
	for _, tt := range tests {
		if got := NoteTitle(ts, tt.text); got != tt.want {
			t.Errorf("NoteTitle(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
