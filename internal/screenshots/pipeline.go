// Package screenshots finds new screenshots in the media index and turns
// them into markdown notes through OCR.
package screenshots

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/l10n"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/prefs"
)

// Namespace is the prefs namespace holding scan state.
const Namespace = "ocr_prefs"

const (
	keyLastScan  = "last_scan_time"
	keyProcessed = "processed_images"
	keyPending   = "pending_images"
	keyPendCount = "pending_count"

	// ManyThreshold is the count from which a scan is reported as "many".
	ManyThreshold = 5

	titleLineMax = 30
)

// Library is the media listing the pipeline scans.
type Library interface {
	Images(ctx context.Context) ([]models.ImageItem, error)
	Readable() bool
	IsScreenshot(it models.ImageItem) bool
}

// NoteStore receives the notes produced from screenshots.
type NoteStore interface {
	Create(ctx context.Context, title string, folderID *string) (models.Note, error)
	Save(ctx context.Context, n models.Note) (models.Note, error)
	Delete(ctx context.Context, n models.Note) error
}

// TextExtractor runs OCR on an image URI; "" means nothing was recognized.
type TextExtractor interface {
	ExtractText(ctx context.Context, uri string) string
}

// Listener receives state changes: "scan.completed" with a ScanResult and
// "pending.updated" with a Stats value.
type Listener func(event string, data any)

// Stats is a snapshot of the pipeline counters.
type Stats struct {
	Pending   int `json:"pending"`
	Processed int `json:"processed"`
}

// Pipeline holds the pending list and drives scanning and processing.
type Pipeline struct {
	lib    Library
	notes  NoteStore
	ocr    TextExtractor
	kv     *prefs.Store
	logger *slog.Logger
	now    func() time.Time
	loc    *time.Location

	procMu sync.Mutex // one processing pass at a time

	mu        sync.Mutex
	pending   []models.ImageItem
	processed int
	listener  Listener
}

// New creates a Pipeline and restores the persisted pending list.
func New(lib Library, notes NoteStore, ocr TextExtractor, kv *prefs.Store, logger *slog.Logger) *Pipeline {
	p := &Pipeline{
		lib:    lib,
		notes:  notes,
		ocr:    ocr,
		kv:     kv,
		logger: logger,
		now:    time.Now,
		loc:    time.Local,
	}
	var pending []models.ImageItem
	if _, err := kv.GetJSON(keyPending, &pending); err != nil {
		logger.Warn("scan: pending list unreadable, starting empty", slog.String("error", err.Error()))
		pending = nil
	}
	p.pending = pending
	return p
}

// OnChange registers the listener for state changes.
func (p *Pipeline) OnChange(fn Listener) {
	p.mu.Lock()
	p.listener = fn
	p.mu.Unlock()
}

// Pending returns a copy of the pending list.
func (p *Pipeline) Pending() []models.ImageItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ImageItem, len(p.pending))
	copy(out, p.pending)
	return out
}

// PendingCount returns the number of images waiting for OCR.
func (p *Pipeline) PendingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// ProcessedCount returns how many images were turned into notes since start.
func (p *Pipeline) ProcessedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}

// Stats returns both counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Pending: len(p.pending), Processed: p.processed}
}

// LastScan returns the time of the last successful scan, zero if none.
func (p *Pipeline) LastScan() time.Time {
	ms := p.kv.Int64(keyLastScan, 0)
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Scan looks for screenshots modified after the last scan that were never
// processed and appends them to the pending list.
func (p *Pipeline) Scan(ctx context.Context) models.ScanResult {
	res := p.scan(ctx)
	if res.Success {
		p.logger.Info("scan: complete",
			slog.Int("new", res.NewImagesFound),
			slog.Int("pending", res.TotalPending))
	} else {
		p.logger.Warn("scan: failed", slog.String("message", res.Message))
	}
	p.emit("scan.completed", res)
	return res
}

func (p *Pipeline) scan(ctx context.Context) models.ScanResult {
	if !p.lib.Readable() {
		return models.ScanResult{Message: l10n.Sprintf(l10n.ScanNoAccess)}
	}
	items, err := p.lib.Images(ctx)
	if err != nil {
		return models.ScanResult{Message: l10n.Sprintf(l10n.ScanFailed, err.Error())}
	}

	processed, err := p.processedSet()
	if err != nil {
		p.logger.Error("scan: processed set unreadable", slog.String("error", err.Error()))
		processed = map[string]struct{}{}
	}
	lastScan := p.kv.Int64(keyLastScan, 0)

	var found []models.ImageItem
	for _, it := range items {
		if !p.lib.IsScreenshot(it) || it.DateModified <= lastScan {
			continue
		}
		if _, done := processed[it.URI]; done {
			continue
		}
		if _, done := processed[itemPath(it)]; done {
			continue
		}
		p.logger.Debug("scan: found screenshot", slog.String("name", it.DisplayName), slog.String("uri", it.URI))
		found = append(found, it)
	}

	p.mu.Lock()
	known := make(map[string]struct{}, len(p.pending))
	for _, it := range p.pending {
		known[it.URI] = struct{}{}
	}
	for _, it := range found {
		if _, dup := known[it.URI]; !dup {
			p.pending = append(p.pending, it)
			known[it.URI] = struct{}{}
		}
	}
	total := len(p.pending)
	snapshot := append([]models.ImageItem(nil), p.pending...)
	p.mu.Unlock()

	if err := p.kv.PutInt64(keyLastScan, p.now().UnixMilli()); err != nil {
		return models.ScanResult{Message: l10n.Sprintf(l10n.ScanFailed, err.Error())}
	}
	p.persistPending(snapshot)

	return models.ScanResult{
		NewImagesFound: len(found),
		TotalPending:   total,
		Success:        true,
		Message:        scanMessage(len(found)),
	}
}

func scanMessage(n int) string {
	switch {
	case n >= ManyThreshold:
		return l10n.Sprintf(l10n.ScanFoundMany, n)
	case n > 0:
		return l10n.Sprintf(l10n.ScanFound, n)
	}
	return l10n.Sprintf(l10n.ScanNone)
}

func itemPath(it models.ImageItem) string {
	return filepath.Join(it.FolderPath, it.DisplayName)
}

// ProcessImage runs OCR on one image and stores the text as a note tagged
// SCREENSHOT. On success the image is marked processed and leaves the
// pending list; on failure it stays.
func (p *Pipeline) ProcessImage(ctx context.Context, it models.ImageItem) (models.Note, error) {
	p.procMu.Lock()
	defer p.procMu.Unlock()
	return p.processImage(ctx, it)
}

func (p *Pipeline) processImage(ctx context.Context, it models.ImageItem) (models.Note, error) {
	text := p.ocr.ExtractText(ctx, it.URI)
	if strings.TrimSpace(text) == "" {
		p.logger.Warn("scan: no text extracted", slog.String("name", it.DisplayName))
		return models.Note{}, fmt.Errorf("screenshots: %s: %w", it.DisplayName, apperr.ErrNoText)
	}

	title := NoteTitle(time.UnixMilli(it.DateModified).In(p.loc), text)
	created, err := p.notes.Create(ctx, title, nil)
	if err != nil {
		return models.Note{}, fmt.Errorf("screenshots: create note: %w", err)
	}

	note := created
	note.Title = title
	note.Content = NoteBody(title, it, text, time.UnixMilli(it.DateModified).In(p.loc), p.now().In(p.loc))
	note.Tags = []models.Tag{models.NewTag(created.ID, models.TagScreenshot, models.ColorBlue)}
	note = note.UpdateWordCount()

	saved, err := p.notes.Save(ctx, note)
	if err != nil {
		if delErr := p.notes.Delete(ctx, created); delErr != nil {
			p.logger.Error("scan: cleanup of created note failed", slog.String("error", delErr.Error()))
		}
		return models.Note{}, fmt.Errorf("screenshots: save note: %w", err)
	}

	if err := p.markProcessed(it); err != nil {
		p.logger.Error("scan: mark processed failed", slog.String("error", err.Error()))
	}

	p.mu.Lock()
	kept := p.pending[:0:0]
	for _, pi := range p.pending {
		if pi.URI != it.URI {
			kept = append(kept, pi)
		}
	}
	p.pending = kept
	p.processed++
	snapshot := append([]models.ImageItem(nil), kept...)
	p.mu.Unlock()
	p.persistPending(snapshot)

	p.logger.Info("scan: processed image", slog.String("name", it.DisplayName), slog.String("note", saved.Title))
	return saved, nil
}

// ProcessPending processes a snapshot of the pending list one image at a
// time.
func (p *Pipeline) ProcessPending(ctx context.Context) models.ProcessingResult {
	p.procMu.Lock()
	defer p.procMu.Unlock()

	pending := p.Pending()
	if len(pending) == 0 {
		return models.ProcessingResult{Success: true, Message: l10n.Sprintf(l10n.ProcessNone)}
	}

	var done, failed int
	for _, it := range pending {
		if ctx.Err() != nil {
			failed += len(pending) - done - failed
			break
		}
		if _, err := p.processImage(ctx, it); err != nil {
			failed++
			p.logger.Warn("scan: failed to process", slog.String("name", it.DisplayName), slog.String("error", err.Error()))
			continue
		}
		done++
	}

	msg := l10n.Sprintf(l10n.ProcessDone, done)
	if failed > 0 {
		msg = l10n.Sprintf(l10n.ProcessFailed, done, failed)
	}
	return models.ProcessingResult{Processed: done, Failed: failed, Success: failed == 0, Message: msg}
}

// ScanAndProcess scans and then processes everything pending.
func (p *Pipeline) ScanAndProcess(ctx context.Context) (models.ScanResult, models.ProcessingResult) {
	scan := p.Scan(ctx)
	if !scan.Success {
		return scan, models.ProcessingResult{Message: scan.Message}
	}
	return scan, p.ProcessPending(ctx)
}

// NoteTitle is "OCR <Jan 02, 15:04> - <first text line>" with the line cut
// to 30 characters.
func NoteTitle(modified time.Time, text string) string {
	stamp := modified.Format("Jan 02, 15:04")
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) >= titleLineMax {
			line = string([]rune(line)[:titleLineMax]) + "..."
		}
		return "OCR " + stamp + " - " + line
	}
	return "OCR " + stamp
}

// NoteBody renders the markdown of an OCR note.
func NoteBody(title string, it models.ImageItem, text string, modified, processedAt time.Time) string {
	const layout = "2006-01-02 15:04:05"
	var b strings.Builder
	b.WriteString("# " + title + "\n\n")
	b.WriteString("**Source:** " + it.DisplayName + "\n")
	b.WriteString("**Date:** " + modified.Format(layout) + "\n\n")
	b.WriteString("## Extracted Text\n\n")
	b.WriteString(strings.TrimSpace(text) + "\n\n")
	b.WriteString("---\n")
	b.WriteString("*Processed with OCR on " + processedAt.Format(layout) + "*\n")
	return b.String()
}

func (p *Pipeline) processedSet() (map[string]struct{}, error) {
	var list []string
	if _, err := p.kv.GetJSON(keyProcessed, &list); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(list))
	for _, s := range list {
		set[s] = struct{}{}
	}
	return set, nil
}

// markProcessed records both the URI and the file path of an image.
func (p *Pipeline) markProcessed(it models.ImageItem) error {
	var list []string
	if _, err := p.kv.GetJSON(keyProcessed, &list); err != nil {
		p.logger.Warn("scan: processed set unreadable, resetting", slog.String("error", err.Error()))
		list = nil
	}
	seen := make(map[string]struct{}, len(list))
	for _, s := range list {
		seen[s] = struct{}{}
	}
	for _, s := range []string{it.URI, itemPath(it)} {
		if _, ok := seen[s]; !ok && s != "" {
			list = append(list, s)
		}
	}
	return p.kv.PutJSON(keyProcessed, list)
}

func (p *Pipeline) persistPending(list []models.ImageItem) {
	if list == nil {
		list = []models.ImageItem{}
	}
	if err := p.kv.PutJSON(keyPending, list); err != nil {
		p.logger.Error("scan: persist pending failed", slog.String("error", err.Error()))
	}
	if err := p.kv.PutInt64(keyPendCount, int64(len(list))); err != nil {
		p.logger.Error("scan: persist pending count failed", slog.String("error", err.Error()))
	}
	p.emit("pending.updated", p.Stats())
}

func (p *Pipeline) emit(event string, data any) {
	p.mu.Lock()
	fn := p.listener
	p.mu.Unlock()
	if fn != nil {
		fn(event, data)
	}
}
