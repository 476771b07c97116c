// Package notes is the markdown note store. The file tree under the notes
// root is the source of truth; a JSON copy of the list lives in prefs and is
// used when the tree cannot be read and to carry fields the file format has
// no room for (favorite flag, creation time).
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/checksum"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/parser"
	"github.com/starford/noor/internal/prefs"
	"github.com/starford/noor/internal/storage"
)

const (
	// DirName is the directory created under the configured base dir.
	DirName = "MarkdownNotes"
	// Namespace is the prefs namespace holding the cached note list.
	Namespace = "notes_prefs"

	cacheKey        = "notes_list"
	noMediaFile     = ".nomedia"
	untitled        = "Untitled"
	initialBodyText = "Start writing your note here..."
)

var unsafeNameRe = regexp.MustCompile(`[^a-zA-Z0-9\s_-]`)

// Listener is told about every change made through the repository.
// kind is one of "created", "updated", "deleted".
type Listener func(kind string, n models.Note)

// Repository owns the notes directory and the in-memory note list.
type Repository struct {
	store  storage.Provider
	cache  *prefs.Store
	logger *slog.Logger
	now    func() time.Time

	writeMu sync.Mutex // serializes file mutations

	mu       sync.RWMutex
	notes    []models.Note
	listener Listener
}

// Open prepares <baseDir>/MarkdownNotes (creating it with a .nomedia marker
// on first use) and loads the cached note list.
func Open(baseDir string, cache *prefs.Store, logger *slog.Logger) (*Repository, error) {
	root := filepath.Join(baseDir, DirName)
	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("notes: create dir: %w", err)
		}
		if err := os.WriteFile(filepath.Join(root, noMediaFile), nil, 0o644); err != nil {
			logger.Warn("notes: could not create .nomedia", slog.String("error", err.Error()))
		}
		logger.Info("notes: created notes directory", slog.String("path", root))
	}
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("notes: %w", err)
	}
	r := &Repository{store: store, cache: cache, logger: logger, now: time.Now}
	r.loadCache()
	return r, nil
}

// OnChange registers the listener for note mutations.
func (r *Repository) OnChange(fn Listener) {
	r.mu.Lock()
	r.listener = fn
	r.mu.Unlock()
}

// StoragePath returns the absolute notes directory.
func (r *Repository) StoragePath() string {
	return r.store.Root()
}

// NoteID returns the id of the note stored at rel (slash-separated, relative
// to the notes root).
func NoteID(rel string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("noor:note/"+rel)).String()
}

// Load walks the notes tree, parses every .md file and replaces the list.
// Files that fail to parse are skipped. When the tree cannot be walked the
// current (cached) list is returned.
func (r *Repository) Load(_ context.Context) []models.Note {
	metas, err := r.store.List("")
	if err != nil {
		r.logger.Error("notes: load failed, using cache", slog.String("error", err.Error()))
		return r.All()
	}

	previous := r.byID()
	out := make([]models.Note, 0, len(metas))
	for _, m := range metas {
		data, err := r.store.Read(m.Path)
		if err != nil {
			r.logger.Warn("notes: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		n, err := r.parse(m.Path, data, m.ModifiedAt)
		if err != nil {
			r.logger.Warn("notes: parse failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if old, ok := previous[n.ID]; ok {
			n.IsFavorite = old.IsFavorite
			if old.CreatedAt > 0 && old.CreatedAt < n.CreatedAt {
				n.CreatedAt = old.CreatedAt
			}
		}
		out = append(out, n)
	}
	sortNotes(out)

	r.mu.Lock()
	r.notes = out
	r.mu.Unlock()
	r.saveCache(out)

	r.logger.Debug("notes: loaded", slog.Int("count", len(out)))
	return clone(out)
}

// parse builds a Note from a file's bytes.
func (r *Repository) parse(rel string, data []byte, modifiedAt int64) (models.Note, error) {
	abs, err := r.store.Abs(rel)
	if err != nil {
		return models.Note{}, err
	}
	res := parser.Parse(data, strings.TrimSuffix(path.Base(rel), ".md"))
	id := NoteID(rel)

	n := models.Note{
		ID:         id,
		Title:      res.Title,
		Content:    res.Content,
		FilePath:   abs,
		FolderID:   folderOf(rel),
		Tags:       noteTags(id, res.Tags),
		CreatedAt:  modifiedAt,
		ModifiedAt: modifiedAt,
		WordCount:  res.WordCount,
	}
	return n, nil
}

func noteTags(noteID string, types []models.TagType) []models.Tag {
	out := make([]models.Tag, 0, len(types))
	for _, t := range types {
		out = append(out, models.NewTag(noteID, t, models.DefaultColor(t)))
	}
	return out
}

func folderOf(rel string) *string {
	dir := path.Dir(rel)
	if dir == "." || dir == "" {
		return nil
	}
	return &dir
}

// All returns a copy of the current list, newest first.
func (r *Repository) All() []models.Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.notes)
}

// ByID returns the note with the given id from the current list.
func (r *Repository) ByID(_ context.Context, id string) (models.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.notes {
		if n.ID == id {
			return n, nil
		}
	}
	return models.Note{}, fmt.Errorf("notes: %s: %w", id, apperr.ErrNotFound)
}

// Search returns the notes whose title, content or a tag display name
// contains query, case-insensitively. A blank query returns everything.
func (r *Repository) Search(query string) []models.Note {
	all := r.All()
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return all
	}
	out := make([]models.Note, 0)
	for _, n := range all {
		if matches(n, q) {
			out = append(out, n)
		}
	}
	return out
}

func matches(n models.Note, q string) bool {
	if strings.Contains(strings.ToLower(n.Title), q) || strings.Contains(strings.ToLower(n.Content), q) {
		return true
	}
	for _, t := range n.Tags {
		if strings.Contains(strings.ToLower(t.DisplayName()), q) {
			return true
		}
	}
	return false
}

// ByFolder returns the notes directly inside folderID; nil means the root.
func (r *Repository) ByFolder(folderID *string) []models.Note {
	out := make([]models.Note, 0)
	for _, n := range r.All() {
		if sameFolder(n.FolderID, folderID) {
			out = append(out, n)
		}
	}
	return out
}

func sameFolder(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Save writes the note (content plus tag comment) and refreshes it in the
// list. The returned note carries the new modified time and word count.
func (r *Repository) Save(ctx context.Context, n models.Note) (models.Note, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return r.save(ctx, n, "updated")
}

// SaveIfMatch is Save guarded by the SHA-256 the caller last saw. An empty
// checksum skips the check.
func (r *Repository) SaveIfMatch(ctx context.Context, n models.Note, want string) (models.Note, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	rel, err := r.rel(n.FilePath)
	if err != nil {
		return models.Note{}, err
	}
	current, err := r.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Note{}, fmt.Errorf("notes: save %s: %w", n.ID, apperr.ErrNotFound)
		}
		return models.Note{}, err
	}
	if !checksum.Matches(current, want) {
		return models.Note{}, fmt.Errorf("notes: save %s: %w", n.ID, apperr.ErrConflict)
	}
	return r.save(ctx, n, "updated")
}

func (r *Repository) save(_ context.Context, n models.Note, kind string) (models.Note, error) {
	rel, err := r.rel(n.FilePath)
	if err != nil {
		return models.Note{}, err
	}
	if err := r.store.Write(rel, Render(n)); err != nil {
		return models.Note{}, fmt.Errorf("notes: save %q: %w", n.Title, err)
	}
	// The list must agree with what Load would parse back from the file.
	n.Title = parser.Title(n.Content, strings.TrimSuffix(path.Base(rel), ".md"))
	if cur, ok := r.byID()[n.ID]; ok {
		n.IsFavorite = cur.IsFavorite
	}
	n.ModifiedAt = r.now().UnixMilli()
	n = n.UpdateWordCount()
	r.upsert(n)
	r.emit(kind, n)
	r.logger.Debug("notes: saved", slog.String("id", n.ID), slog.String("path", rel))
	return n, nil
}

// Render produces the file bytes for a note.
func Render(n models.Note) []byte {
	names := make([]string, 0, len(n.Tags))
	for _, t := range n.Tags {
		names = append(names, t.DisplayName())
	}
	return parser.Build(n.Content, names)
}

// Checksum returns the SHA-256 of the note file as currently on disk.
func (r *Repository) Checksum(n models.Note) (string, error) {
	rel, err := r.rel(n.FilePath)
	if err != nil {
		return "", err
	}
	data, err := r.store.Read(rel)
	if err != nil {
		return "", err
	}
	return checksum.Sum(data), nil
}

// Create writes a new note named after the sanitized title into folderID
// (nil for the root), choosing "<title>_N.md" when the name is taken.
func (r *Repository) Create(ctx context.Context, title string, folderID *string) (models.Note, error) {
	return r.CreateWithContent(ctx, title, folderID, "")
}

// CreateWithContent is Create with a body other than the placeholder. The
// body is written below the "# <title>" heading.
func (r *Repository) CreateWithContent(ctx context.Context, title string, folderID *string, body string) (models.Note, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	final := SanitizeName(title, untitled)
	dir := ""
	if folderID != nil {
		dir = path.Clean(filepath.ToSlash(*folderID))
		if dir == "." {
			dir = ""
		}
	}
	if _, err := r.store.Abs(dir); err != nil {
		return models.Note{}, fmt.Errorf("notes: create: %w", apperr.ErrInvalidInput)
	}

	rel := path.Join(dir, final+".md")
	for n := 1; r.store.Exists(rel); n++ {
		rel = path.Join(dir, final+"_"+strconv.Itoa(n)+".md")
	}
	abs, err := r.store.Abs(rel)
	if err != nil {
		return models.Note{}, err
	}

	if body == "" {
		body = initialBodyText
	}
	now := r.now().UnixMilli()
	note := models.Note{
		ID:         NoteID(rel),
		Title:      final,
		Content:    "# " + final + "\n\n" + body,
		FilePath:   abs,
		FolderID:   folderOf(rel),
		Tags:       []models.Tag{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
	note, err = r.save(ctx, note, "created")
	if err != nil {
		return models.Note{}, err
	}
	r.logger.Info("notes: created", slog.String("id", note.ID), slog.String("path", rel))
	return note, nil
}

// Delete removes the note file and drops it from the list. A missing file
// is not an error.
func (r *Repository) Delete(_ context.Context, n models.Note) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	rel, err := r.rel(n.FilePath)
	if err != nil {
		return err
	}
	if err := r.store.Delete(rel); err != nil {
		return fmt.Errorf("notes: delete %q: %w", n.Title, err)
	}
	r.remove(n.ID)
	r.emit("deleted", n)
	r.logger.Debug("notes: deleted", slog.String("id", n.ID), slog.String("path", rel))
	return nil
}

// ToggleFavorite flips the favorite flag of a note and persists it in the
// cache.
func (r *Repository) ToggleFavorite(ctx context.Context, id string) (models.Note, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	n, err := r.ByID(ctx, id)
	if err != nil {
		return models.Note{}, err
	}
	n.IsFavorite = !n.IsFavorite
	r.upsert(n)
	r.emit("updated", n)
	return n, nil
}

// rel converts an absolute note path to a store-relative one.
func (r *Repository) rel(abs string) (string, error) {
	if abs == "" {
		return "", fmt.Errorf("notes: missing file path: %w", apperr.ErrInvalidInput)
	}
	rel, err := r.store.Rel(abs)
	if err != nil {
		return "", fmt.Errorf("notes: %s: %w", abs, apperr.ErrInvalidInput)
	}
	return rel, nil
}

// upsert replaces (or adds) n in the list, re-sorts and rewrites the cache.
func (r *Repository) upsert(n models.Note) {
	r.mu.Lock()
	replaced := false
	for i := range r.notes {
		if r.notes[i].ID == n.ID {
			r.notes[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		r.notes = append(r.notes, n)
	}
	sortNotes(r.notes)
	snapshot := clone(r.notes)
	r.mu.Unlock()
	r.saveCache(snapshot)
}

func (r *Repository) remove(id string) {
	r.mu.Lock()
	kept := make([]models.Note, 0, len(r.notes))
	for _, n := range r.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	r.notes = kept
	snapshot := clone(kept)
	r.mu.Unlock()
	r.saveCache(snapshot)
}

func (r *Repository) emit(kind string, n models.Note) {
	r.mu.RLock()
	fn := r.listener
	r.mu.RUnlock()
	if fn != nil {
		fn(kind, n)
	}
}

func (r *Repository) byID() map[string]models.Note {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]models.Note, len(r.notes))
	for _, n := range r.notes {
		out[n.ID] = n
	}
	return out
}

func (r *Repository) loadCache() {
	var cached []models.Note
	ok, err := r.cache.GetJSON(cacheKey, &cached)
	if err != nil {
		r.logger.Error("notes: read cache failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		r.logger.Debug("notes: no cached notes")
		return
	}
	r.mu.Lock()
	r.notes = cached
	r.mu.Unlock()
	r.logger.Debug("notes: loaded cache", slog.Int("count", len(cached)))
}

func (r *Repository) saveCache(list []models.Note) {
	if err := r.cache.PutJSON(cacheKey, list); err != nil {
		r.logger.Error("notes: write cache failed", slog.String("error", err.Error()))
	}
}

// SanitizeName keeps letters, digits, whitespace, '_' and '-' and trims the
// result; a blank result becomes fallback.
func SanitizeName(name, fallback string) string {
	s := strings.TrimSpace(unsafeNameRe.ReplaceAllString(name, ""))
	if s == "" {
		return fallback
	}
	return s
}

func sortNotes(list []models.Note) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].ModifiedAt > list[j].ModifiedAt })
}

func clone(list []models.Note) []models.Note {
	out := make([]models.Note, len(list))
	copy(out, list)
	return out
}
