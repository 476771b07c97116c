// Package media answers image queries over the index: folders, single
// images, search and URI resolution. Folders are derived on every call.
package media

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/index"
	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/tags"
)

// Library is the read side of the media index plus the inbox import.
type Library struct {
	db     index.ImageIndex
	tags   *tags.Store
	roots  []string
	inbox  string
	logger *slog.Logger
}

// New creates a Library. roots are the directories the index covers; inbox
// is where imported images are written. A relative inbox is placed under
// the first root.
func New(db index.ImageIndex, tagStore *tags.Store, roots []string, inbox string, logger *slog.Logger) *Library {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		if a, err := filepath.Abs(r); err == nil {
			abs = append(abs, a)
		}
	}
	if inbox == "" {
		inbox = "Inbox"
	}
	if !filepath.IsAbs(inbox) && len(abs) > 0 {
		inbox = filepath.Join(abs[0], inbox)
	}
	return &Library{db: db, tags: tagStore, roots: abs, inbox: inbox, logger: logger}
}

// Roots returns the absolute library roots.
func (l *Library) Roots() []string { return l.roots }

// Readable reports whether every library root can be listed.
func (l *Library) Readable() bool {
	if len(l.roots) == 0 {
		return false
	}
	for _, r := range l.roots {
		f, err := os.Open(r)
		if err != nil {
			return false
		}
		_, err = f.Readdirnames(1)
		f.Close()
		if err != nil && err != io.EOF {
			return false
		}
	}
	return true
}

func (l *Library) item(r index.ImageRow, tagged map[int64][]models.ImageTag) models.ImageItem {
	it := models.ImageItem{
		ID:           r.ID,
		URI:          URI(r.ID),
		DisplayName:  r.DisplayName,
		Size:         r.Size,
		DateModified: r.DateModified,
		FolderName:   r.FolderName,
		FolderPath:   r.FolderPath,
	}
	if tagged != nil {
		it.Tags = tagged[r.ID]
	} else if l.tags != nil {
		it.Tags = l.tags.TagsForImage(r.ID)
	}
	return it
}

func (l *Library) allTagged() map[int64][]models.ImageTag {
	if l.tags == nil {
		return map[int64][]models.ImageTag{}
	}
	tagged, err := l.tags.AllTagged()
	if err != nil {
		l.logger.Warn("media: load tags failed", slog.String("error", err.Error()))
		return map[int64][]models.ImageTag{}
	}
	return tagged
}

// Images returns every indexed image, newest first.
func (l *Library) Images(_ context.Context) ([]models.ImageItem, error) {
	rows, err := l.db.AllImages()
	if err != nil {
		return nil, fmt.Errorf("media: images: %w", err)
	}
	tagged := l.allTagged()
	out := make([]models.ImageItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, l.item(r, tagged))
	}
	return out, nil
}

// Folders groups every image by its parent directory. Each folder keeps
// the newest-first order of the index and uses its newest image as cover.
// Folders are sorted by name.
func (l *Library) Folders(ctx context.Context) ([]models.ImageFolder, error) {
	items, err := l.Images(ctx)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*models.ImageFolder)
	var order []string
	for _, it := range items {
		f, ok := byPath[it.FolderPath]
		if !ok {
			f = &models.ImageFolder{Name: it.FolderName, Path: it.FolderPath}
			byPath[it.FolderPath] = f
			order = append(order, it.FolderPath)
		}
		f.Images = append(f.Images, it)
	}

	out := make([]models.ImageFolder, 0, len(order))
	for _, p := range order {
		f := byPath[p]
		cover := f.Images[0]
		f.CoverImage = &cover
		out = append(out, *f)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// ImagesInFolder returns the images directly inside folderPath, newest
// first. An unknown folder yields an empty list.
func (l *Library) ImagesInFolder(ctx context.Context, folderPath string) ([]models.ImageItem, error) {
	items, err := l.Images(ctx)
	if err != nil {
		return nil, err
	}
	folderPath = filepath.Clean(folderPath)
	out := make([]models.ImageItem, 0)
	for _, it := range items {
		if it.FolderPath == folderPath {
			out = append(out, it)
		}
	}
	return out, nil
}

// Image returns a single image with its tags.
func (l *Library) Image(_ context.Context, id int64) (models.ImageItem, error) {
	r, err := l.db.GetImage(id)
	if err != nil {
		return models.ImageItem{}, fmt.Errorf("media: image %d: %w", id, err)
	}
	return l.item(*r, nil), nil
}

// ImagesByIDs returns the indexed images among ids, skipping unknown ones.
func (l *Library) ImagesByIDs(_ context.Context, ids []int64) []models.ImageItem {
	out := make([]models.ImageItem, 0, len(ids))
	for _, id := range ids {
		r, err := l.db.GetImage(id)
		if err != nil {
			continue
		}
		out = append(out, l.item(*r, nil))
	}
	return out
}

// Search matches display and folder names.
func (l *Library) Search(_ context.Context, query string, limit int) ([]models.ImageItem, error) {
	rows, err := l.db.SearchImages(query, limit)
	if err != nil {
		return nil, fmt.Errorf("media: search: %w", err)
	}
	out := make([]models.ImageItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, l.item(r, nil))
	}
	return out, nil
}

// MatchesScreenshot reports whether a library-relative path looks like a
// screenshot.
func MatchesScreenshot(rel string) bool {
	return strings.Contains(strings.ToLower(rel), "screenshot")
}

// RelPath returns p relative to the library root holding it, slash
// separated. A path outside every root reduces to its base name.
func (l *Library) RelPath(p string) string {
	best := ""
	for _, r := range l.roots {
		if strings.HasPrefix(p, r+string(os.PathSeparator)) && len(r) > len(best) {
			best = r
		}
	}
	if best == "" {
		return filepath.Base(p)
	}
	return filepath.ToSlash(p[len(best)+1:])
}

// IsScreenshot reports whether an image looks like a screenshot by its
// folders below the library root or its file name. The root path itself
// is configuration and never counts.
func (l *Library) IsScreenshot(it models.ImageItem) bool {
	return MatchesScreenshot(l.RelPath(filepath.Join(it.FolderPath, it.DisplayName)))
}

// ScreenshotFolders returns the distinct directories holding screenshots,
// sorted.
func (l *Library) ScreenshotFolders(_ context.Context) ([]string, error) {
	rows, err := l.db.AllImages()
	if err != nil {
		return nil, fmt.Errorf("media: screenshot folders: %w", err)
	}
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range rows {
		if !MatchesScreenshot(l.RelPath(r.Path)) {
			continue
		}
		if _, ok := seen[r.FolderPath]; ok {
			continue
		}
		seen[r.FolderPath] = struct{}{}
		out = append(out, r.FolderPath)
	}
	sort.Strings(out)
	return out, nil
}

// Resolve maps a media:// or file:// URI to an absolute local path.
// file:// URIs must point inside a library root.
func (l *Library) Resolve(uri string) (string, error) {
	if strings.HasPrefix(uri, uriPrefix) {
		id, err := ParseURI(uri)
		if err != nil {
			return "", err
		}
		r, err := l.db.GetImage(id)
		if err != nil {
			return "", fmt.Errorf("media: resolve %s: %w", uri, err)
		}
		return r.Path, nil
	}
	p, err := filePath(uri)
	if err != nil {
		return "", err
	}
	p = filepath.Clean(p)
	if !l.inRoots(p) {
		return "", fmt.Errorf("media: %s is outside the library: %w", uri, apperr.ErrInvalidInput)
	}
	return p, nil
}

func (l *Library) inRoots(p string) bool {
	for _, r := range l.roots {
		if strings.HasPrefix(p, r+string(os.PathSeparator)) {
			return true
		}
	}
	return false
}

// Open resolves uri and opens the file for reading.
func (l *Library) Open(uri string) (io.ReadCloser, error) {
	p, err := l.Resolve(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("media: open %s: %w", uri, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("media: open %s: %w", uri, err)
	}
	return f, nil
}
