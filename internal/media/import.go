package media

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/index"
	"github.com/starford/noor/internal/models"
)

// MaxImportSize bounds a single imported image.
const MaxImportSize = 20 << 20

var (
	mimeToExt = map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/bmp":  ".bmp",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// DetectExt returns the image extension matching the content of data, or
// "" when data is not a supported image.
func DetectExt(data []byte) string {
	detected := http.DetectContentType(data)
	return mimeToExt[strings.Split(detected, ";")[0]]
}

// ExtForMIME maps a declared image MIME type to its extension.
func ExtForMIME(mime string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]
}

// SanitizeFilename strips path separators and unsafe characters.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == "_" {
		name = uuid.New().String()
	}
	return name
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	detected := DetectExt(data)
	switch ext {
	case ".jpg", ".jpeg":
		if detected != ".jpg" {
			return fmt.Errorf("content does not match extension %s: %w", ext, apperr.ErrInvalidInput)
		}
	default:
		if detected != ext {
			return fmt.Errorf("content does not match extension %s: %w", ext, apperr.ErrInvalidInput)
		}
	}
	return nil
}

// Inbox returns the directory imports are written to.
func (l *Library) Inbox() string { return l.inbox }

// Import writes data into the inbox under a sanitized, unused file name and
// indexes it. A name without extension gets one from the content.
func (l *Library) Import(_ context.Context, name string, data []byte) (models.ImageItem, error) {
	if len(data) == 0 {
		return models.ImageItem{}, fmt.Errorf("media: import: empty file: %w", apperr.ErrInvalidInput)
	}
	if len(data) > MaxImportSize {
		return models.ImageItem{}, fmt.Errorf("media: import: file too large: %d bytes (max %d): %w",
			len(data), MaxImportSize, apperr.ErrInvalidInput)
	}

	name = SanitizeFilename(name)
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = DetectExt(data)
		if ext == "" {
			return models.ImageItem{}, fmt.Errorf("media: import: unsupported image content: %w", apperr.ErrInvalidInput)
		}
		name += ext
	}
	if !index.IsImage(name) {
		return models.ImageItem{}, fmt.Errorf("media: import: unsupported file extension %s: %w", ext, apperr.ErrInvalidInput)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return models.ImageItem{}, fmt.Errorf("media: import: %w", err)
	}

	if err := os.MkdirAll(l.inbox, 0o755); err != nil {
		return models.ImageItem{}, fmt.Errorf("media: import: mkdir inbox: %w", err)
	}
	dst := uniquePath(l.inbox, name)
	if err := writeAtomic(dst, data); err != nil {
		return models.ImageItem{}, fmt.Errorf("media: import: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return models.ImageItem{}, fmt.Errorf("media: import: stat: %w", err)
	}
	row := index.RowFromInfo(dst, info)
	id, err := l.db.UpsertImage(row)
	if err != nil {
		return models.ImageItem{}, fmt.Errorf("media: import: %w", err)
	}
	row.ID = id
	return l.item(row, nil), nil
}

// uniquePath returns dir/name, or dir/<stem>_N<ext> for the first unused N.
func uniquePath(dir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	p := filepath.Join(dir, name)
	for n := 1; ; n++ {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return p
		}
		p = filepath.Join(dir, stem+"_"+strconv.Itoa(n)+ext)
	}
}

func writeAtomic(dst string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".noor-import-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}
