package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/models"
)

const newFolderName = "New Folder"

// LoadFolders returns every directory below the notes root. The id of a
// folder is its slash-separated path relative to the root.
func (r *Repository) LoadFolders(_ context.Context) ([]models.NoteFolder, error) {
	dirs, err := r.store.Dirs()
	if err != nil {
		r.logger.Error("notes: load folders failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("notes: load folders: %w", err)
	}
	out := make([]models.NoteFolder, 0, len(dirs))
	for _, d := range dirs {
		abs, err := r.store.Abs(d.Path)
		if err != nil {
			continue
		}
		out = append(out, folder(d.Path, abs, d.ModifiedAt))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreateFolder makes a directory named after the sanitized name inside
// parentID (nil for the root). An existing directory is ErrAlreadyExists.
func (r *Repository) CreateFolder(_ context.Context, name string, parentID *string) (models.NoteFolder, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	final := SanitizeName(name, newFolderName)
	parent := ""
	if parentID != nil {
		parent = path.Clean(filepath.ToSlash(*parentID))
		if parent == "." {
			parent = ""
		}
	}
	rel := path.Join(parent, final)
	abs, err := r.store.Abs(rel)
	if err != nil {
		return models.NoteFolder{}, fmt.Errorf("notes: create folder: %w", apperr.ErrInvalidInput)
	}
	if err := r.store.Mkdir(rel); err != nil {
		if errors.Is(err, os.ErrExist) {
			r.logger.Warn("notes: folder already exists", slog.String("path", abs))
			return models.NoteFolder{}, fmt.Errorf("notes: folder %q: %w", rel, apperr.ErrAlreadyExists)
		}
		return models.NoteFolder{}, fmt.Errorf("notes: create folder: %w", err)
	}
	r.logger.Info("notes: created folder", slog.String("path", abs))
	return folder(rel, abs, r.now().UnixMilli()), nil
}

func folder(rel, abs string, modifiedAt int64) models.NoteFolder {
	return models.NoteFolder{
		ID:         rel,
		Name:       path.Base(rel),
		Path:       abs,
		ParentID:   folderOf(rel),
		IconName:   "folder",
		Color:      models.ColorBlue,
		CreatedAt:  modifiedAt,
		ModifiedAt: modifiedAt,
	}
}

// MoveToFolder moves a note file into folderID (nil for the root), keeping
// its file name unless taken there. The note gets the id of its new path.
func (r *Repository) MoveToFolder(ctx context.Context, id string, folderID *string) (models.Note, error) {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	n, err := r.ByID(ctx, id)
	if err != nil {
		return models.Note{}, err
	}

	oldRel, err := r.rel(n.FilePath)
	if err != nil {
		return models.Note{}, err
	}
	dir := ""
	if folderID != nil {
		dir = path.Clean(filepath.ToSlash(*folderID))
		if dir == "." {
			dir = ""
		}
	}
	if path.Dir(oldRel) == dir || (dir == "" && path.Dir(oldRel) == ".") {
		return n, nil
	}
	if _, err := r.store.Abs(dir); err != nil {
		return models.Note{}, fmt.Errorf("notes: move: %w", apperr.ErrInvalidInput)
	}

	base := path.Base(oldRel)
	stem := base[:len(base)-len(path.Ext(base))]
	newRel := path.Join(dir, base)
	for i := 1; r.store.Exists(newRel); i++ {
		newRel = path.Join(dir, fmt.Sprintf("%s_%d.md", stem, i))
	}
	if err := r.store.Move(oldRel, newRel); err != nil {
		return models.Note{}, fmt.Errorf("notes: move %q: %w", n.Title, err)
	}

	abs, _ := r.store.Abs(newRel)
	moved := n
	moved.ID = NoteID(newRel)
	moved.FilePath = abs
	moved.FolderID = folderOf(newRel)
	moved.ModifiedAt = r.now().UnixMilli()

	r.remove(n.ID)
	r.upsert(moved)
	r.emit("deleted", n)
	r.emit("created", moved)
	r.logger.Info("notes: moved", slog.String("from", oldRel), slog.String("to", newRel))
	return moved, nil
}
