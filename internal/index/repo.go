package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/noor/internal/apperr"
)

// ImageRow represents a row in the images table. Path and FolderPath are
// absolute; DateModified is in unix milliseconds.
type ImageRow struct {
	ID           int64
	Path         string
	DisplayName  string
	FolderPath   string
	FolderName   string
	Size         int64
	DateModified int64
}

// Stamp is the part of a row Sync compares against the file system.
type Stamp struct {
	Size         int64
	DateModified int64
}

// RowFromInfo builds the row for an image file at the absolute path p.
func RowFromInfo(p string, info os.FileInfo) ImageRow {
	dir := filepath.Dir(p)
	return ImageRow{
		Path:         p,
		DisplayName:  filepath.Base(p),
		FolderPath:   dir,
		FolderName:   filepath.Base(dir),
		Size:         info.Size(),
		DateModified: info.ModTime().UnixMilli(),
	}
}

const selectCols = `id, path, display_name, folder_path, folder_name, size, date_modified`

// UpsertImage inserts or refreshes a row keyed by path and returns its id.
// The id of an existing path never changes.
func (db *DB) UpsertImage(r ImageRow) (int64, error) {
	_, err := db.conn.Exec(`
		INSERT INTO images (path, display_name, folder_path, folder_name, size, date_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			display_name  = excluded.display_name,
			folder_path   = excluded.folder_path,
			folder_name   = excluded.folder_name,
			size          = excluded.size,
			date_modified = excluded.date_modified
	`, r.Path, r.DisplayName, r.FolderPath, r.FolderName, r.Size, r.DateModified)
	if err != nil {
		return 0, fmt.Errorf("index: upsert image: %w", err)
	}
	var id int64
	if err := db.conn.QueryRow(`SELECT id FROM images WHERE path = ?`, r.Path).Scan(&id); err != nil {
		return 0, fmt.Errorf("index: upsert image id: %w", err)
	}
	return id, nil
}

// DeleteImage removes the row for path. Missing rows are ignored.
func (db *DB) DeleteImage(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM images WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete image: %w", err)
	}
	return nil
}

// DeleteUnder removes every row below dir and reports how many went away.
func (db *DB) DeleteUnder(dir string) (int64, error) {
	prefix := strings.TrimSuffix(dir, string(os.PathSeparator)) + string(os.PathSeparator)
	res, err := db.conn.Exec(`DELETE FROM images WHERE substr(path, 1, ?) = ?`, len(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("index: delete under: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// GetImage returns the row with the given id or apperr.ErrNotFound.
func (db *DB) GetImage(id int64) (*ImageRow, error) {
	return db.getOne(`SELECT `+selectCols+` FROM images WHERE id = ?`, id)
}

// GetByPath returns the row for an absolute path or apperr.ErrNotFound.
func (db *DB) GetByPath(path string) (*ImageRow, error) {
	return db.getOne(`SELECT `+selectCols+` FROM images WHERE path = ?`, path)
}

func (db *DB) getOne(query string, arg any) (*ImageRow, error) {
	var r ImageRow
	err := db.conn.QueryRow(query, arg).Scan(&r.ID, &r.Path, &r.DisplayName, &r.FolderPath, &r.FolderName, &r.Size, &r.DateModified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get image: %w", err)
	}
	return &r, nil
}

// AllImages returns every row, newest first.
func (db *DB) AllImages() ([]ImageRow, error) {
	rows, err := db.conn.Query(`SELECT ` + selectCols + ` FROM images ORDER BY date_modified DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("index: all images: %w", err)
	}
	return scanRows(rows)
}

// AllStamps returns size and mtime for every indexed path.
func (db *DB) AllStamps() (map[string]Stamp, error) {
	rows, err := db.conn.Query(`SELECT path, size, date_modified FROM images`)
	if err != nil {
		return nil, fmt.Errorf("index: all stamps: %w", err)
	}
	defer rows.Close()
	out := make(map[string]Stamp)
	for rows.Next() {
		var p string
		var s Stamp
		if err := rows.Scan(&p, &s.Size, &s.DateModified); err != nil {
			return nil, err
		}
		out[p] = s
	}
	return out, rows.Err()
}

func scanRows(rows *sql.Rows) ([]ImageRow, error) {
	defer rows.Close()
	var out []ImageRow
	for rows.Next() {
		var r ImageRow
		if err := rows.Scan(&r.ID, &r.Path, &r.DisplayName, &r.FolderPath, &r.FolderName, &r.Size, &r.DateModified); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
