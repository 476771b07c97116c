// Package storage defines the file-system abstraction the note store writes through.
package storage

import "github.com/starford/noor/internal/models"

// Provider is the interface for note file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute root directory.
	Root() string
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.NoteMetadata, error)
	// Dirs returns every directory under the root, excluding the root itself.
	Dirs() ([]DirInfo, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Mkdir creates dir; it fails with os.ErrExist when dir already exists.
	Mkdir(dir string) error
	// Exists reports whether path exists.
	Exists(path string) bool
	// Rel converts an absolute path under the root to a relative one.
	Rel(abs string) (string, error)
	// Abs resolves a relative path against the root.
	Abs(rel string) (string, error)
}

// DirInfo describes one directory under the root.
type DirInfo struct {
	Path       string // relative to root
	ModifiedAt int64  // unix milliseconds
}
