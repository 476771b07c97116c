package index

// ImageIndex defines the interface for image index operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type ImageIndex interface {
	UpsertImage(r ImageRow) (int64, error)
	DeleteImage(path string) error
	DeleteUnder(dir string) (int64, error)
	GetImage(id int64) (*ImageRow, error)
	GetByPath(path string) (*ImageRow, error)
	AllImages() ([]ImageRow, error)
	AllStamps() (map[string]Stamp, error)
	SearchImages(query string, limit int) ([]ImageRow, error)
	Close() error
}

// Verify *DB satisfies ImageIndex at compile time.
var _ ImageIndex = (*DB)(nil)
