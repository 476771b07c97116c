package models

// ImageItem is a read-only projection of one row of the media index.
type ImageItem struct {
	ID           int64      `json:"id"`
	URI          string     `json:"uri"`
	DisplayName  string     `json:"displayName"`
	Size         int64      `json:"size"`
	DateModified int64      `json:"dateModified"` // unix milliseconds
	FolderName   string     `json:"folderName"`
	FolderPath   string     `json:"folderPath"`
	Tags         []ImageTag `json:"tags,omitempty"`
}

// ImageFolder groups the images that share a parent directory.
// Folders are derived on every query and never persisted.
type ImageFolder struct {
	Name       string      `json:"name"`
	Path       string      `json:"path"`
	Images     []ImageItem `json:"images"`
	CoverImage *ImageItem  `json:"coverImage,omitempty"`
}

// SortType orders an image list.
type SortType string

const (
	SortDateAscending  SortType = "DATE_ASCENDING"
	SortDateDescending SortType = "DATE_DESCENDING"
	SortSizeAscending  SortType = "SIZE_ASCENDING"
	SortSizeDescending SortType = "SIZE_DESCENDING"
)

// FilterType narrows an image list.
type FilterType string

const (
	FilterAll        FilterType = "ALL"
	FilterRecent     FilterType = "RECENT"
	FilterLargeFiles FilterType = "LARGE_FILES"
)
