package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/noor/internal/models"
)

var errUnknownColor = errors.New("unknown color")

func tagTypeRule() validation.Rule {
	vals := make([]any, len(models.TagTypes))
	for i, t := range models.TagTypes {
		vals[i] = t
	}
	return validation.In(vals...).Error("unknown tag type")
}

var colorRule = validation.By(func(v any) error {
	c, _ := v.(models.TagColor)
	if c != "" && c.Hex() == "" {
		return errUnknownColor
	}
	return nil
})

// CreateNoteRequest is the body of POST /api/notes. An empty content gets
// the placeholder body.
type CreateNoteRequest struct {
	Title    string  `json:"title" example:"Shopping list"`
	FolderID *string `json:"folderId,omitempty" example:"Work"`
	Content  string  `json:"content" example:"- milk"`
}

func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// UpdateNoteRequest is the body of PUT /api/notes/{id}. Tags, when given,
// replace the note's tags.
type UpdateNoteRequest struct {
	Content string           `json:"content" validate:"required"`
	Tags    []models.TagType `json:"tags,omitempty"`
}

func (r *UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Tags, validation.Each(tagTypeRule())),
	)
}

// ImportNoteRequest is the body of POST /api/notes/import.
type ImportNoteRequest struct {
	Title    string  `json:"title"`
	FolderID *string `json:"folderId,omitempty"`
	HTML     string  `json:"html" validate:"required"`
}

func (r *ImportNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.HTML, validation.Required),
	)
}

// MoveNoteRequest is the body of POST /api/notes/{id}/move; a null folder
// means the notes root.
type MoveNoteRequest struct {
	FolderID *string `json:"folderId"`
}

func (r *MoveNoteRequest) Validate() error { return nil }

// CreateFolderRequest is the body of POST /api/folders.
type CreateFolderRequest struct {
	Name     string  `json:"name" example:"Work"`
	ParentID *string `json:"parentId,omitempty"`
}

func (r *CreateFolderRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Length(0, 100)),
	)
}

// AddTagRequest is the body of POST /api/images/{id}/tags.
type AddTagRequest struct {
	Type       models.TagType  `json:"type" example:"WORK" validate:"required"`
	Color      models.TagColor `json:"color,omitempty" example:"BLUE"`
	CustomName *string         `json:"customName,omitempty"`
}

func (r *AddTagRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Type, validation.Required, tagTypeRule()),
		validation.Field(&r.Color, colorRule),
	)
}

// NoteDetail is a note plus the checksum of its file, for If-Match.
type NoteDetail struct {
	models.Note
	Checksum string `json:"checksum"`
}

// ImageListResponse wraps image listings.
type ImageListResponse struct {
	Images []models.ImageItem `json:"images"`
	Total  int                `json:"total"`
}

// OCRStatsResponse reports the pipeline counters.
type OCRStatsResponse struct {
	Pending   int    `json:"pending"`
	Processed int    `json:"processed"`
	LastScan  *int64 `json:"lastScan,omitempty"`
}

// ScanAndProcessResponse pairs the two halves of a combined run.
type ScanAndProcessResponse struct {
	Scan    models.ScanResult       `json:"scan"`
	Process models.ProcessingResult `json:"process"`
}
