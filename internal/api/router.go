package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/notes"
	"github.com/starford/noor/internal/screenshots"
	"github.com/starford/noor/internal/tags"
)

// Trigger requests an immediate background scan.
type Trigger interface {
	TriggerNow() bool
}

// Deps are the repositories the handlers serve.
type Deps struct {
	Library  *media.Library
	Tags     *tags.Store
	Notes    *notes.Repository
	Pipeline *screenshots.Pipeline
	Worker   Trigger // nil when the background scan is disabled
	Logger   *slog.Logger
}

// Handler holds API route handlers.
type Handler struct {
	Deps
}

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(d Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := &Handler{Deps: d}

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Images.
	r.Get("/images", h.ListImages)
	r.Post("/images", h.UploadImage)
	r.Get("/images/search", h.SearchImages)
	r.Get("/images/folders", h.ListImageFolders)
	r.Get("/images/folders/*", h.ImagesInFolder)
	r.Get("/images/{id}", h.GetImage)
	r.Get("/images/{id}/raw", h.RawImage)
	r.Get("/images/{id}/tags", h.ImageTags)
	r.Post("/images/{id}/tags", h.AddImageTag)
	r.Delete("/images/{id}/tags/{type}", h.RemoveImageTag)

	// Tags.
	r.Get("/tags", h.AvailableTags)
	r.Get("/tags/{type}/images", h.ImagesByTag)

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/import", h.ImportNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	r.Post("/notes/{id}/favorite", h.ToggleFavorite)
	r.Post("/notes/{id}/move", h.MoveNote)

	// Note folders.
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)

	// Screenshot OCR.
	r.Post("/ocr/scan", h.Scan)
	r.Get("/ocr/pending", h.Pending)
	r.Post("/ocr/process", h.ProcessPending)
	r.Post("/ocr/process/{id}", h.ProcessImage)
	r.Post("/ocr/scan-and-process", h.ScanAndProcess)
	r.Get("/ocr/stats", h.Stats)
	r.Get("/ocr/folders", h.ScreenshotFolders)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
