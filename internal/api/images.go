package api

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noor/internal/media"
	"github.com/starford/noor/internal/models"
)

func imageID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid image id"))
		return 0, false
	}
	return id, true
}

// arrange applies the ?filter= and ?sort= query parameters.
func arrange(r *http.Request, items []models.ImageItem) []models.ImageItem {
	q := r.URL.Query()
	if f := q.Get("filter"); f != "" {
		items = media.Filter(items, models.FilterType(strings.ToUpper(f)), time.Now())
	}
	if s := q.Get("sort"); s != "" {
		items = media.Sort(items, models.SortType(strings.ToUpper(s)))
	}
	return items
}

// ListImages handles GET /api/images.
//
//	@Summary	List every indexed image, newest first
//	@Tags		images
//	@Param		sort	query	string	false	"Sort"	Enums(DATE_ASCENDING, DATE_DESCENDING, SIZE_ASCENDING, SIZE_DESCENDING)
//	@Param		filter	query	string	false	"Filter"	Enums(ALL, RECENT, LARGE_FILES)
//	@Success	200	{object}	ImageListResponse
//	@Router		/images [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	items, err := h.Library.Images(r.Context())
	if err != nil {
		writeError(w, "list images", err)
		return
	}
	items = arrange(r, items)
	writeJSON(w, http.StatusOK, ImageListResponse{Images: items, Total: len(items)})
}

// ListImageFolders handles GET /api/images/folders.
func (h *Handler) ListImageFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.Library.Folders(r.Context())
	if err != nil {
		writeError(w, "list folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// ImagesInFolder handles GET /api/images/folders/*, where the wildcard is
// the absolute folder path (leading slash optional, may be escaped).
func (h *Handler) ImagesInFolder(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "*")
	p, err := url.PathUnescape(raw)
	if err != nil {
		p = raw
	}
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("folder path is required"))
		return
	}
	if !filepath.IsAbs(p) {
		p = string(os.PathSeparator) + p
	}
	items, err := h.Library.ImagesInFolder(r.Context(), filepath.Clean(p))
	if err != nil {
		writeError(w, "folder images", err)
		return
	}
	items = arrange(r, items)
	writeJSON(w, http.StatusOK, ImageListResponse{Images: items, Total: len(items)})
}

// SearchImages handles GET /api/images/search?q=.
func (h *Handler) SearchImages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.Library.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search images", err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: items, Total: len(items)})
}

// GetImage handles GET /api/images/{id}.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	item, err := h.Library.Image(r.Context(), id)
	if err != nil {
		writeError(w, "get image", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// RawImage handles GET /api/images/{id}/raw and streams the file.
func (h *Handler) RawImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	p, err := h.Library.Resolve(media.URI(id))
	if err != nil {
		writeError(w, "resolve image", err)
		return
	}
	if _, statErr := os.Stat(p); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, p)
}

// UploadImage handles POST /api/images (multipart/form-data, field "file")
// and stores the file in the library inbox.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.MaxImportSize+1<<20)

	if err := r.ParseMultipartForm(media.MaxImportSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, media.MaxImportSize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}
	item, err := h.Library.Import(r.Context(), header.Filename, data)
	if err != nil {
		writeError(w, "import image", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ImageTags handles GET /api/images/{id}/tags.
func (h *Handler) ImageTags(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.Tags.TagsForImage(id)})
}

// AddImageTag handles POST /api/images/{id}/tags.
func (h *Handler) AddImageTag(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	var req AddTagRequest
	if !decode(w, r, &req) {
		return
	}
	tag := models.ImageTag{Type: req.Type, Color: req.Color, CustomName: req.CustomName}
	if err := h.Tags.AddTag(id, tag); err != nil {
		writeError(w, "add tag", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.Tags.TagsForImage(id)})
}

// RemoveImageTag handles DELETE /api/images/{id}/tags/{type}.
func (h *Handler) RemoveImageTag(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	t, ok := models.ParseTagType(chi.URLParam(r, "type"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown tag type"))
		return
	}
	if err := h.Tags.RemoveTag(id, t); err != nil {
		writeError(w, "remove tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AvailableTags handles GET /api/tags.
func (h *Handler) AvailableTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tags": h.Tags.AvailableTags()})
}

// ImagesByTag handles GET /api/tags/{type}/images.
func (h *Handler) ImagesByTag(w http.ResponseWriter, r *http.Request) {
	t, ok := models.ParseTagType(chi.URLParam(r, "type"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown tag type"))
		return
	}
	ids, err := h.Tags.ImagesByTag(t)
	if err != nil {
		writeError(w, "images by tag", err)
		return
	}
	items := h.Library.ImagesByIDs(r.Context(), ids)
	writeJSON(w, http.StatusOK, ImageListResponse{Images: items, Total: len(items)})
}
