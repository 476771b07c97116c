package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noor/internal/models"
)

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes, newest first
//	@Tags		notes
//	@Param		q		query	string	false	"Case-insensitive search over title, content and tags"
//	@Param		folder	query	string	false	"Only notes directly in this folder; empty for the root"
//	@Param		favorite	query	bool	false	"Only favorites"
//	@Success	200	{object}	map[string]any
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var list []models.Note
	switch {
	case q.Has("folder"):
		var folder *string
		if f := q.Get("folder"); f != "" {
			folder = &f
		}
		list = h.Notes.ByFolder(folder)
	default:
		list = h.Notes.Search(q.Get("q"))
	}
	if q.Get("favorite") == "true" {
		fav := make([]models.Note, 0, len(list))
		for _, n := range list {
			if n.IsFavorite {
				fav = append(fav, n)
			}
		}
		list = fav
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"notes": list,
		"total": len(list),
	})
}

func (h *Handler) detail(n models.Note) NoteDetail {
	sum, err := h.Notes.Checksum(n)
	if err != nil {
		h.Logger.Warn("note checksum failed", slog.String("id", n.ID), slog.String("error", err.Error()))
	}
	return NoteDetail{Note: n, Checksum: sum}
}

func (h *Handler) writeNote(w http.ResponseWriter, status int, n models.Note) {
	d := h.detail(n)
	if d.Checksum != "" {
		w.Header().Set("ETag", `"`+d.Checksum+`"`)
	}
	writeJSON(w, status, d)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notes.ByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.Notes.CreateWithContent(r.Context(), req.Title, req.FolderID, req.Content)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	h.writeNote(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{id}. A quoted or bare checksum in
// If-Match guards against concurrent edits.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.Notes.ByID(r.Context(), id)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	n.Content = req.Content
	if req.Tags != nil {
		n.Tags = make([]models.Tag, 0, len(req.Tags))
		for _, t := range req.Tags {
			n.Tags = append(n.Tags, models.NewTag(n.ID, t, models.DefaultColor(t)))
		}
	}

	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	n, err = h.Notes.SaveIfMatch(r.Context(), n, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notes.ByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	if err := h.Notes.Delete(r.Context(), n); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleFavorite handles POST /api/notes/{id}/favorite.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	n, err := h.Notes.ToggleFavorite(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle favorite", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MoveNote handles POST /api/notes/{id}/move. The note id changes with
// its path.
func (h *Handler) MoveNote(w http.ResponseWriter, r *http.Request) {
	var req MoveNoteRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.Notes.MoveToFolder(r.Context(), chi.URLParam(r, "id"), req.FolderID)
	if err != nil {
		writeError(w, "move note", err)
		return
	}
	h.writeNote(w, http.StatusOK, n)
}

// ImportNote handles POST /api/notes/import with an HTML body.
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	var req ImportNoteRequest
	if !decode(w, r, &req) {
		return
	}
	n, err := h.Notes.ImportHTML(r.Context(), req.Title, req.FolderID, req.HTML)
	if err != nil {
		writeError(w, "import note", err)
		return
	}
	h.writeNote(w, http.StatusCreated, n)
}

// ListFolders handles GET /api/folders.
func (h *Handler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.Notes.LoadFolders(r.Context())
	if err != nil {
		writeError(w, "list note folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

// CreateFolder handles POST /api/folders.
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := h.Notes.CreateFolder(r.Context(), req.Name, req.ParentID)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}
