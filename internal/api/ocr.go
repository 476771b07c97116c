package api

import "net/http"

// Scan handles POST /api/ocr/scan. With ?background=true the scan is
// handed to the background worker and the call returns 202 at once.
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("background") == "true" {
		if h.Worker == nil {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("background scan is disabled"))
			return
		}
		queued := h.Worker.TriggerNow()
		writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
		return
	}
	writeJSON(w, http.StatusOK, h.Pipeline.Scan(r.Context()))
}

// Pending handles GET /api/ocr/pending.
func (h *Handler) Pending(w http.ResponseWriter, _ *http.Request) {
	items := h.Pipeline.Pending()
	writeJSON(w, http.StatusOK, ImageListResponse{Images: items, Total: len(items)})
}

// ProcessPending handles POST /api/ocr/process.
func (h *Handler) ProcessPending(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Pipeline.ProcessPending(r.Context()))
}

// ProcessImage handles POST /api/ocr/process/{id} for any indexed image.
func (h *Handler) ProcessImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(w, r)
	if !ok {
		return
	}
	item, err := h.Library.Image(r.Context(), id)
	if err != nil {
		writeError(w, "process image", err)
		return
	}
	n, err := h.Pipeline.ProcessImage(r.Context(), item)
	if err != nil {
		writeError(w, "process image", err)
		return
	}
	h.writeNote(w, http.StatusCreated, n)
}

// ScanAndProcess handles POST /api/ocr/scan-and-process.
func (h *Handler) ScanAndProcess(w http.ResponseWriter, r *http.Request) {
	scan, proc := h.Pipeline.ScanAndProcess(r.Context())
	writeJSON(w, http.StatusOK, ScanAndProcessResponse{Scan: scan, Process: proc})
}

// Stats handles GET /api/ocr/stats.
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	s := h.Pipeline.Stats()
	resp := OCRStatsResponse{Pending: s.Pending, Processed: s.Processed}
	if t := h.Pipeline.LastScan(); !t.IsZero() {
		ms := t.UnixMilli()
		resp.LastScan = &ms
	}
	writeJSON(w, http.StatusOK, resp)
}

// ScreenshotFolders handles GET /api/ocr/folders.
func (h *Handler) ScreenshotFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.Library.ScreenshotFolders(r.Context())
	if err != nil {
		writeError(w, "screenshot folders", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

