package handlers

import (
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/partident/internal/catalog"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

// HandleCaptures adds photos (POST) or clears the buffer (DELETE).
func (h *Handler) HandleCaptures(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "POST":
		if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
			h.handleJSONCapture(w, r)
			return
		}
		h.handleFileCaptures(w, r)
	case "DELETE":
		if err := h.scan.ClearPhotos(); err != nil {
			h.writeAppError(w, err)
			return
		}
		h.writeJSON(w, h.scan.State())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleJSONCapture(w http.ResponseWriter, r *http.Request) {
	photo, err := h.addJSONCapture(r.Context(), r)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, captureResponse([]models.PhotoCapture{photo}, len(h.scan.Photos())))
}

func (h *Handler) handleFileCaptures(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := rawFilesFromForm(r.MultipartForm, "files")
	if len(files) == 0 {
		files = rawFilesFromForm(r.MultipartForm, "file")
	}
	if len(files) == 0 {
		h.writeError(w, "files is required", http.StatusBadRequest)
		return
	}

	added, err := h.scan.AddBatch(r.Context(), files)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, captureResponse(added, len(h.scan.Photos())))
}

// HandleCaptureDetail removes a single photo by id.
func (h *Handler) HandleCaptureDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/scan/captures/")
	if id == "" {
		h.HandleCaptures(w, r)
		return
	}

	switch r.Method {
	case "DELETE":
		removed, err := h.scan.RemovePhoto(id)
		if err != nil {
			h.writeAppError(w, err)
			return
		}
		if !removed {
			h.writeError(w, "Photo not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, h.scan.State())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleCatalogImport merges an uploaded spreadsheet into the catalog.
func (h *Handler) HandleCatalogImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	accepted, err := h.importer.Import(r.Context(), header.Filename, file)
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	h.writeJSON(w, map[string]any{
		"imported": accepted,
		"total":    h.catalog.Len(),
		"message":  catalog.Summary(accepted),
	})
}
