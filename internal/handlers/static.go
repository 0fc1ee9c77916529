package handlers

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

// HandleUploads serves stored capture images from the object store.
func (h *Handler) HandleUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" && r.Method != "HEAD" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/static/uploads/")
	if key == "" || strings.Contains(key, "..") || strings.Contains(key, "/") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	f, info, err := h.objects.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		slog.Error("Unable to open upload", "key", key, "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
