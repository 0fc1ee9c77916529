package handlers

import (
	"log/slog"
	"net/http"
)

func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		h.writeJSON(w, h.scan.State())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleIdentify runs the analysis on the buffered photos.
func (h *Handler) HandleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	outcome, err := h.scan.StartIdentification(r.Context())
	if err != nil {
		h.writeAppError(w, err)
		return
	}

	response := map[string]any{
		"session_id":    outcome.SessionID,
		"result":        outcome.Result,
		"images_saved":  outcome.Images.Succeeded(),
		"images_failed": outcome.Images.Failed(),
	}
	if outcome.MatchesErr != nil {
		response["warning"] = "Matches were not saved to history."
	}
	h.writeJSON(w, response)
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.scan.Reset(); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, h.scan.State())
}

func (h *Handler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.scan.AdjustPerspective(); err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, h.scan.State())
}

// HandleHistory returns the most recent sessions, reloaded from persistence.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.scan.RefreshHistory(r.Context()); err != nil {
		slog.Warn("Serving cached history", "error", err)
	}
	h.writeJSON(w, h.scan.History())
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.catalog.Snapshot())
}
