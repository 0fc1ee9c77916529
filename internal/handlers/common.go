package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/partident/internal/catalog"
	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/scan"
	"github.com/lehigh-university-libraries/partident/internal/storage"
)

type Handler struct {
	scan     *scan.Orchestrator
	catalog  *catalog.Store
	importer *catalog.Importer
	objects  *storage.ObjectStore
	decoder  *images.Decoder
	fetcher  *images.Fetcher
}

func New(orchestrator *scan.Orchestrator, store *catalog.Store, importer *catalog.Importer, objects *storage.ObjectStore, maxImageSize int64) *Handler {
	return &Handler{
		scan:     orchestrator,
		catalog:  store,
		importer: importer,
		objects:  objects,
		decoder:  images.NewDecoder(maxImageSize),
		fetcher:  images.NewFetcher(maxImageSize),
	}
}

// Routes registers the API on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/scan", h.HandleScan)
	mux.HandleFunc("/api/scan/captures", h.HandleCaptures)
	mux.HandleFunc("/api/scan/captures/", h.HandleCaptureDetail)
	mux.HandleFunc("/api/scan/identify", h.HandleIdentify)
	mux.HandleFunc("/api/scan/reset", h.HandleReset)
	mux.HandleFunc("/api/scan/adjust", h.HandleAdjust)
	mux.HandleFunc("/api/history", h.HandleHistory)
	mux.HandleFunc("/api/catalog", h.HandleCatalog)
	mux.HandleFunc("/api/catalog/import", h.HandleCatalogImport)
	mux.HandleFunc("/static/uploads/", h.HandleUploads)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	h.writeJSONStatus(w, data, http.StatusOK)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	h.writeJSONStatus(w, map[string]string{"error": message}, code)
}

// writeAppError reports err with the status code of its kind and its user-visible message.
func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	code := statusFor(apperrors.KindOf(err))
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "kind", apperrors.KindOf(err), "error", err)
	} else {
		slog.Warn("Request rejected", "kind", apperrors.KindOf(err), "error", err)
	}
	h.writeJSONStatus(w, map[string]string{"error": apperrors.Message(err)}, code)
}

func statusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindDecode, apperrors.KindCatalogParse:
		return http.StatusBadRequest
	case apperrors.KindState:
		return http.StatusConflict
	case apperrors.KindEngine:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
