package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/lehigh-university-libraries/partident/internal/capture"
	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

// maxFormMemory is how much of a multipart body is held in memory before spilling to disk.
const maxFormMemory = 32 << 20

// rawFilesFromForm wraps each uploaded part as a capture.RawFile.
func rawFilesFromForm(form *multipart.Form, field string) []capture.RawFile {
	headers := form.File[field]
	files := make([]capture.RawFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, capture.RawFile{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

type captureRequest struct {
	DataURL  string `json:"data_url"`
	ImageURL string `json:"image_url"`
}

// addJSONCapture adds one camera frame or remote image as the next angle.
func (h *Handler) addJSONCapture(ctx context.Context, r *http.Request) (models.PhotoCapture, error) {
	var request captureRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		return models.PhotoCapture{}, apperrors.Wrap(apperrors.KindDecode, "handlers.capture", "Invalid JSON.", err)
	}

	var data []byte
	switch {
	case request.DataURL != "":
		payload, err := h.decoder.DecodeDataURL(request.DataURL)
		if err != nil {
			return models.PhotoCapture{}, apperrors.Wrap(apperrors.KindDecode, "handlers.capture", "Error processing captured image.", err)
		}
		data = payload.Data
	case request.ImageURL != "":
		fetched, _, err := h.fetcher.Fetch(ctx, request.ImageURL)
		if err != nil {
			return models.PhotoCapture{}, apperrors.Wrap(apperrors.KindDecode, "handlers.capture", "Unable to download image.", err)
		}
		data = fetched
	default:
		return models.PhotoCapture{}, apperrors.New(apperrors.KindDecode, "handlers.capture", "data_url or image_url is required")
	}

	photo, err := h.scan.AddPhoto(data)
	if err != nil {
		return models.PhotoCapture{}, err
	}
	return photo, nil
}

func captureResponse(added []models.PhotoCapture, total int) map[string]any {
	return map[string]any{
		"photos":  added,
		"added":   len(added),
		"total":   total,
		"message": fmt.Sprintf("Added %d image(s)", len(added)),
	}
}
