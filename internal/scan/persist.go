package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

// ImageResult is the outcome of storing one photo of a session.
type ImageResult struct {
	PhotoID string `json:"photo_id"`
	Angle   string `json:"angle"`
	URL     string `json:"url,omitempty"`
	Err     error  `json:"-"`
}

// BatchResult reports the per-photo outcome of a best-effort upload batch.
type BatchResult struct {
	Items []ImageResult `json:"items"`
}

func (b BatchResult) Succeeded() int {
	n := 0
	for _, item := range b.Items {
		if item.Err == nil {
			n++
		}
	}
	return n
}

func (b BatchResult) Failed() int {
	return len(b.Items) - b.Succeeded()
}

// persistImages uploads every photo and records it against the session.
// A photo is only recorded after its own upload succeeded. Failures are collected, never returned.
func (o *Orchestrator) persistImages(ctx context.Context, sessionID string, photos []models.PhotoCapture) BatchResult {
	results := make([]ImageResult, len(photos))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, o.uploadWorkers)

	for i, photo := range photos {
		wg.Add(1)
		go func(idx int, photo models.PhotoCapture) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[idx] = o.persistImage(ctx, sessionID, photo)
		}(i, photo)
	}
	wg.Wait()

	batch := BatchResult{Items: results}
	if failed := batch.Failed(); failed > 0 {
		slog.Warn("Some images were not persisted", "session_id", sessionID, "failed", failed, "total", len(photos))
	}
	return batch
}

func (o *Orchestrator) persistImage(ctx context.Context, sessionID string, photo models.PhotoCapture) ImageResult {
	result := ImageResult{PhotoID: photo.ID, Angle: photo.Angle}

	hint := fmt.Sprintf("session_%s_%s", sessionID, photo.ID)
	url, err := o.store.UploadImage(ctx, photo.Data, photo.Format, hint)
	if err != nil {
		result.Err = apperrors.Wrap(apperrors.KindImagePersistence, "scan.upload_image", "Failed to upload image.", err)
		slog.Error("Failed to upload image", "session_id", sessionID, "photo_id", photo.ID, "error", err)
		return result
	}
	result.URL = url

	if err := o.store.RecordImage(ctx, sessionID, url, photo.Angle); err != nil {
		result.Err = apperrors.Wrap(apperrors.KindImagePersistence, "scan.record_image", "Failed to record image.", err)
		slog.Error("Failed to record image", "session_id", sessionID, "photo_id", photo.ID, "url", url, "error", err)
	}
	return result
}
