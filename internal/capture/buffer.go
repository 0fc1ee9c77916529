package capture

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/images"
	"github.com/lehigh-university-libraries/partident/internal/models"
)

// RawFile is an undecoded image source handed to AddBatch
type RawFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileFromPath returns a RawFile reading from the local filesystem
func FileFromPath(path string) RawFile {
	return RawFile{
		Name: path,
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FileFromBytes returns a RawFile over an in-memory payload
func FileFromBytes(name string, data []byte) RawFile {
	return RawFile{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Buffer holds the ordered photos of the in-progress scan
type Buffer struct {
	mu      sync.RWMutex
	photos  []models.PhotoCapture
	decoder *images.Decoder
}

func NewBuffer(decoder *images.Decoder) *Buffer {
	if decoder == nil {
		decoder = images.NewDecoder(0)
	}
	return &Buffer{decoder: decoder}
}

// Add appends a single capture labelled "Angle N".
func (b *Buffer) Add(data []byte, format string) models.PhotoCapture {
	b.mu.Lock()
	defer b.mu.Unlock()

	photo := models.PhotoCapture{
		ID:     uuid.NewString(),
		Data:   data,
		Format: format,
		Angle:  fmt.Sprintf("Angle %d", len(b.photos)+1),
	}
	b.photos = append(b.photos, photo)
	return photo
}

// AddBatch decodes every file concurrently and appends them labelled "Batch N".
// The batch is all-or-nothing: one failed decode discards the whole batch.
func (b *Buffer) AddBatch(ctx context.Context, files []RawFile) ([]models.PhotoCapture, error) {
	payloads, err := b.DecodeBatch(ctx, files)
	if err != nil {
		return nil, err
	}
	return b.AppendBatch(payloads), nil
}

// DecodeBatch decodes every file concurrently without touching the buffer.
func (b *Buffer) DecodeBatch(ctx context.Context, files []RawFile) ([]*images.Payload, error) {
	if len(files) == 0 {
		return nil, nil
	}

	payloads := make([]*images.Payload, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			payload, err := b.decode(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file.Name, err)
			}
			payloads[i] = payload
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Warn("Discarding image batch", "files", len(files), "error", err)
		return nil, apperrors.Wrap(apperrors.KindDecode, "capture.add_batch", "Error processing images from gallery.", err)
	}
	return payloads, nil
}

// AppendBatch appends decoded payloads labelled "Batch N" in the given order.
func (b *Buffer) AppendBatch(payloads []*images.Payload) []models.PhotoCapture {
	if len(payloads) == 0 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	added := make([]models.PhotoCapture, len(payloads))
	start := len(b.photos)
	for i, payload := range payloads {
		added[i] = models.PhotoCapture{
			ID:     uuid.NewString(),
			Data:   payload.Data,
			Format: payload.Format,
			Angle:  fmt.Sprintf("Batch %d", start+i+1),
		}
	}
	b.photos = append(b.photos, added...)

	slog.Info("Added image batch", "count", len(added), "buffer_size", len(b.photos))
	return added
}

func (b *Buffer) decode(file RawFile) (*images.Payload, error) {
	if file.Open == nil {
		return nil, fmt.Errorf("no source")
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}
	defer rc.Close()
	return b.decoder.Decode(rc)
}

// Remove drops the photo with the given id. It reports whether anything was removed.
func (b *Buffer) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, photo := range b.photos {
		if photo.ID == id {
			b.photos = append(b.photos[:i:i], b.photos[i+1:]...)
			return true
		}
	}
	return false
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.photos = nil
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.photos)
}

// Photos returns a copy of the buffered photos in capture order.
func (b *Buffer) Photos() []models.PhotoCapture {
	b.mu.RLock()
	defer b.mu.RUnlock()

	result := make([]models.PhotoCapture, len(b.photos))
	copy(result, b.photos)
	return result
}
