package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/lehigh-university-libraries/partident/internal/errors"
	"github.com/lehigh-university-libraries/partident/internal/images"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// slowFile delays its open so decodes complete out of order.
func slowFile(name string, data []byte, delay time.Duration) RawFile {
	return RawFile{
		Name: name,
		Open: func() (io.ReadCloser, error) {
			time.Sleep(delay)
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestBuffer_Add(t *testing.T) {
	b := NewBuffer(nil)

	first := b.Add([]byte("a"), "jpeg")
	second := b.Add([]byte("b"), "jpeg")

	if first.Angle != "Angle 1" {
		t.Errorf("Expected Angle 1, got %s", first.Angle)
	}
	if second.Angle != "Angle 2" {
		t.Errorf("Expected Angle 2, got %s", second.Angle)
	}
	if first.ID == "" || first.ID == second.ID {
		t.Errorf("Expected unique non-empty ids, got %q and %q", first.ID, second.ID)
	}
	if b.Len() != 2 {
		t.Errorf("Expected 2 photos, got %d", b.Len())
	}
}

func TestBuffer_AddBatchLabelsContiguous(t *testing.T) {
	b := NewBuffer(images.NewDecoder(0))
	b.Add(pngBytes(t, 2, 2), "png")
	b.Add(pngBytes(t, 2, 2), "png")

	files := []RawFile{
		slowFile("first.png", pngBytes(t, 3, 3), 30*time.Millisecond),
		slowFile("second.png", pngBytes(t, 4, 4), 10*time.Millisecond),
		slowFile("third.png", pngBytes(t, 5, 5), 0),
	}

	added, err := b.AddBatch(context.Background(), files)
	if err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("Expected 3 added photos, got %d", len(added))
	}

	photos := b.Photos()
	if len(photos) != 5 {
		t.Fatalf("Expected 5 photos, got %d", len(photos))
	}
	for i, photo := range photos[2:] {
		want := fmt.Sprintf("Batch %d", i+3)
		if photo.Angle != want {
			t.Errorf("photo %d: expected %s, got %s", i, want, photo.Angle)
		}
		if photo.Format != "png" {
			t.Errorf("photo %d: expected png, got %s", i, photo.Format)
		}
	}
	// decode order must not affect input order
	if !bytes.Equal(photos[2].Data, pngBytes(t, 3, 3)) {
		t.Error("Expected batch to keep input order")
	}
}

func TestBuffer_AddBatchAllOrNothing(t *testing.T) {
	b := NewBuffer(nil)
	b.Add(pngBytes(t, 2, 2), "png")

	files := []RawFile{
		FileFromBytes("good.png", pngBytes(t, 2, 2)),
		FileFromBytes("bad.png", []byte("not an image")),
		FileFromBytes("good2.png", pngBytes(t, 2, 2)),
	}

	added, err := b.AddBatch(context.Background(), files)
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if !apperrors.IsKind(err, apperrors.KindDecode) {
		t.Errorf("Expected decode error kind, got %v", err)
	}
	if added != nil {
		t.Errorf("Expected no photos returned, got %d", len(added))
	}
	if b.Len() != 1 {
		t.Errorf("Expected buffer unaffected (1 photo), got %d", b.Len())
	}
}

func TestBuffer_DecodeBatchLeavesBufferUntilAppend(t *testing.T) {
	b := NewBuffer(nil)
	b.Add(pngBytes(t, 2, 2), "png")

	payloads, err := b.DecodeBatch(context.Background(), []RawFile{
		FileFromBytes("a.png", pngBytes(t, 3, 3)),
		FileFromBytes("b.png", pngBytes(t, 4, 4)),
	})
	if err != nil {
		t.Fatalf("DecodeBatch() error = %v", err)
	}
	if b.Len() != 1 {
		t.Fatalf("Expected decode to leave buffer at 1 photo, got %d", b.Len())
	}

	b.Add(pngBytes(t, 2, 2), "png")
	added := b.AppendBatch(payloads)
	if len(added) != 2 || added[0].Angle != "Batch 3" || added[1].Angle != "Batch 4" {
		t.Errorf("Unexpected appended photos %+v", added)
	}
	if b.AppendBatch(nil) != nil || b.Len() != 4 {
		t.Errorf("Expected empty append to be a no-op, got %d photos", b.Len())
	}
}

func TestBuffer_AddBatchOpenFailure(t *testing.T) {
	b := NewBuffer(nil)
	files := []RawFile{{
		Name: "broken",
		Open: func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
	}}
	if _, err := b.AddBatch(context.Background(), files); err == nil {
		t.Fatal("Expected error for unopenable file")
	}
}

func TestBuffer_AddBatchFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "part.png")
	if err := os.WriteFile(path, pngBytes(t, 6, 6), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	b := NewBuffer(nil)
	added, err := b.AddBatch(context.Background(), []RawFile{FileFromPath(path)})
	if err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	if added[0].Angle != "Batch 1" {
		t.Errorf("Expected Batch 1, got %s", added[0].Angle)
	}
}

func TestBuffer_RemoveAndClear(t *testing.T) {
	b := NewBuffer(nil)
	p1 := b.Add([]byte("1"), "jpeg")
	p2 := b.Add([]byte("2"), "jpeg")
	p3 := b.Add([]byte("3"), "jpeg")

	t.Run("removes matching id", func(t *testing.T) {
		if !b.Remove(p2.ID) {
			t.Fatal("Expected Remove to report true")
		}
		photos := b.Photos()
		if len(photos) != 2 || photos[0].ID != p1.ID || photos[1].ID != p3.ID {
			t.Errorf("Unexpected buffer after remove: %+v", photos)
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		if b.Remove("missing") {
			t.Error("Expected Remove to report false")
		}
		if b.Len() != 2 {
			t.Errorf("Expected 2 photos, got %d", b.Len())
		}
	})

	t.Run("clear empties buffer", func(t *testing.T) {
		b.Clear()
		if b.Len() != 0 {
			t.Errorf("Expected empty buffer, got %d", b.Len())
		}
	})
}

func TestBuffer_PhotosIsCopy(t *testing.T) {
	b := NewBuffer(nil)
	b.Add([]byte("1"), "jpeg")

	photos := b.Photos()
	photos[0].Angle = "changed"

	if b.Photos()[0].Angle != "Angle 1" {
		t.Error("Expected Photos() to return a copy")
	}
}
