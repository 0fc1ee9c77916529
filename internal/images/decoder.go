package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	_ "golang.org/x/image/webp"
)

// DefaultMaxSize is the per-image size cap (10MB)
const DefaultMaxSize int64 = 10 * 1024 * 1024

// Payload is a validated, still-encoded image
type Payload struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// Decoder reads raw image sources and validates them
type Decoder struct {
	MaxSize int64
}

func NewDecoder(maxSize int64) *Decoder {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Decoder{MaxSize: maxSize}
}

// Decode reads r fully and checks it is a supported image.
func (d *Decoder) Decode(r io.Reader) (*Payload, error) {
	limited := &io.LimitedReader{R: r, N: d.MaxSize + 1}
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > d.MaxSize {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", d.MaxSize)
	}
	return d.DecodeBytes(data)
}

// DecodeBytes validates an in-memory image payload.
func (d *Decoder) DecodeBytes(data []byte) (*Payload, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image payload")
	}
	if int64(len(data)) > d.MaxSize {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", d.MaxSize)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Payload{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

// DecodeDataURL accepts a "data:image/jpeg;base64,..." string as delivered by camera frames.
func (d *Decoder) DecodeDataURL(dataURL string) (*Payload, error) {
	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") {
		return nil, fmt.Errorf("invalid data URL")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data URL must be base64 encoded")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return d.DecodeBytes(data)
}

// MIMEType maps a decoded format name to its MIME type.
func MIMEType(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg", "":
		return "image/jpeg"
	default:
		return "image/" + strings.ToLower(format)
	}
}

// Extension returns the file extension used when storing a payload of format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg", "":
		return ".jpg"
	default:
		return "." + strings.ToLower(format)
	}
}

// DataURL encodes data as a base64 data URL.
func DataURL(data []byte, format string) string {
	return "data:" + MIMEType(format) + ";base64," + base64.StdEncoding.EncodeToString(data)
}
