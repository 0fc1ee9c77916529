package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/osfs"

	"github.com/lehigh-university-libraries/partident/internal/images"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectStore keeps uploaded images in a flat billy filesystem and hands out public URLs.
type ObjectStore struct {
	fs      billy.Filesystem
	baseURL string
	now     func() time.Time
}

// NewObjectStore stores objects on fs; baseURL is prefixed to each object key.
func NewObjectStore(fs billy.Filesystem, baseURL string) *ObjectStore {
	return &ObjectStore{fs: fs, baseURL: baseURL, now: time.Now}
}

// NewDirObjectStore stores objects under dir on the local disk.
func NewDirObjectStore(dir, baseURL string) (*ObjectStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads dir %s: %w", dir, err)
	}
	return NewObjectStore(osfs.New(dir), baseURL), nil
}

// UploadImage writes payload under a timestamped key and returns its public URL.
func (o *ObjectStore) UploadImage(ctx context.Context, payload []byte, format, hint string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	key := o.objectKey(hint, format)
	f, err := o.fs.Create(key)
	if err != nil {
		return "", fmt.Errorf("failed to create object %s: %w", key, err)
	}
	if _, err := f.Write(payload); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close object %s: %w", key, err)
	}

	return o.PublicURL(key), nil
}

func (o *ObjectStore) objectKey(hint, format string) string {
	hint = strings.Trim(unsafeKeyChars.ReplaceAllString(hint, "_"), "_")
	if hint == "" {
		hint = "capture"
	}
	return fmt.Sprintf("%d_%s%s", o.now().UnixMilli(), hint, images.Extension(format))
}

// PublicURL joins the configured base URL and an object key.
func (o *ObjectStore) PublicURL(key string) string {
	if o.baseURL == "" {
		return key
	}
	return strings.TrimSuffix(o.baseURL, "/") + "/" + key
}

// Open returns a stored object for reading.
func (o *ObjectStore) Open(key string) (billy.File, os.FileInfo, error) {
	key = path.Base(path.Clean("/" + key))
	info, err := o.fs.Stat(key)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		return nil, nil, os.ErrNotExist
	}
	f, err := o.fs.Open(key)
	if err != nil {
		return nil, nil, err
	}
	return f, info, nil
}
