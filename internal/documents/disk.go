package documents

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".pdf": true}

// DiskStore writes uploads under a local directory and hands back a URL
// below baseURL/media.
type DiskStore struct {
	dir     string
	baseURL string
}

func NewDiskStore(dir, baseURL string) *DiskStore {
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save stores r as <dir>/<kind>/<uuid><ext> and returns its URL.
func (d *DiskStore) Save(_ context.Context, kind, filename string, r io.Reader) (string, error) {
	kind = filepath.Base(kind)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		ext = ".bin"
	}

	folder := filepath.Join(d.dir, kind)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("documents: mkdir: %w", err)
	}

	name := uuid.New().String() + ext
	f, err := os.Create(filepath.Join(folder, name))
	if err != nil {
		return "", fmt.Errorf("documents: create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", fmt.Errorf("documents: write: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("documents: close: %w", err)
	}
	return d.baseURL + "/" + path.Join("media", kind, name), nil
}
