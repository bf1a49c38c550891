package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FSWriter stores uploaded images on the local filesystem and returns
// the public URL they will be served under.
type FSWriter struct {
	AssetsDir     string
	PublicBaseURL string
}

func NewFSWriter(assetsDir string, publicBaseURL string) *FSWriter {
	return &FSWriter{AssetsDir: assetsDir, PublicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

var allowedExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Write stores data under a fresh uuid-based name, keeping only the
// extension from the original filename.
func (w *FSWriter) Write(kind, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	dir := filepath.Join(w.AssetsDir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return w.buildURL("/assets/" + kind + "/" + name), nil
}

func (w *FSWriter) buildURL(path string) string {
	if w.PublicBaseURL == "" {
		return path
	}
	return w.PublicBaseURL + path
}
