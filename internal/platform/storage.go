// Package platform holds the narrow collaborator contracts the core calls
// into: object storage, geocoding and outbound mail. Real providers live
// behind these interfaces; the bundled implementations are enough for
// development and tests.
package platform

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ObjectStorage uploads a blob and returns its public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error)
}

// DiskStorage writes objects under a local directory and serves them from a
// configured public base URL.
type DiskStorage struct {
	Root    string
	BaseURL string
}

// NewDiskStorage builds a local-disk ObjectStorage.
func NewDiskStorage(root, baseURL string) *DiskStorage {
	return &DiskStorage{Root: root, BaseURL: baseURL}
}

// Upload stores the blob under root/folder with a randomized name prefix to
// avoid collisions and returns the public URL.
func (s *DiskStorage) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir: %w", err)
	}
	name := uuid.NewString()[:8] + "_" + filename
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	return fmt.Sprintf("%s/%s/%s", s.BaseURL, folder, name), nil
}
