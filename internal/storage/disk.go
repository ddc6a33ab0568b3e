// Package storage abstracts the uploaded-file store: save bytes, get back a
// relative path; delete by path. The store is append-mostly and deletions
// are best-effort at call sites.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type FileStore interface {
	// Save writes data under the given logical folder and returns a
	// relative reference like /uploads/<folder>/<generated name><ext>.
	Save(folder, ext string, data []byte) (string, error)
	// Delete removes the file addressed by a reference previously returned
	// from Save.
	Delete(ref string) error
}

// DiskStore keeps uploads under a local base directory, addressed by
// generated uuid filenames.
type DiskStore struct {
	baseDir string
}

func NewDiskStore(baseDir string) *DiskStore {
	return &DiskStore{baseDir: baseDir}
}

func (s *DiskStore) Save(folder, ext string, data []byte) (string, error) {
	dir := filepath.Join(s.baseDir, folder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", err
	}

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	filename := fmt.Sprintf("%s%s", uuid.New().String(), ext)

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return "/uploads/" + folder + "/" + filename, nil
}

func (s *DiskStore) Delete(ref string) error {
	rel := strings.TrimPrefix(ref, "/uploads/")
	rel = filepath.Clean(rel)
	if rel == "." || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
		return fmt.Errorf("invalid file reference: %q", ref)
	}
	return os.Remove(filepath.Join(s.baseDir, rel))
}
