// localstore.go - file-backed object store with validated upload ingest.

package storage

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// AllowedContentTypes is the ingest allow-list.
var AllowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// MaxUploadSize is the streaming size cutoff for ingest.
const MaxUploadSize = 10 * 1024 * 1024 // 10MB

// MaxPixelArea bounds decoded image dimensions to guard against decompression
// bombs disguised as small files.
const MaxPixelArea = 40_000_000 // e.g. ~6700x6000

// ErrUnsupportedContentType is returned when the content type isn't allow-listed.
var ErrUnsupportedContentType = fmt.Errorf("storage: unsupported content type")

// ErrTooLarge is returned when the upload exceeds MaxUploadSize.
var ErrTooLarge = fmt.Errorf("storage: upload exceeds size limit")

// ErrImageTooLarge is returned when the decoded image exceeds MaxPixelArea.
var ErrImageTooLarge = fmt.Errorf("storage: image dimensions exceed limit")

// Store is the object-store contract: save a validated upload, resolve it
// back to an absolute path for worker-side processing, check existence,
// delete. A second concrete backend (e.g. S3) could implement the same
// interface without touching any caller.
type Store interface {
	Save(content []byte, contentType, subdir, filename, ext string) (relativePath string, err error)
	Load(relativePath string) ([]byte, error)
	AbsolutePath(relativePath string) string
	URL(relativePath string) string
	Exists(relativePath string) bool
	Delete(relativePath string) error
}

// LocalStore implements Store on the local filesystem.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore builds a LocalStore rooted at baseDir, serving URLs under baseURL.
func NewLocalStore(baseDir, baseURL string) *LocalStore {
	return &LocalStore{baseDir: baseDir, baseURL: baseURL}
}

// ValidateIngest checks content type, size and decoded pixel area before a
// caller persists the bytes. Save calls it before writing. It needs the
// complete content, since it decodes the whole image.
func ValidateIngest(content []byte, contentType string) error {
	if !AllowedContentTypes[contentType] {
		return fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	if len(content) > MaxUploadSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, len(content))
	}
	img, err := imaging.Decode(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("storage: decode image: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx()*bounds.Dy() > MaxPixelArea {
		return ErrImageTooLarge
	}
	return nil
}

// Save writes content under baseDir/subdir/filename+ext and returns the path
// relative to baseDir.
func (s *LocalStore) Save(content []byte, contentType, subdir, filename, ext string) (string, error) {
	if err := ValidateIngest(content, contentType); err != nil {
		return "", err
	}
	relPath := filepath.Join(subdir, filename+ext)
	absPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return "", fmt.Errorf("storage: write: %w", err)
	}
	return filepath.ToSlash(relPath), nil
}

// SaveReader reads src into memory under a size cap (at most
// MaxUploadSize+1 bytes are read) and saves it through Save. The content
// type is checked before reading, and Save validates it again together with
// the decoded image.
func (s *LocalStore) SaveReader(src io.Reader, contentType, subdir, filename, ext string) (string, error) {
	if !AllowedContentTypes[contentType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, contentType)
	}
	limited := io.LimitReader(src, MaxUploadSize+1)
	content, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("storage: read upload: %w", err)
	}
	if len(content) > MaxUploadSize {
		return "", ErrTooLarge
	}
	return s.Save(content, contentType, subdir, filename, ext)
}

// Load reads the full contents of relativePath back off disk.
func (s *LocalStore) Load(relativePath string) ([]byte, error) {
	data, err := os.ReadFile(s.AbsolutePath(relativePath))
	if err != nil {
		return nil, fmt.Errorf("storage: load %s: %w", relativePath, err)
	}
	return data, nil
}

// AbsolutePath resolves a relative path to an absolute one on disk.
func (s *LocalStore) AbsolutePath(relativePath string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(relativePath))
}

// URL builds the public URL for a relative path.
func (s *LocalStore) URL(relativePath string) string {
	return fmt.Sprintf("%s/static/%s", s.baseURL, relativePath)
}

// Exists reports whether relativePath exists under baseDir.
func (s *LocalStore) Exists(relativePath string) bool {
	_, err := os.Stat(s.AbsolutePath(relativePath))
	return err == nil
}

// Delete removes relativePath, ignoring absence.
func (s *LocalStore) Delete(relativePath string) error {
	err := os.Remove(s.AbsolutePath(relativePath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", relativePath, err)
	}
	return nil
}
