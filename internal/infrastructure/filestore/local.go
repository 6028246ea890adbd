// Package filestore keeps product images on the local filesystem.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strings"

	domain "catalog/backend/internal/domain/product"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	tempPrefix      = ".upload-"
	defaultMimeType = "application/octet-stream"
	sniffLen        = 3072
)

// LocalStorage stores images as flat files in a single directory.
type LocalStorage struct {
	dir string
}

// Ensure LocalStorage implements the ImageStorage port.
var _ domain.ImageStorage = (*LocalStorage)(nil)

// NewLocalStorage prepares the upload directory and returns a storage rooted at it.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{dir: abs}, nil
}

// Dir returns the absolute directory images are written to.
func (s *LocalStorage) Dir() string {
	return s.dir
}

// Store writes the content under a fresh collision-free name and returns that name.
func (s *LocalStorage) Store(ctx context.Context, r io.Reader, originalName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	br := bufio.NewReaderSize(r, sniffLen)
	ext := strings.ToLower(filepath.Ext(FilenameFromReference(originalName)))
	if ext == "" {
		head, _ := br.Peek(sniffLen)
		ext = mimetype.Detect(head).Extension()
	}
	name := uuid.NewString() + ext

	tmp, err := os.CreateTemp(s.dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", domain.ErrStorage, err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, br); err != nil {
		cleanup()
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrStorage, name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: close %s: %v", domain.ErrStorage, name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename %s: %v", domain.ErrStorage, name, err)
	}
	return name, nil
}

// Open returns a readable handle on a stored file.
func (s *LocalStorage) Open(ctx context.Context, filename string) (*domain.StoredImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, ok := s.resolve(filename)
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, filename, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrStorage, filename, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, domain.ErrImageNotFound
	}
	return &domain.StoredImage{
		Name:    filename,
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Content: f,
	}, nil
}

// Delete removes a stored file. It reports false without error when nothing was there.
func (s *LocalStorage) Delete(ctx context.Context, filename string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, ok := s.resolve(filename)
	if !ok {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: delete %s: %v", domain.ErrStorage, filename, err)
	}
	return true, nil
}

// List enumerates stored filenames in directory order.
func (s *LocalStorage) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", domain.ErrStorage, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// ProbeMediaType guesses the content type from the file extension.
func (s *LocalStorage) ProbeMediaType(filename string) string {
	return ProbeMediaType(filename)
}

// FilenameFromReference extracts the stored filename from an image reference.
func (s *LocalStorage) FilenameFromReference(ref string) string {
	return FilenameFromReference(ref)
}

// ProbeMediaType maps an extension to a MIME type, falling back to octet-stream.
func ProbeMediaType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return defaultMimeType
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultMimeType
}

// FilenameFromReference returns the last path segment of a URL or path, or "" when there is none.
func FilenameFromReference(ref string) string {
	ref = strings.TrimSpace(ref)
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if i := strings.LastIndexAny(ref, `/\`); i >= 0 {
		ref = ref[i+1:]
	}
	if ref == "." || ref == ".." {
		return ""
	}
	return ref
}

func (s *LocalStorage) resolve(filename string) (string, bool) {
	if filename == "" || filename != FilenameFromReference(filename) || strings.HasPrefix(filename, tempPrefix) {
		return "", false
	}
	return filepath.Join(s.dir, filename), true
}
