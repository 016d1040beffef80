package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"smartcv-backend/internal/shared/telemetry"
	"smartcv-backend/internal/shared/util"
)

// ErrTooLarge is returned when an upload exceeds the store's size limit.
var ErrTooLarge = errors.New("file too large")

// File is a saved temp upload.
type File struct {
	Path         string
	OriginalName string
	Ext          string
	Size         int64
}

// Store writes uploads to a scratch directory under unique names.
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore creates a Store rooted at dir. maxBytes <= 0 disables the size check.
func NewStore(dir string, maxBytes int64) *Store {
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Dir returns the scratch directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r to <dir>/<uuid><ext>. Partial files are removed on error.
func (s *Store) Save(ctx context.Context, fileName string, r io.Reader) (File, error) {
	sanitized, err := util.SanitizeFileName(fileName)
	if err != nil {
		return File{}, fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return File{}, err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return File{}, fmt.Errorf("mkdir: %w", err)
	}

	ext := util.FileExt(sanitized)
	fullPath := filepath.Join(s.dir, uuid.NewString()+ext)
	f, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return File{}, fmt.Errorf("open file: %w", err)
	}

	src := r
	if s.maxBytes > 0 {
		src = io.LimitReader(r, s.maxBytes+1)
	}
	written, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	switch {
	case copyErr != nil:
		s.Remove(fullPath)
		return File{}, fmt.Errorf("write body: %w", copyErr)
	case closeErr != nil:
		s.Remove(fullPath)
		return File{}, fmt.Errorf("close file: %w", closeErr)
	case s.maxBytes > 0 && written > s.maxBytes:
		s.Remove(fullPath)
		return File{}, ErrTooLarge
	}

	return File{
		Path:         fullPath,
		OriginalName: sanitized,
		Ext:          ext,
		Size:         written,
	}, nil
}

// Remove deletes a temp file. Missing files are not an error.
func (s *Store) Remove(path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		telemetry.Error("upload.cleanup_failed", map[string]any{"path": path, "error": err})
	}
}
