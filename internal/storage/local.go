package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// defaultFileMode is applied to new outputs that do not replace a file.
const defaultFileMode fs.FileMode = 0644

// LocalStorage implements the Storage interface on the local filesystem.
type LocalStorage struct{}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{}
}

// CreateTemp reserves a hidden temporary file next to dst. The extension is
// kept so encoders can infer the container; the leading dot keeps leftovers
// out of discovery.
func (s *LocalStorage) CreateTemp(ctx context.Context, dst string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	base := filepath.Base(dst)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	f, err := os.CreateTemp(filepath.Dir(dst), "."+stem+"_*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// Commit renames tempPath over dst. When dst already exists its permission
// bits are carried over to the new file.
func (s *LocalStorage) Commit(ctx context.Context, tempPath, dst, _ string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	mode := defaultFileMode
	if info, err := os.Stat(dst); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tempPath, mode); err != nil {
		return "", fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		return "", fmt.Errorf("rename %s to %s: %w", tempPath, dst, err)
	}

	return dst, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (s *LocalStorage) CleanupTemp(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)
