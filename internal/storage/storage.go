// Package storage commits encoded audio to its final location.
// Outputs are written to a temporary file beside the destination and renamed
// into place, so an overwrite never leaves a truncated original behind.
// S3Storage additionally mirrors every committed output to a bucket.
package storage

import "context"

// Storage defines how finished outputs reach their destination.
type Storage interface {
	// CreateTemp reserves an empty temporary file in the directory of dst.
	// The temporary name keeps the extension of dst so that encoders which
	// infer the container from the name still work.
	CreateTemp(ctx context.Context, dst string) (path string, err error)

	// Commit moves a finished temporary file over dst and returns the
	// location of the output. key names the output relative to the scanned
	// root, using forward slashes.
	Commit(ctx context.Context, tempPath, dst, key string) (location string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}
