// Package discovery finds the audio files a batch run operates on.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Static errors for root validation.
var (
	// ErrDirectoryNotFound is returned when the root directory does not exist.
	ErrDirectoryNotFound = errors.New("directory not found")
	// ErrNotDirectory is returned when the root exists but is not a directory.
	ErrNotDirectory = errors.New("not a directory")
)

// Extensions lists the recognized audio file extensions, lower case.
var Extensions = []string{".wav", ".mp3"}

// Discover returns the recognized audio files under root, sorted by full path.
// Without recursive only direct children of root are considered.
// Hidden entries (names starting with ".") are skipped, which also keeps
// leftover temporary outputs out of later runs.
// A root without matches yields an empty slice and no error.
func Discover(root string, recursive bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, root)
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []string
	if recursive {
		files, err = walk(root)
	} else {
		files, err = list(root)
	}
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// IsAudioFile reports whether name carries a recognized extension and is
// not hidden.
func IsAudioFile(name string) bool {
	if isHidden(name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func list(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", root, err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && IsAudioFile(entry.Name()) {
			files = append(files, filepath.Join(root, entry.Name()))
		}
	}
	return files, nil
}

func walk(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if IsAudioFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
