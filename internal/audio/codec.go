package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned when no codec is registered for a file extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Codec reads and writes one container format.
type Codec interface {
	// Decode reads the file at path into a Buffer at its native sample rate.
	Decode(ctx context.Context, path string) (Buffer, error)

	// Encode writes buf to path. The container is chosen by the codec,
	// the sample rate and channel layout are taken from buf unchanged.
	Encode(ctx context.Context, path string, buf Buffer) error
}

// Registry maps lower-case file extensions to codecs.
type Registry struct {
	codecs map[string]Codec
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register associates a codec with an extension such as ".wav".
// The extension is matched case-insensitively.
func (r *Registry) Register(ext string, c Codec) {
	r.codecs[normalizeExt(ext)] = c
}

// ForPath returns the codec registered for the extension of path.
func (r *Registry) ForPath(path string) (Codec, error) {
	ext := filepath.Ext(path)
	c, ok := r.codecs[normalizeExt(ext)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return c, nil
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.codecs))
	for ext := range r.codecs {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
