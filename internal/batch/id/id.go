// Package id names batch runs after the directory they process.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

const (
	// fallbackSlug names runs whose root has no usable base name.
	fallbackSlug = "batch"
	maxSlugLen   = 32
	timeLayout   = "20060102T150405Z"
)

// New returns a run ID of the form <slug>-<UTC time>-<random>, where slug is
// derived from the base name of root.
// Example: new(root="/srv/Podcast Ep 12", at) -> podcast-ep-12-20261016T093000Z-9f3a
func New(root string, at time.Time) string {
	random := make([]byte, 2)
	if _, err := rand.Read(random); err != nil {
		return Slug(root) + "-" + at.UTC().Format(timeLayout)
	}
	return Slug(root) + "-" + at.UTC().Format(timeLayout) + "-" + hex.EncodeToString(random)
}

// Slug reduces the base name of root to lower-case ASCII letters, digits and
// single dashes, at most 32 characters long.
func Slug(root string) string {
	base := filepath.Base(filepath.Clean(root))

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}
