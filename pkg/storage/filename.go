package storage

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
)

// ErrUnsafeFilename is returned for names carrying path components.
var ErrUnsafeFilename = errors.New("unsafe filename")

// SanitizeFilename turns an uploaded filename into a safe flat name.
// Any separator or parent reference is rejected outright; the remaining
// stem is slugified and the extension lower-cased.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", ErrUnsafeFilename
	}

	ext := strings.ToLower(filepath.Ext(name))
	stem := slug.Make(strings.TrimSuffix(name, filepath.Ext(name)))
	if stem == "" {
		stem = "file"
	}

	cleanExt := strings.Map(func(r rune) rune {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, ext)
	if cleanExt == "." {
		cleanExt = ""
	}
	return stem + cleanExt, nil
}
