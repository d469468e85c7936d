package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	name, err := store.SaveStream("u1_cv.pdf", bytes.NewReader([]byte("%PDF-1.4")))
	require.NoError(t, err)
	assert.True(t, store.Exists(name))

	data, err := store.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = store.SaveStream(name, bytes.NewReader([]byte("%PDF-1.7")))
	require.NoError(t, err)
	data, err = store.ReadFile(name)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
	assert.True(t, store.Exists(name))
}

func TestLocalStorageStaysInsideRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "resumes")
	store, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = store.SaveStream("../escaped.pdf", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(parent, "escaped.pdf"))
	assert.True(t, os.IsNotExist(statErr))
	assert.False(t, store.Exists("../escaped.pdf"))
}

func TestMemStorageExistsIgnoresDirectories(t *testing.T) {
	store := NewMemStorage("/photos")
	_, err := store.SaveStream("nested/me.png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.True(t, store.Exists("nested/me.png"))
	assert.False(t, store.Exists("nested"))
	assert.Equal(t, filepath.Join("/photos", "nested/me.png"), store.Path("nested/me.png"))
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"My Resume.PDF":    "my-resume.pdf",
		"photo.jpeg":       "photo.jpeg",
		"  Ünïcode CV.pdf": "unicode-cv.pdf",
		"!!!.png":          "file.png",
		"noext":            "noext",
	}
	for in, want := range cases {
		got, err := SanitizeFilename(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "../etc/passwd", `..\boot.ini`, "dir/file.pdf", "a..pdf"} {
		_, err := SanitizeFilename(bad)
		assert.ErrorIs(t, err, ErrUnsafeFilename, bad)
	}
}
