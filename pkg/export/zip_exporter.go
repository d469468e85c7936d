package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// ZipEntry is one file inside an archive.
type ZipEntry struct {
	Name    string
	Content []byte
}

// ZipExporter packs entries into an in-memory archive.
type ZipExporter struct {
	now func() time.Time
}

// NewZipExporter constructs a zip exporter.
func NewZipExporter() *ZipExporter {
	return &ZipExporter{now: time.Now}
}

// Render writes entries in order. Entry names must be unique.
// An empty entry list produces a valid empty archive.
func (e *ZipExporter) Render(entries []ZipEntry) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := zip.NewWriter(buf)
	seen := make(map[string]struct{}, len(entries))
	modified := e.now()

	for _, entry := range entries {
		if entry.Name == "" {
			return nil, fmt.Errorf("zip entry name required")
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, fmt.Errorf("duplicate zip entry %q", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		w, err := writer.CreateHeader(&zip.FileHeader{
			Name:     entry.Name,
			Method:   zip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create zip entry %s: %w", entry.Name, err)
		}
		if _, err := w.Write(entry.Content); err != nil {
			return nil, fmt.Errorf("write zip entry %s: %w", entry.Name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
