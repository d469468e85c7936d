package export

import (
	"archive/zip"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Title: "Student roster",
		Columns: []Column{
			{Key: "name", Header: "Name"},
			{Key: "course", Header: "Course"},
		},
		Rows: []map[string]string{
			{"name": "Ann, Lee", "course": "CSE"},
			{"name": "Bo", "course": "ECE", "ignored": "x"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Course\n\"Ann, Lee\",CSE\nBo,ECE\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestZipExporterRender(t *testing.T) {
	out, err := NewZipExporter().Render([]ZipEntry{
		{Name: "Ann_CSE_resume.pdf", Content: []byte("%PDF-a")},
		{Name: "Bo_ECE_resume.pdf", Content: []byte("%PDF-b")},
	})
	require.NoError(t, err)

	reader, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	require.Len(t, reader.File, 2)
	assert.Equal(t, "Ann_CSE_resume.pdf", reader.File[0].Name)

	rc, err := reader.File[1].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "%PDF-b", string(data))
}

func TestZipExporterEmptyAndDuplicates(t *testing.T) {
	out, err := NewZipExporter().Render(nil)
	require.NoError(t, err)
	reader, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	require.NoError(t, err)
	assert.Empty(t, reader.File)

	_, err = NewZipExporter().Render([]ZipEntry{{Name: "a.pdf"}, {Name: "a.pdf"}})
	assert.Error(t, err)
}
