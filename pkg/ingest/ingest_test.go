package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/duynguyendang/gapagent/internal/cache"
	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePDF(t *testing.T, text string) []byte {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(false)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 12)
	doc.Cell(120, 10, text)
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return buf.Bytes()
}

func makeDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`))

	body := ""
	for _, p := range paragraphs {
		body += `<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`
	}
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))

	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPDF(t *testing.T) {
	svc := NewService(nil)
	text, err := svc.Extract(context.Background(), Document{Name: "paper.pdf", Data: makePDF(t, "Research gaps in federated learning")})
	require.NoError(t, err)
	assert.Contains(t, text, "Research")
}

func TestExtractDOCX(t *testing.T) {
	svc := NewService(nil)
	text, err := svc.Extract(context.Background(), Document{Name: "Paper.DOCX", Data: makeDOCX(t, "Abstract", "We study X.")})
	require.NoError(t, err)
	assert.Equal(t, "Abstract\nWe study X.", text)
}

func TestExtractSniffsUnknownExtension(t *testing.T) {
	svc := NewService(nil)
	text, err := svc.Extract(context.Background(), Document{Name: "upload.bin", Data: makeDOCX(t, "Sniffed")})
	require.NoError(t, err)
	assert.Equal(t, "Sniffed", text)
}

func TestExtractFailures(t *testing.T) {
	svc := NewService(nil)

	_, err := svc.Extract(context.Background(), Document{Name: "notes.txt", Data: []byte("plain")})
	assert.ErrorIs(t, err, apperrors.ErrExtraction)

	_, err = svc.Extract(context.Background(), Document{Name: "broken.pdf", Data: []byte("not a pdf")})
	assert.ErrorIs(t, err, apperrors.ErrExtraction)

	_, err = svc.Extract(context.Background(), Document{Name: "legacy.doc", Data: []byte{0xD0, 0xCF, 0x11, 0xE0}})
	assert.ErrorIs(t, err, apperrors.ErrExtraction)
}

func TestExtractBatchSkipsFailures(t *testing.T) {
	c := cache.New(4)
	svc := NewService(c)
	docs := []Document{
		{Name: "a.docx", Data: makeDOCX(t, "first")},
		{Name: "broken.pdf", Data: []byte("garbage")},
		{Name: "b.docx", Data: makeDOCX(t, "second")},
	}

	corpus, results := svc.ExtractBatch(context.Background(), docs)
	assert.Equal(t, "first\n\nsecond", corpus)
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 5, results[0].Chars)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, "b.docx", results[2].Name)

	// Second upload of the same bytes is served from the cache
	_, _ = svc.ExtractBatch(context.Background(), docs[:1])
	assert.Equal(t, uint64(1), c.Stats().Hits)
}

func TestExtractBatchEmpty(t *testing.T) {
	corpus, results := NewService(nil).ExtractBatch(context.Background(), nil)
	assert.Equal(t, "", corpus)
	assert.Empty(t, results)
}

func TestDocumentExt(t *testing.T) {
	assert.Equal(t, "pdf", Document{Name: "A.PDF"}.Ext())
	assert.Equal(t, "", Document{Name: "README"}.Ext())
	assert.True(t, IsSupported("DOCX"))
	assert.False(t, IsSupported("odt"))
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o644))

	docs, err := ReadFiles([]string{path, "  "})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "paper.pdf", docs[0].Name)
	assert.Equal(t, []byte("%PDF"), docs[0].Data)

	_, err = ReadFiles([]string{filepath.Join(dir, "missing.pdf")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
