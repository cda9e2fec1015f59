package export

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsawler/tabula/docx"
)

func documentXML(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(body)
		}
	}
	t.Fatal("word/document.xml missing")
	return ""
}

func readDOCXText(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	r, err := docx.Open(path)
	require.NoError(t, err)
	defer r.Close()
	text, err := r.Text()
	require.NoError(t, err)
	return text
}

var (
	rowTag       = regexp.MustCompile(`<w:tr[ >]`)
	paragraphTag = regexp.MustCompile(`<w:p[ >]`)
)

func TestRenderTableDOCX(t *testing.T) {
	tbl := mustTable(t, []string{"Reference", "Gaps / Notes"}, [][]string{
		{"[1] Smith & Jones", "Needs <more> data"},
		{"[2] Lee", ""},
	})

	doc, err := RenderTableDOCX(tbl)
	require.NoError(t, err)
	assert.Equal(t, MIMEDOCX, doc.MIME)
	assert.Equal(t, "docx", doc.Extension())

	xml := documentXML(t, doc.Data)
	assert.Contains(t, xml, `w:val="TableGrid"`)
	assert.Len(t, rowTag.FindAllString(xml, -1), 3)
	assert.Contains(t, xml, "Gaps / Notes")
	assert.Contains(t, xml, "[1] Smith &amp; Jones")
	assert.Contains(t, xml, "Needs &lt;more&gt; data")

	assert.Contains(t, readDOCXText(t, doc.Data), TableHeading)
}

func TestRenderTableDOCXKeepsCellLines(t *testing.T) {
	tbl := mustTable(t, []string{"A"}, [][]string{{"first\r\nsecond"}})
	doc, err := RenderTableDOCX(tbl)
	require.NoError(t, err)

	xml := documentXML(t, doc.Data)
	assert.Contains(t, xml, "first")
	assert.Contains(t, xml, "second")
	assert.NotContains(t, xml, "first\nsecond")
}

func TestRenderReviewDOCX(t *testing.T) {
	review := "1. Introduction\nFederated learning [1].\n\n2. Thematic Analysis\n\n   \n\n5. References\n[1] A. Author."

	doc, err := RenderReviewDOCX(review)
	require.NoError(t, err)

	text := strings.TrimSpace(readDOCXText(t, doc.Data))
	assert.True(t, strings.HasPrefix(text, ReviewHeading), text)
	assert.Contains(t, text, "2. Thematic Analysis")
	assert.Contains(t, text, "5. References")

	empty, err := RenderReviewDOCX("  \n\n ")
	require.NoError(t, err)
	base := len(paragraphTag.FindAllString(documentXML(t, empty.Data), -1))
	// one paragraph per non-blank block
	assert.Len(t, paragraphTag.FindAllString(documentXML(t, doc.Data), -1), base+3)
}

func TestReviewParagraphs(t *testing.T) {
	got := ReviewParagraphs("A\r\nstill A\r\n\r\nB\n \t\nC\n\n\n")
	assert.Equal(t, []string{"A\nstill A", "B", "C"}, got)
	assert.Empty(t, ReviewParagraphs("  \n\n "))
}

func TestDOCXDropsControlCharacters(t *testing.T) {
	tbl := mustTable(t, []string{"A"}, [][]string{{"bell\x07here"}})
	doc, err := RenderTableDOCX(tbl)
	require.NoError(t, err)
	assert.Contains(t, documentXML(t, doc.Data), "bellhere")
}
