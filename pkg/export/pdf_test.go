package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, columns []string, rows [][]string) *table.Table {
	t.Helper()
	tbl, err := table.New(columns, rows)
	require.NoError(t, err)
	return tbl
}

func TestRenderTablePDF(t *testing.T) {
	tbl := mustTable(t, []string{"Reference", "Year", "Key Findings"}, [][]string{
		{"[1] A. Author, \"Paper,\" 2020.", "2020", "Accuracy improves by 4%."},
	})

	doc, err := RenderTablePDF(tbl, PDFOptions{Title: TableHeading})
	require.NoError(t, err)
	assert.Equal(t, MIMEPDF, doc.MIME)
	assert.Equal(t, "pdf", doc.Extension())
	assert.Equal(t, 1, doc.Pages)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
}

func TestRenderTablePDFReadable(t *testing.T) {
	tbl := mustTable(t, []string{"Reference", "Gap"}, [][]string{{"[1] Smith", "Small cohorts"}})

	doc, err := RenderTablePDF(tbl, PDFOptions{})
	require.NoError(t, err)

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	require.NoError(t, err)
	assert.Equal(t, 1, r.NumPage())
	text, err := r.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, text, "Small cohorts")
}

func TestRenderTablePDFTruncatesOversizedCell(t *testing.T) {
	tbl := mustTable(t, []string{"Notes"}, [][]string{{strings.Repeat("x", 5000)}})

	doc, err := RenderTablePDF(tbl, PDFOptions{Uncompressed: true})
	require.NoError(t, err)
	assert.Contains(t, string(doc.Data), "x"+TruncationMarker)

	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	require.NoError(t, err)
	text, err := r.Page(1).GetPlainText(nil)
	require.NoError(t, err)
	assert.Equal(t, MaxCellChars, strings.Count(text, "x"))
}

func TestRenderTablePDFRepeatsHeader(t *testing.T) {
	rows := make([][]string, 300)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("[%d]", i+1), "Finding text that wraps across a couple of lines in a narrow column"}
	}
	tbl := mustTable(t, []string{"Reference", "Findings"}, rows)

	doc, err := RenderTablePDF(tbl, PDFOptions{Uncompressed: true})
	require.NoError(t, err)
	require.Greater(t, doc.Pages, 1)
	assert.Equal(t, doc.Pages, strings.Count(string(doc.Data), "(Findings) Tj"))
}

func TestRenderTablePDFSplitsTallRow(t *testing.T) {
	// One very long row, wider than the cap would allow, in a narrow layout.
	cols := make([]string, 20)
	row := make([]string, 20)
	for i := range cols {
		cols[i] = fmt.Sprintf("C%d", i)
		row[i] = strings.Repeat("word ", 190)
	}
	tbl := mustTable(t, cols, [][]string{row})

	doc, err := RenderTablePDF(tbl, PDFOptions{PageSize: "A5"})
	require.NoError(t, err)
	assert.Greater(t, doc.Pages, 1)
}

// renderWithin fails the test instead of hanging when layout does not settle.
func renderWithin(t *testing.T, tbl *table.Table, opts PDFOptions) *RenderedDocument {
	t.Helper()
	type result struct {
		doc *RenderedDocument
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := RenderTablePDF(tbl, opts)
		done <- result{doc, err}
	}()
	select {
	case r := <-done:
		require.NoError(t, r.err)
		return r.doc
	case <-time.After(10 * time.Second):
		t.Fatal("RenderTablePDF did not return")
		return nil
	}
}

func TestRenderTablePDFClipsTallHeader(t *testing.T) {
	tests := []struct {
		name     string
		pageSize string
		columns  int
		header   int
	}{
		{"gap table on A4 with one long header", "A4", 9, 1000},
		{"many wide columns on A3", "", 60, 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols := make([]string, tt.columns)
			row := make([]string, tt.columns)
			for i := range cols {
				cols[i] = fmt.Sprintf("Column %d", i)
				row[i] = "cell"
			}
			cols[0] = strings.Repeat("Research Gap ", tt.header/13)
			tbl := mustTable(t, cols, [][]string{row})

			doc := renderWithin(t, tbl, PDFOptions{PageSize: tt.pageSize})
			assert.Equal(t, 1, doc.Pages)

			r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
			require.NoError(t, err)
			text, err := r.Page(1).GetPlainText(nil)
			require.NoError(t, err)
			assert.Contains(t, text, TruncationMarker)
		})
	}
}

func TestRenderTablePDFTallHeaderAndTallRow(t *testing.T) {
	cols := []string{strings.Repeat("Limitations ", 80), "Notes"}
	tbl := mustTable(t, cols, [][]string{{strings.Repeat("word ", 190), strings.Repeat("note ", 190)}})

	doc := renderWithin(t, tbl, PDFOptions{PageSize: "A5"})
	assert.GreaterOrEqual(t, doc.Pages, 1)
}

func TestRenderTablePDFErrorTable(t *testing.T) {
	tbl := table.Parse("<not a table>")
	doc, err := RenderTablePDF(tbl, PDFOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages)
}

func TestRenderTablePDFRejectsEmpty(t *testing.T) {
	_, err := RenderTablePDF(nil, PDFOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	_, err = RenderTablePDF(&table.Table{}, PDFOptions{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
