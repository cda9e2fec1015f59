package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/gomutex/godocx"
)

// tableStyle is the bordered grid style of the default template.
const tableStyle = "TableGrid"

// invalidXMLChars matches control characters XML 1.0 cannot carry.
var invalidXMLChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F]")

func docxText(s string) string {
	return invalidXMLChars.ReplaceAllString(strings.ReplaceAll(s, "\r\n", "\n"), "")
}

// save serializes doc. The library writes to a path, so the package goes
// through a temp file.
func save(doc interface{ SaveTo(string) error }) (*RenderedDocument, error) {
	dir, err := os.MkdirTemp("", "gapagent-docx-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "out.docx")
	if err := doc.SaveTo(path); err != nil {
		return nil, fmt.Errorf("failed to write docx: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read docx: %w", err)
	}
	return &RenderedDocument{Data: data, MIME: MIMEDOCX}, nil
}

// RenderTableDOCX writes a heading and a grid-styled table with one header
// row. Rows grow with their content; the viewer paginates.
func RenderTableDOCX(t *table.Table) (*RenderedDocument, error) {
	if t == nil || len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: table has no columns", apperrors.ErrInvalidInput)
	}
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create docx: %w", err)
	}
	doc.AddHeading(TableHeading, 0)

	tbl := doc.AddTable()
	tbl.Style(tableStyle)
	for _, cells := range append([][]string{t.Columns}, t.Rows...) {
		row := tbl.AddRow()
		for _, c := range cells {
			// one paragraph per line keeps cell line breaks
			cell := row.AddCell()
			for _, line := range strings.Split(docxText(c), "\n") {
				cell.AddParagraph(line)
			}
		}
	}
	return save(doc)
}

// RenderReviewDOCX writes a heading followed by one paragraph per
// blank-line separated block of text.
func RenderReviewDOCX(text string) (*RenderedDocument, error) {
	doc, err := godocx.NewDocument()
	if err != nil {
		return nil, fmt.Errorf("failed to create docx: %w", err)
	}
	doc.AddHeading(ReviewHeading, 0)
	for _, block := range ReviewParagraphs(text) {
		doc.AddParagraph(docxText(block))
	}
	return save(doc)
}

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// ReviewParagraphs splits review text on blank lines, dropping empty blocks.
func ReviewParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, block := range blankLine.Split(text, -1) {
		if block = strings.TrimSpace(block); block != "" {
			out = append(out, block)
		}
	}
	return out
}
