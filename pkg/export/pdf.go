package export

import (
	"bytes"
	"fmt"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding/charmap"
)

// Page geometry in points.
const (
	marginLeft   = 30.0
	marginTop    = 30.0
	marginRight  = 30.0
	marginBottom = 18.0
	cellPadding  = 3.0
	gridWidth    = 0.5

	bodyFontSize   = 8.0
	headerFontSize = 9.0
	lineSpacing    = 1.25
)

// DefaultPageSize is used when PDFOptions.PageSize is empty. Pages are
// always landscape.
const DefaultPageSize = "A3"

// PDFOptions controls table PDF layout.
type PDFOptions struct {
	PageSize string
	// Title is stored in the document metadata.
	Title string
	// Uncompressed leaves page streams readable, for inspection.
	Uncompressed bool
}

// pdfTable lays out a table over as many pages as needed, redrawing the
// header band at the top of each page.
type pdfTable struct {
	pdf     *fpdf.Fpdf
	colW    float64
	header  [][][]byte
	headerH float64
	bottom  float64
}

// RenderTablePDF renders t as a landscape PDF with equal column widths,
// wrapped cells and a repeated header row.
func RenderTablePDF(t *table.Table, opts PDFOptions) (*RenderedDocument, error) {
	if t == nil || len(t.Columns) == 0 {
		return nil, fmt.Errorf("%w: table has no columns", apperrors.ErrInvalidInput)
	}
	size := opts.PageSize
	if size == "" {
		size = DefaultPageSize
	}

	pdf := fpdf.New("L", "pt", size, "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	pdf.SetCellMargin(cellPadding)
	pdf.SetCompression(!opts.Uncompressed)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.SetCreator("gapagent", false)

	pageW, pageH := pdf.GetPageSize()
	lt := &pdfTable{
		pdf:    pdf,
		colW:   (pageW - marginLeft - marginRight) / float64(len(t.Columns)),
		bottom: pageH - marginBottom,
	}

	pdf.SetFont("Helvetica", "B", headerFontSize)
	lt.header = lt.clip(lt.wrap(t.Columns), lt.maxHeaderLines())
	lt.headerH = rowHeight(lt.header, headerFontSize)

	lt.newPage()
	pdf.SetFont("Helvetica", "", bodyFontSize)
	for _, row := range t.Rows {
		lt.drawBodyRow(lt.wrap(row))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return &RenderedDocument{Data: buf.Bytes(), MIME: MIMEPDF, Pages: pdf.PageNo()}, nil
}

// wrap prepares and splits each cell into lines using the current font.
func (lt *pdfTable) wrap(cells []string) [][][]byte {
	out := make([][][]byte, len(cells))
	for i, c := range cells {
		lines := lt.pdf.SplitLines(winAnsi(cellText(c)), lt.colW)
		if len(lines) == 0 {
			lines = [][]byte{nil}
		}
		out[i] = lines
	}
	return out
}

// maxHeaderLines keeps the repeated header band within half of the usable
// page height so body rows always have room below it.
func (lt *pdfTable) maxHeaderLines() int {
	band := (lt.bottom-marginTop)/2 - 2*cellPadding
	if n := int(band / lineHeight(headerFontSize)); n > 1 {
		return n
	}
	return 1
}

// clip cuts every cell to at most n lines, ending a cut cell with the
// truncation marker. It measures with the current font.
func (lt *pdfTable) clip(cells [][][]byte, n int) [][][]byte {
	marker := []byte(TruncationMarker)
	for i, lines := range cells {
		if len(lines) <= n {
			continue
		}
		last := append([]byte(nil), lines[n-1]...)
		for len(last) > 0 && lt.pdf.GetStringWidth(string(last)+TruncationMarker) > lt.colW-2*cellPadding {
			last = last[:len(last)-1]
		}
		kept := append([][]byte(nil), lines[:n-1]...)
		cells[i] = append(kept, append(last, marker...))
	}
	return cells
}

func lineHeight(fontSize float64) float64 {
	return fontSize * lineSpacing
}

func rowHeight(cells [][][]byte, fontSize float64) float64 {
	maxLines := 1
	for _, lines := range cells {
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	return float64(maxLines)*lineHeight(fontSize) + 2*cellPadding
}

func (lt *pdfTable) newPage() {
	lt.pdf.AddPage()
	lt.pdf.SetFont("Helvetica", "B", headerFontSize)
	lt.pdf.SetFillColor(128, 128, 128)
	lt.pdf.SetTextColor(245, 245, 245)
	lt.drawRow(lt.header, lt.headerH, headerFontSize, true)
	lt.pdf.SetFont("Helvetica", "", bodyFontSize)
	lt.pdf.SetTextColor(0, 0, 0)
}

// drawBodyRow places a row below the previous one, starting a new page
// when it does not fit. A row taller than a whole page is split by lines.
func (lt *pdfTable) drawBodyRow(cells [][][]byte) {
	lh := lineHeight(bodyFontSize)
	for {
		h := rowHeight(cells, bodyFontSize)
		y := lt.pdf.GetY()
		if y+h <= lt.bottom {
			lt.drawRow(cells, h, bodyFontSize, false)
			return
		}
		if !lt.atPageTop() && marginTop+lt.headerH+h <= lt.bottom {
			lt.newPage()
			continue
		}

		fits := int((lt.bottom - y - 2*cellPadding) / lh)
		if fits < 1 {
			if !lt.atPageTop() {
				lt.newPage()
				continue
			}
			fits = 1
		}
		head, rest := splitLines(cells, fits)
		lt.drawRow(head, rowHeight(head, bodyFontSize), bodyFontSize, false)
		if blankRow(rest) {
			return
		}
		lt.newPage()
		cells = rest
	}
}

func blankRow(cells [][][]byte) bool {
	for _, lines := range cells {
		for _, line := range lines {
			if len(line) > 0 {
				return false
			}
		}
	}
	return true
}

func (lt *pdfTable) atPageTop() bool {
	return lt.pdf.GetY() <= marginTop+lt.headerH+0.01
}

// splitLines cuts every cell after n lines.
func splitLines(cells [][][]byte, n int) (head, rest [][][]byte) {
	head = make([][][]byte, len(cells))
	rest = make([][][]byte, len(cells))
	for i, lines := range cells {
		if len(lines) > n {
			head[i], rest[i] = lines[:n], lines[n:]
		} else {
			head[i], rest[i] = lines, [][]byte{nil}
		}
	}
	return head, rest
}

func (lt *pdfTable) drawRow(cells [][][]byte, h, fontSize float64, fill bool) {
	pdf := lt.pdf
	lh := lineHeight(fontSize)
	y := pdf.GetY()
	x := marginLeft

	style := "D"
	if fill {
		style = "FD"
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(gridWidth)

	for _, lines := range cells {
		pdf.Rect(x, y, lt.colW, h, style)
		for i, line := range lines {
			pdf.SetXY(x, y+cellPadding+float64(i)*lh)
			pdf.CellFormat(lt.colW, lh, string(line), "", 0, "LT", false, 0, "")
		}
		x += lt.colW
	}
	pdf.SetXY(marginLeft, y+h)
}

// winAnsi converts s to the single-byte encoding used by the core fonts.
// Characters outside it become '?'.
func winAnsi(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range strings.ReplaceAll(s, "\r", "") {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			out = append(out, b)
			continue
		}
		out = append(out, '?')
	}
	return out
}
