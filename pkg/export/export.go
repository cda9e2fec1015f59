// Package export renders tables and reviews into downloadable documents.
package export

const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Document headings.
const (
	TableHeading  = "Research Gap Analysis"
	ReviewHeading = "Literature Review"
)

// RenderedDocument is an owned, self-contained output file.
type RenderedDocument struct {
	Data []byte
	MIME string
	// Pages is the page count of a PDF; zero for DOCX.
	Pages int
}

// Extension returns the file extension matching MIME, without the dot.
func (d *RenderedDocument) Extension() string {
	if d.MIME == MIMEPDF {
		return "pdf"
	}
	return "docx"
}
