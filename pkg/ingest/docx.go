package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/tsawler/tabula/docx"
)

// DocxExtractor reads paragraph text from an Office Open XML document.
// Legacy binary .doc files are routed here as well and fail unless they are
// OOXML under the old extension.
type DocxExtractor struct{}

func (DocxExtractor) Extract(ctx context.Context, name string, content []byte) (string, error) {
	// docx.Open works on paths only.
	tmp, err := os.CreateTemp("", "gapagent-*.docx")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	r, err := docx.Open(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}
	defer r.Close()

	return r.Text()
}
