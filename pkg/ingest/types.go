package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one uploaded file: its bytes plus the name it arrived with.
// It is discarded once its text has been extracted.
type Document struct {
	Name string
	Data []byte
}

// Ext returns the declared extension in lower case, without the dot.
func (d Document) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Name)), ".")
}

// ReadFiles loads local files as Documents named by their base name.
func ReadFiles(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		docs = append(docs, Document{Name: filepath.Base(p), Data: data})
	}
	return docs, nil
}

// Extractor is the interface for format-specific text extraction.
type Extractor interface {
	// Extract returns the plain text of content.
	Extract(ctx context.Context, name string, content []byte) (string, error)
}

// Result is the outcome for a single file of a batch.
type Result struct {
	Name  string `json:"name"`
	Chars int    `json:"chars"`
	Error string `json:"error,omitempty"`
}
