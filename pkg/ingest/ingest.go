package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/duynguyendang/gapagent/internal/cache"
	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/tsawler/tabula/format"
)

const MaxWorkers = 8

// Supported lists the accepted upload extensions.
var Supported = []string{"pdf", "docx", "doc"}

// Service extracts plain text from uploaded documents.
type Service struct {
	extractors map[string]Extractor
	cache      *cache.TextCache
}

// NewService creates a Service. c may be nil to disable caching.
func NewService(c *cache.TextCache) *Service {
	return &Service{
		extractors: map[string]Extractor{
			"pdf":  PDFExtractor{},
			"docx": DocxExtractor{},
			"doc":  DocxExtractor{},
		},
		cache: c,
	}
}

// IsSupported reports whether ext (without dot) can be extracted.
func IsSupported(ext string) bool {
	for _, s := range Supported {
		if strings.EqualFold(s, ext) {
			return true
		}
	}
	return false
}

// resolveFormat trusts a supported declared extension and otherwise sniffs
// the content.
func resolveFormat(doc Document) string {
	if ext := doc.Ext(); IsSupported(ext) {
		return ext
	}
	f, err := format.DetectFromReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return ""
	}
	switch f {
	case format.PDF:
		return "pdf"
	case format.DOCX:
		return "docx"
	default:
		return ""
	}
}

// Extract returns the text of a single document. Failures wrap
// apperrors.ErrExtraction.
func (s *Service) Extract(ctx context.Context, doc Document) (string, error) {
	ext := resolveFormat(doc)
	extractor, ok := s.extractors[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported file type %q", apperrors.ErrExtraction, doc.Name)
	}

	run := func() (string, error) {
		return extractor.Extract(ctx, doc.Name, doc.Data)
	}
	var (
		text string
		err  error
	)
	if s.cache != nil {
		text, err = s.cache.GetOrExtract(doc.Data, run)
	} else {
		text, err = run()
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", apperrors.ErrExtraction, doc.Name, err)
	}
	return text, nil
}

// ExtractBatch extracts every document independently and joins the texts
// with newlines in upload order. A file that fails is logged and contributes
// an empty string.
func (s *Service) ExtractBatch(ctx context.Context, docs []Document) (string, []Result) {
	texts := make([]string, len(docs))
	results := make([]Result, len(docs))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workerCount := runtime.NumCPU()
	if workerCount > MaxWorkers {
		workerCount = MaxWorkers
	}
	if workerCount > len(docs) {
		workerCount = len(docs)
	}

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				doc := docs[idx]
				results[idx].Name = doc.Name
				text, err := s.Extract(ctx, doc)
				if err != nil {
					slog.Warn("text extraction failed", "file", doc.Name, "error", err)
					results[idx].Error = err.Error()
					continue
				}
				texts[idx] = text
				results[idx].Chars = len([]rune(text))
			}
		}()
	}

	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return strings.Join(texts, "\n"), results
}
