package service

import (
	"context"
	"strings"

	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/stretchr/testify/mock"
)

// MockOrchestrator returns canned responses per request kind.
type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Run(ctx context.Context, req ai.Request) ai.Response {
	args := m.Called(ctx, req)
	return args.Get(0).(ai.Response)
}

func (m *MockOrchestrator) MissingKeyMessage() string {
	return "Please provide a valid Gemini API Key."
}

func kind(k ai.Kind) any {
	return mock.MatchedBy(func(req ai.Request) bool { return req.Kind == k })
}

func ok(text string) ai.Response {
	return ai.Response{Text: text, Kind: ai.ResponseOK}
}

// stubExtractor treats each document's bytes as its text.
type stubExtractor struct{}

func (stubExtractor) ExtractBatch(ctx context.Context, docs []ingest.Document) (string, []ingest.Result) {
	texts := make([]string, len(docs))
	results := make([]ingest.Result, len(docs))
	for i, d := range docs {
		texts[i] = string(d.Data)
		results[i] = ingest.Result{Name: d.Name, Chars: len(d.Data)}
	}
	return strings.Join(texts, "\n"), results
}
