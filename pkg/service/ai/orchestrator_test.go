package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(t *testing.T, llm Completer, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(llm, opts)
	require.NoError(t, err)
	return o
}

func TestRunForwardsResponseVerbatim(t *testing.T) {
	llm := &MockCompleter{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return strings.Contains(req.Prompt, "Research Gap / Limitations") &&
			strings.Contains(req.Prompt, "IEEE") &&
			req.Content == "paper text" &&
			req.APIKey == "key"
	})).Return("| A |\n|---|\n| a |", nil).Once()

	o := newTestOrchestrator(t, llm, Options{})
	resp := o.Run(context.Background(), Request{Kind: KindGapTable, Corpus: "paper text", APIKey: "key"})

	assert.False(t, resp.Failed())
	assert.Equal(t, "| A |\n|---|\n| a |", resp.Text)
	llm.AssertExpectations(t)
}

func TestRunMissingKeySkipsNetwork(t *testing.T) {
	llm := &MockCompleter{}
	o := newTestOrchestrator(t, llm, Options{})

	resp := o.Run(context.Background(), Request{Kind: KindLiteratureReview, Corpus: "text", APIKey: "  "})

	assert.Equal(t, ResponseMissingKey, resp.Kind)
	assert.Equal(t, "Please provide a valid Gemini API Key.", resp.Text)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestMissingKeyMessageNamesProviderKey(t *testing.T) {
	tests := []struct {
		name string
		llm  Completer
		want string
	}{
		{"gemini", NewGeminiService(""), "Please provide a valid Google Gemini API Key."},
		{"openai", NewOpenAIService("", ""), "Please provide a valid OpenAI API Key."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newTestOrchestrator(t, tt.llm, Options{})
			resp := o.Run(context.Background(), Request{Kind: KindQA, Question: "why?"})
			assert.Equal(t, ResponseMissingKey, resp.Kind)
			assert.Equal(t, tt.want, resp.Text)
		})
	}
}

func TestRunServiceFailureBecomesText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ResponseKind
	}{
		{"auth", wrapServiceError(apperrors.ErrLLMAuth, fmt.Errorf("API key not valid")), ResponseAuthFailure},
		{"quota", wrapServiceError(apperrors.ErrLLMQuota, fmt.Errorf("quota exceeded")), ResponseQuotaExceeded},
		{"network", fmt.Errorf("dial tcp: connection refused"), ResponseServiceFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &MockCompleter{}
			llm.On("Complete", mock.Anything, mock.Anything).Return("", tt.err)
			o := newTestOrchestrator(t, llm, Options{})

			resp := o.Run(context.Background(), Request{Kind: KindGapTable, Corpus: "text", APIKey: "key"})

			assert.Equal(t, tt.kind, resp.Kind)
			assert.True(t, resp.Failed())
			assert.Equal(t, "Error accessing Gemini API: "+tt.err.Error(), resp.Text)
			assert.ErrorIs(t, resp.Err, tt.err)
		})
	}
}

func TestRunQATruncatesContext(t *testing.T) {
	corpus := strings.Repeat("é", 50)
	llm := &MockCompleter{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return req.Content == "" &&
			strings.Contains(req.Prompt, "Context:\n"+strings.Repeat("é", 10)+"\n") &&
			strings.Contains(req.Prompt, "Question: What is the gap?")
	})).Return("The gap is X.", nil).Once()

	o := newTestOrchestrator(t, llm, Options{QAContextLimit: 10})
	resp := o.Run(context.Background(), Request{Kind: KindQA, Corpus: corpus, Question: "What is the gap?", APIKey: "key"})

	assert.Equal(t, "The gap is X.", resp.Text)
	llm.AssertExpectations(t)
}

func TestRunUsesPromptTemperature(t *testing.T) {
	llm := &MockCompleter{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return req.Temperature == 0 && req.Model == "configured-model"
	})).Return("YES", nil).Once()

	o := newTestOrchestrator(t, llm, Options{Model: "configured-model", Temperature: 0.9})
	resp := o.Run(context.Background(), Request{Kind: KindValidatePaper, Corpus: "text", APIKey: "key"})

	assert.Equal(t, "YES", resp.Text)
	llm.AssertExpectations(t)
}

func TestRunUnknownKind(t *testing.T) {
	o := newTestOrchestrator(t, &MockCompleter{}, Options{})
	resp := o.Run(context.Background(), Request{Kind: "poem", APIKey: "key"})
	assert.Equal(t, ResponseInvalidRequest, resp.Kind)
}

func TestPromptOverrideDir(t *testing.T) {
	dir := fstest.MapFS{
		"qa.prompt": {Data: []byte("---\ninline: true\n---\nQ={{.Question}}")},
	}
	llm := &MockCompleter{}
	llm.On("Complete", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		return req.Prompt == "Q=why?"
	})).Return("because", nil).Once()

	o := newTestOrchestrator(t, llm, Options{PromptDir: dir})
	resp := o.Run(context.Background(), Request{Kind: KindQA, Question: "why?", APIKey: "key"})
	assert.Equal(t, "because", resp.Text)

	// non-overridden kinds still come from the embedded set
	assert.Contains(t, o.prompts[KindGapTable].Name, "prompts/gap_table.prompt")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abcdef", 3))
	assert.Equal(t, "ab", TruncateRunes("ab", 3))
	assert.Equal(t, "日本", TruncateRunes("日本語", 2))
	assert.Equal(t, "abc", TruncateRunes("abc", 0))
}
