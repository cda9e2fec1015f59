package service

import (
	"context"
	"errors"
	"testing"

	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/duynguyendang/gapagent/pkg/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCondenseSendsMarkdownAndParses(t *testing.T) {
	full, err := table.New([]string{"Reference", "Year", "Key Findings"}, [][]string{
		{"[1] A. Author", "2021", "Finding | one"},
		{"[2] B. Author", "2022", "Finding two"},
	})
	require.NoError(t, err)

	orch := &MockOrchestrator{}
	orch.On("Run", mock.Anything, mock.MatchedBy(func(req ai.Request) bool {
		return req.Kind == ai.KindConciseTable && req.Corpus == full.Markdown() && req.APIKey == "key"
	})).Return(ok("| Reference | Gap |\n|---|---|\n| [1], [2] | Small samples |")).Once()

	concise, resp := NewCondenser(orch).Condense(context.Background(), full, "key")

	assert.False(t, resp.Failed())
	assert.Equal(t, table.StatusOK, concise.Status)
	assert.Equal(t, []string{"Reference", "Gap"}, concise.Columns)
	assert.Equal(t, [][]string{{"[1], [2]", "Small samples"}}, concise.Rows)
	orch.AssertExpectations(t)
}

func TestCondenseFailureBecomesErrorTable(t *testing.T) {
	full, err := table.New([]string{"A"}, [][]string{{"a"}})
	require.NoError(t, err)

	failure := ai.Response{
		Text: "Error accessing Gemini API: quota exceeded",
		Kind: ai.ResponseQuotaExceeded,
		Err:  errors.New("quota exceeded"),
	}
	orch := &MockOrchestrator{}
	orch.On("Run", mock.Anything, kind(ai.KindConciseTable)).Return(failure)

	concise, resp := NewCondenser(orch).Condense(context.Background(), full, "key")

	assert.Equal(t, ai.ResponseQuotaExceeded, resp.Kind)
	assert.Equal(t, table.StatusNoTable, concise.Status)
	raw, found := concise.Cell(0, table.RawResponseColumn)
	assert.True(t, found)
	assert.Equal(t, failure.Text, raw)
}
