package service

import (
	"context"
	"log/slog"

	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/duynguyendang/gapagent/pkg/table"
)

// Orchestrator runs one templated LLM request.
type Orchestrator interface {
	Run(ctx context.Context, req ai.Request) ai.Response
	MissingKeyMessage() string
}

// Condenser shortens a gap table by asking the model for a smaller table
// and parsing the reply. Repeated calls on the same input may differ.
type Condenser struct {
	orch Orchestrator
}

// NewCondenser creates a Condenser.
func NewCondenser(orch Orchestrator) *Condenser {
	return &Condenser{orch: orch}
}

// Condense serializes t to Markdown, sends it with the concise-table
// template and parses the response. A failed request surfaces as an error
// table whose raw column holds the failure message.
func (c *Condenser) Condense(ctx context.Context, t *table.Table, apiKey string) (*table.Table, ai.Response) {
	resp := c.orch.Run(ctx, ai.Request{
		Kind:   ai.KindConciseTable,
		Corpus: t.Markdown(),
		APIKey: apiKey,
	})
	out := table.Parse(resp.Text)
	if !resp.Failed() && out.Degraded() {
		slog.Warn("concise table response did not parse", "status", out.Status.String())
	}
	return out, resp
}
