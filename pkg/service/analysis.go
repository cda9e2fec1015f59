package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/duynguyendang/gapagent/pkg/session"
	"github.com/duynguyendang/gapagent/pkg/table"
)

// User-facing messages.
const (
	MsgNoOption      = "Please select at least one analysis option."
	MsgNotResearch   = "Please upload relevant document. The uploaded file does not appear to be a research paper."
	MsgNoCorpus      = "Please upload research papers to begin analysis."
	MsgNoGapTable    = "Generate a gap table before condensing it."
	MsgEmptyQuestion = "Question must not be empty."
)

// TextExtractor turns uploaded files into one corpus.
type TextExtractor interface {
	ExtractBatch(ctx context.Context, docs []ingest.Document) (string, []ingest.Result)
}

// AnalyzeOptions selects which artifacts Analyze produces.
type AnalyzeOptions struct {
	GapTable         bool `json:"gap_table"`
	LiteratureReview bool `json:"literature_review"`
}

// AnalyzeResult reports one Analyze call. When Valid is false nothing was
// generated and Message explains why.
type AnalyzeResult struct {
	Valid    bool         `json:"valid"`
	Message  string       `json:"message,omitempty"`
	GapTable *table.Table `json:"gap_table,omitempty"`
	Review   string       `json:"review,omitempty"`
	// ReviewKind is the orchestrator outcome of the review request.
	ReviewKind string `json:"review_kind,omitempty"`
}

// AnalysisService composes extraction, prompting, parsing and session
// updates. Each call mutates only the session it is given.
type AnalysisService struct {
	extractor TextExtractor
	orch      Orchestrator
	condenser *Condenser
}

// NewAnalysisService creates an AnalysisService.
func NewAnalysisService(extractor TextExtractor, orch Orchestrator) *AnalysisService {
	return &AnalysisService{
		extractor: extractor,
		orch:      orch,
		condenser: NewCondenser(orch),
	}
}

// MissingKeyMessage is the text shown when no API key is configured.
func (s *AnalysisService) MissingKeyMessage() string {
	return s.orch.MissingKeyMessage()
}

// Ingest extracts the uploaded files and installs the result as the
// session corpus. Files that fail contribute nothing; if no text at all is
// recovered the session is left unchanged.
func (s *AnalysisService) Ingest(ctx context.Context, sess *session.Session, docs []ingest.Document) ([]ingest.Result, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no files uploaded", apperrors.ErrInvalidInput)
	}
	corpus, results := s.extractor.ExtractBatch(ctx, docs)
	if strings.TrimSpace(corpus) == "" {
		return results, fmt.Errorf("%w: no text could be extracted from the uploaded files", apperrors.ErrNoCorpus)
	}

	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	sess.SetCorpus(corpus, names)
	slog.Info("corpus ingested", "session", sess.ID, "files", len(docs), "chars", len(corpus))
	return results, nil
}

// Validate asks the model whether corpus looks like research papers. Only
// an explicit NO rejects it; a failed request is treated as valid.
func (s *AnalysisService) Validate(ctx context.Context, corpus, apiKey string) (bool, ai.Response) {
	resp := s.orch.Run(ctx, ai.Request{Kind: ai.KindValidatePaper, Corpus: corpus, APIKey: apiKey})
	if resp.Failed() {
		slog.Warn("paper validation skipped", "kind", resp.Kind.String(), "error", resp.Err)
		return true, resp
	}
	answer := strings.ToUpper(strings.TrimSpace(resp.Text))
	return !strings.HasPrefix(answer, "NO"), resp
}

// Analyze validates the session corpus and generates the selected
// artifacts, storing them on the session.
func (s *AnalysisService) Analyze(ctx context.Context, sess *session.Session, opts AnalyzeOptions, apiKey string) (*AnalyzeResult, error) {
	if !opts.GapTable && !opts.LiteratureReview {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, MsgNoOption)
	}
	if !sess.HasCorpus() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoCorpus, MsgNoCorpus)
	}
	if strings.TrimSpace(apiKey) == "" {
		return &AnalyzeResult{Message: s.orch.MissingKeyMessage()}, nil
	}

	if ok, _ := s.Validate(ctx, sess.Corpus, apiKey); !ok {
		slog.Info("corpus rejected as non-research", "session", sess.ID)
		return &AnalyzeResult{Message: MsgNotResearch}, nil
	}

	result := &AnalyzeResult{Valid: true}
	if opts.GapTable {
		resp := s.orch.Run(ctx, ai.Request{Kind: ai.KindGapTable, Corpus: sess.Corpus, APIKey: apiKey})
		gap := table.Canonicalize(table.Parse(resp.Text), table.GapSchema)
		sess.GapTable = gap
		sess.ConciseTable = nil
		result.GapTable = gap
	}
	if opts.LiteratureReview {
		review := s.Review(ctx, sess, apiKey)
		result.Review = review.Text
		result.ReviewKind = review.Kind.String()
	}
	return result, nil
}

// Review generates the literature review and stores it on the session
// unless the request failed.
func (s *AnalysisService) Review(ctx context.Context, sess *session.Session, apiKey string) ai.Response {
	resp := s.orch.Run(ctx, ai.Request{Kind: ai.KindLiteratureReview, Corpus: sess.Corpus, APIKey: apiKey})
	if !resp.Failed() {
		sess.Review = resp.Text
	}
	return resp
}

// Condense derives the concise table from the session's gap table.
func (s *AnalysisService) Condense(ctx context.Context, sess *session.Session, apiKey string) (*table.Table, error) {
	if sess.GapTable == nil || sess.GapTable.Degraded() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, MsgNoGapTable)
	}
	concise, _ := s.condenser.Condense(ctx, sess.GapTable, apiKey)
	sess.ConciseTable = concise
	return concise, nil
}

// Ask answers question from the session corpus and appends both turns to
// the chat history. Service failures are recorded as the assistant's answer;
// a missing key records nothing.
func (s *AnalysisService) Ask(ctx context.Context, sess *session.Session, question, apiKey string) (ai.Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return ai.Response{}, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, MsgEmptyQuestion)
	}
	if !sess.HasCorpus() {
		return ai.Response{}, fmt.Errorf("%w: %s", apperrors.ErrNoCorpus, MsgNoCorpus)
	}

	resp := s.orch.Run(ctx, ai.Request{Kind: ai.KindQA, Corpus: sess.Corpus, Question: question, APIKey: apiKey})
	if resp.Kind == ai.ResponseMissingKey {
		return resp, nil
	}
	sess.History.Append(session.RoleUser, question)
	sess.History.Append(session.RoleAssistant, resp.Text)
	return resp, nil
}
