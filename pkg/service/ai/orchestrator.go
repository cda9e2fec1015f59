package ai

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"
)

// Kind selects one of the fixed instruction templates.
type Kind string

const (
	KindGapTable         Kind = "gap_table"
	KindConciseTable     Kind = "concise_table"
	KindLiteratureReview Kind = "literature_review"
	KindQA               Kind = "qa"
	KindValidatePaper    Kind = "validate_paper"
)

var kindFiles = map[Kind]string{
	KindGapTable:         "gap_table.prompt",
	KindConciseTable:     "concise_table.prompt",
	KindLiteratureReview: "literature_review.prompt",
	KindQA:               "qa.prompt",
	KindValidatePaper:    "validate_paper.prompt",
}

// DefaultQAContextLimit is the number of corpus characters sent with a question.
const DefaultQAContextLimit = 30000

// Request is one orchestrated LLM call.
type Request struct {
	Kind Kind
	// Corpus is the document text, or the serialized table for KindConciseTable.
	Corpus   string
	Question string
	APIKey   string
}

// ResponseKind says whether Response.Text is a model answer or a
// user-facing failure message.
type ResponseKind int

const (
	ResponseOK ResponseKind = iota
	ResponseMissingKey
	ResponseAuthFailure
	ResponseQuotaExceeded
	ResponseServiceFailure
	ResponseInvalidRequest
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseOK:
		return "ok"
	case ResponseMissingKey:
		return "missing_key"
	case ResponseAuthFailure:
		return "auth_failure"
	case ResponseQuotaExceeded:
		return "quota_exceeded"
	case ResponseServiceFailure:
		return "service_failure"
	case ResponseInvalidRequest:
		return "invalid_request"
	default:
		return fmt.Sprintf("response(%d)", int(k))
	}
}

// Response always carries displayable text. When Kind is not ResponseOK the
// text is an explanation and Err holds the cause, if any.
type Response struct {
	Text string
	Kind ResponseKind
	Err  error
}

// Failed reports whether the text is a failure message.
func (r Response) Failed() bool {
	return r.Kind != ResponseOK
}

// Options tune an Orchestrator.
type Options struct {
	Model          string
	Temperature    float32
	QAContextLimit int
	// PromptDir, when set, may override any of the embedded prompt files.
	PromptDir fs.FS
}

// Orchestrator holds the fixed prompt templates and dispatches them to the
// LLM service.
type Orchestrator struct {
	llm     Completer
	prompts map[Kind]*Prompt
	opts    Options
}

// NewOrchestrator loads the prompt templates and binds them to llm.
func NewOrchestrator(llm Completer, opts Options) (*Orchestrator, error) {
	prompts, err := loadPrompts(opts.PromptDir)
	if err != nil {
		return nil, err
	}
	if opts.QAContextLimit <= 0 {
		opts.QAContextLimit = DefaultQAContextLimit
	}
	return &Orchestrator{llm: llm, prompts: prompts, opts: opts}, nil
}

// Provider returns the name of the underlying LLM service.
func (o *Orchestrator) Provider() string {
	return o.llm.Name()
}

// MissingKeyMessage is returned without any network call when no API key is set.
func (o *Orchestrator) MissingKeyMessage() string {
	label := o.llm.Name()
	if l, ok := o.llm.(keyLabeler); ok {
		label = l.KeyLabel()
	}
	return fmt.Sprintf("Please provide a valid %s API Key.", label)
}

// Run renders the template for req.Kind and sends it as a single completion.
// It never returns an error: failures are reported in the Response.
func (o *Orchestrator) Run(ctx context.Context, req Request) Response {
	p, ok := o.prompts[req.Kind]
	if !ok {
		return Response{
			Text: fmt.Sprintf("Unknown analysis type %q.", req.Kind),
			Kind: ResponseInvalidRequest,
		}
	}

	if strings.TrimSpace(req.APIKey) == "" {
		return Response{Text: o.MissingKeyMessage(), Kind: ResponseMissingKey}
	}

	creq, err := o.build(p, req)
	if err != nil {
		slog.Error("prompt rendering failed", "kind", req.Kind, "error", err)
		return Response{Text: fmt.Sprintf("Failed to build prompt: %v", err), Kind: ResponseInvalidRequest, Err: err}
	}

	start := time.Now()
	text, err := o.llm.Complete(ctx, creq)
	if err != nil {
		kind := responseKindOf(err)
		slog.Error("llm request failed", "provider", o.llm.Name(), "kind", kind.String(), "task", req.Kind, "error", err)
		return Response{
			Text: fmt.Sprintf("Error accessing %s API: %v", o.llm.Name(), err),
			Kind: kind,
			Err:  err,
		}
	}

	slog.Debug("llm request completed", "provider", o.llm.Name(), "task", req.Kind, "elapsed", time.Since(start), "chars", len(text))
	return Response{Text: text, Kind: ResponseOK}
}

type promptData struct {
	Context  string
	Question string
}

func (o *Orchestrator) build(p *Prompt, req Request) (CompletionRequest, error) {
	creq := CompletionRequest{
		APIKey:      req.APIKey,
		Model:       o.opts.Model,
		Temperature: o.opts.Temperature,
	}
	if p.Config.Model != "" {
		creq.Model = p.Config.Model
	}
	if p.Config.Temperature != nil {
		creq.Temperature = *p.Config.Temperature
	}

	data := promptData{Question: req.Question}
	if req.Kind == KindQA {
		data.Context = TruncateRunes(req.Corpus, o.opts.QAContextLimit)
	} else {
		data.Context = req.Corpus
	}

	rendered, err := p.Execute(data)
	if err != nil {
		return CompletionRequest{}, err
	}
	creq.Prompt = rendered
	if !p.Config.Inline {
		creq.Content = data.Context
	}
	return creq, nil
}

// TruncateRunes returns the first n characters of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
