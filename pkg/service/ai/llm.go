package ai

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/duynguyendang/gapagent/pkg/common/errors"
)

// CompletionRequest is a single, non-streaming completion call.
type CompletionRequest struct {
	APIKey      string
	Model       string
	Temperature float32
	// Prompt holds the fixed instructions.
	Prompt string
	// Content is the document text the instructions apply to. It may be
	// empty when the prompt already embeds everything.
	Content string
}

// Completer is the LLM service port. Implementations make exactly one
// request per call.
type Completer interface {
	// Name is the provider label used in user-facing messages.
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// keyLabeler is implemented by completers whose API key is known by a
// longer product name than Name.
type keyLabeler interface {
	KeyLabel() string
}

// serviceError tags a provider error with one of the LLM sentinels while
// keeping the provider's own message.
type serviceError struct {
	kind error
	err  error
}

func (e *serviceError) Error() string {
	return e.err.Error()
}

func (e *serviceError) Unwrap() []error {
	return []error{e.kind, e.err}
}

func wrapServiceError(kind, err error) error {
	return &serviceError{kind: kind, err: err}
}

// classifyStatus maps an HTTP status from a provider to a sentinel.
func classifyStatus(code int) error {
	switch code {
	case 401, 403:
		return apperrors.ErrLLMAuth
	case 429:
		return apperrors.ErrLLMQuota
	default:
		return apperrors.ErrLLMUnavailable
	}
}

// classifyMessage is the fallback when no status code is available.
func classifyMessage(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid"),
		strings.Contains(msg, "permission_denied"),
		strings.Contains(msg, "unauthenticated"):
		return apperrors.ErrLLMAuth
	case strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "quota"):
		return apperrors.ErrLLMQuota
	default:
		return apperrors.ErrLLMUnavailable
	}
}

// responseKindOf maps a Complete error to the orchestrator's response kind.
func responseKindOf(err error) ResponseKind {
	switch {
	case errors.Is(err, apperrors.ErrLLMAuth):
		return ResponseAuthFailure
	case errors.Is(err, apperrors.ErrLLMQuota):
		return ResponseQuotaExceeded
	default:
		return ResponseServiceFailure
	}
}
