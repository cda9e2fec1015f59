package ai

import (
	"context"
	"errors"
	"log/slog"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIService completes prompts through the OpenAI Responses API.
type OpenAIService struct {
	model   string
	baseURL string
	retries int
}

// NewOpenAIService creates an OpenAI completer. baseURL may be empty.
func NewOpenAIService(model, baseURL string) *OpenAIService {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIService{model: model, baseURL: baseURL, retries: 2}
}

func (s *OpenAIService) Name() string {
	return "OpenAI"
}

// Complete sends the instructions as system instructions and the document
// text as input. Without content the prompt itself becomes the input.
func (s *OpenAIService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(req.APIKey),
		option.WithMaxRetries(s.retries),
	}
	if s.baseURL != "" {
		opts = append(opts, option.WithBaseURL(s.baseURL))
	}
	client := openai.NewClient(opts...)

	modelName := req.Model
	if modelName == "" {
		modelName = s.model
	}

	params := responses.ResponseNewParams{
		Model:       modelName,
		Temperature: openai.Float(float64(req.Temperature)),
	}
	if req.Content != "" {
		params.Instructions = openai.String(req.Prompt)
		params.Input = responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Content)}
	} else {
		params.Input = responses.ResponseNewParamsInputUnion{OfString: openai.String(req.Prompt)}
	}

	resp, err := client.Responses.New(ctx, params)
	if err != nil {
		slog.Error("openai responses request failed", "model", modelName, "error", err)
		return "", wrapServiceError(classifyOpenAIError(err), err)
	}
	return resp.OutputText(), nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode)
	}
	return classifyMessage(err)
}
