package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiService completes prompts with Google Gemini. A client is created
// per call because the API key arrives with each request.
type GeminiService struct {
	model string
	opts  []option.ClientOption
}

// NewGeminiService creates a Gemini completer. An empty model selects
// DefaultGeminiModel.
func NewGeminiService(model string, opts ...option.ClientOption) *GeminiService {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiService{model: model, opts: opts}
}

func (s *GeminiService) Name() string {
	return "Gemini"
}

// KeyLabel names the key the user has to supply.
func (s *GeminiService) KeyLabel() string {
	return "Google Gemini"
}

// Complete sends the instructions and the document text as two parts of a
// single GenerateContent call.
func (s *GeminiService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(req.APIKey)}, s.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", wrapServiceError(classifyGeminiError(err), fmt.Errorf("failed to create gemini client: %w", err))
	}
	defer client.Close()

	modelName := req.Model
	if modelName == "" {
		modelName = s.model
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(req.Temperature)

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Content != "" {
		parts = append(parts, genai.Text(req.Content))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		slog.Error("gemini GenerateContent failed", "model", modelName, "error", err)
		return "", wrapServiceError(classifyGeminiError(err), err)
	}

	text := responseText(resp)
	if text == "" {
		slog.Warn("gemini returned empty candidates", "model", modelName)
		return "No response from AI.", nil
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func classifyGeminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyStatus(gerr.Code)
	}
	return classifyMessage(err)
}
