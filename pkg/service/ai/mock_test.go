package ai

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockCompleter is a canned LLM service.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Name() string {
	return "Gemini"
}

func (m *MockCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
