package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds configuration for the analysis services and their surfaces.
type Config struct {
	// Provider selects the LLM backend ("gemini" or "openai").
	Provider string
	// GeminiAPIKey is the API key for Google Gemini.
	GeminiAPIKey string
	// OpenAIAPIKey is the API key for the OpenAI provider.
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the OpenAI endpoint (proxies, tests).
	OpenAIBaseURL string
	// Model is the model name; empty selects the provider default.
	Model string
	// Temperature is the default temperature for generation.
	Temperature float32
	// QAContextLimit caps the corpus characters sent with a question.
	QAContextLimit int
	// ExtractCacheSize is the number of extracted files kept in memory.
	ExtractCacheSize int
	// PageSize is the PDF export page format, always rendered landscape.
	PageSize string
	// Port for the REST server.
	Port string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// PromptDir optionally holds .prompt files overriding the built-in ones.
	PromptDir string
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		Provider:         ProviderGemini,
		Temperature:      0.2,
		QAContextLimit:   30000,
		ExtractCacheSize: 64,
		PageSize:         "A3",
		Port:             "8080",
		LogLevel:         "info",
	}
}

// FromEnv loads a .env file if present and overlays environment variables
// on DefaultConfig.
func FromEnv() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := DefaultConfig()
	if v := env("LLM_PROVIDER"); v != "" {
		cfg.Provider = strings.ToLower(v)
	}
	cfg.GeminiAPIKey = env("GEMINI_API_KEY")
	cfg.OpenAIAPIKey = env("OPENAI_API_KEY")
	cfg.OpenAIBaseURL = env("OPENAI_BASE_URL")

	switch cfg.Provider {
	case ProviderOpenAI:
		cfg.Model = env("OPENAI_MODEL")
	default:
		cfg.Model = env("GEMINI_MODEL")
	}

	if v := env("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			cfg.Temperature = float32(f)
		} else {
			slog.Warn("ignoring invalid LLM_TEMPERATURE", "value", v)
		}
	}
	if v := env("QA_CONTEXT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QAContextLimit = n
		} else {
			slog.Warn("ignoring invalid QA_CONTEXT_LIMIT", "value", v)
		}
	}
	if v := env("PDF_PAGE_SIZE"); v != "" {
		cfg.PageSize = v
	}
	if v := env("PORT"); v != "" {
		cfg.Port = v
	}
	if v := env("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	cfg.PromptDir = env("PROMPT_DIR")
	return cfg
}

// APIKey returns the key for the configured provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
