// Package cli wires configuration, the LLM provider and the analysis
// service into the gapagent command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/duynguyendang/gapagent/internal/cache"
	"github.com/duynguyendang/gapagent/pkg/common/logger"
	"github.com/duynguyendang/gapagent/pkg/config"
	"github.com/duynguyendang/gapagent/pkg/ingest"
	"github.com/duynguyendang/gapagent/pkg/service"
	"github.com/duynguyendang/gapagent/pkg/service/ai"
	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands once flags are parsed.
type app struct {
	version    string
	loadConfig func() config.Config
	newLLM     func(config.Config) ai.Completer
	cfg        config.Config
}

// Execute runs the command tree and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand(version).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// NewRootCommand builds the command tree reading configuration from the
// environment.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&app{version: version, loadConfig: config.FromEnv, newLLM: providerFor})
}

func newRootCommand(a *app) *cobra.Command {
	var (
		provider    string
		model       string
		apiKey      string
		logLevel    string
		promptDir   string
		temperature float32
	)

	root := &cobra.Command{
		Use:           "gapagent",
		Short:         "Research gap analysis over uploaded papers",
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := a.loadConfig()
			flags := cmd.Flags()
			if flags.Changed("provider") {
				cfg.Provider = provider
			}
			if flags.Changed("model") {
				cfg.Model = model
			}
			if flags.Changed("api-key") {
				if cfg.Provider == config.ProviderOpenAI {
					cfg.OpenAIAPIKey = apiKey
				} else {
					cfg.GeminiAPIKey = apiKey
				}
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("prompt-dir") {
				cfg.PromptDir = promptDir
			}
			if flags.Changed("temperature") {
				cfg.Temperature = temperature
			}
			logger.New(cfg.LogLevel)
			a.cfg = cfg
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&provider, "provider", config.ProviderGemini, "LLM provider (gemini or openai)")
	pf.StringVar(&model, "model", "", "model name (provider default when empty)")
	pf.StringVar(&apiKey, "api-key", "", "API key for the selected provider")
	pf.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&promptDir, "prompt-dir", "", "directory of .prompt files overriding the built-in prompts")
	pf.Float32Var(&temperature, "temperature", 0.2, "default sampling temperature")

	root.AddCommand(
		newServeCommand(a),
		newAnalyzeCommand(a),
		newAskCommand(a),
		newMCPCommand(a),
	)
	return root
}

// providerFor selects the LLM adapter named by cfg.Provider.
func providerFor(cfg config.Config) ai.Completer {
	if cfg.Provider == config.ProviderOpenAI {
		return ai.NewOpenAIService(cfg.Model, cfg.OpenAIBaseURL)
	}
	return ai.NewGeminiService(cfg.Model)
}

// analysisService assembles extraction, prompting and the configured provider.
func (a *app) analysisService() (*service.AnalysisService, error) {
	opts := ai.Options{
		Temperature:    a.cfg.Temperature,
		QAContextLimit: a.cfg.QAContextLimit,
	}
	if a.cfg.PromptDir != "" {
		opts.PromptDir = os.DirFS(a.cfg.PromptDir)
	}
	orch, err := ai.NewOrchestrator(a.newLLM(a.cfg), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	extractor := ingest.NewService(cache.New(a.cfg.ExtractCacheSize))
	return service.NewAnalysisService(extractor, orch), nil
}
