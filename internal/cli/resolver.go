package cli

import (
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/aretw0/persona/internal/config"
	anthropicadapter "github.com/aretw0/persona/pkg/adapters/anthropic"
	"github.com/aretw0/persona/pkg/adapters/keyword"
	openaiadapter "github.com/aretw0/persona/pkg/adapters/openai"
	"github.com/aretw0/persona/pkg/ports"
	"github.com/aretw0/persona/pkg/prompt"
	"github.com/aretw0/persona/pkg/resilience"
)

// Prompts returns the built-in prompts overridden by the files of cfg.Dir.
func Prompts(cfg config.PromptsConfig) (*prompt.Store, error) {
	store := prompt.NewDefault()
	if cfg.Dir == "" {
		return store, nil
	}
	if err := store.LoadDir(cfg.Dir); err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}
	return store, nil
}

// NewResolver selects the intent resolver for cfg.Provider. Remote models
// are wrapped with retry, timeout and circuit breaking.
func NewResolver(cfg config.LLMConfig, prompts *prompt.Store, logger *slog.Logger) (ports.IntentResolver, error) {
	var next ports.IntentResolver
	switch cfg.Provider {
	case config.ProviderKeyword, "":
		return keyword.New(keyword.WithLogger(logger)), nil
	case config.ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider %q", cfg.Provider)
		}
		next = openaiadapter.New(func(o *openaiadapter.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Prompts = prompts
			o.Logger = logger
		})
	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", cfg.Provider)
		}
		next = anthropicadapter.New(func(o *anthropicadapter.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Prompts = prompts
			o.Logger = logger
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	rc := resilience.DefaultConfig()
	rc.RetryAttempts = cfg.RetryAttempts
	rc.BreakerThreshold = cfg.BreakerThreshold
	rc.Timeout = cfg.Timeout
	return resilience.Wrap(next, rc, resilience.WithLogger(logger)), nil
}
