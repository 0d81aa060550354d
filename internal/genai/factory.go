package genai

import (
	"context"
	"log/slog"

	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

// NewResponder creates the AI fallback collaborator from cfg.
//
// The primary provider is tried first and the fallback provider second;
// providers without an API key are skipped. Returns nil, nil when no
// provider is configured.
func NewResponder(ctx context.Context, cfg LLMConfig, m *metrics.Metrics) (*FallbackResponder, error) {
	system := SystemPrompt(cfg)
	var chain []Responder

	add := func(p Provider) {
		if !cfg.HasProvider(p) {
			return
		}
		for _, r := range chain {
			if r.Provider() == p {
				return
			}
		}
		var (
			r   Responder
			err error
		)
		switch p {
		case ProviderGroq:
			r, err = newOpenAIResponder(p, cfg.Groq.APIKey, cfg.Groq.Model, cfg.Groq.BaseURL, system)
		case ProviderGemini:
			r, err = newGeminiResponder(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, system)
		default:
			return
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to create ai responder", "provider", p, "error", err)
			return
		}
		chain = append(chain, r)
	}

	add(cfg.PrimaryProvider)
	add(cfg.FallbackProvider)
	// Any remaining configured provider
	add(ProviderGroq)
	add(ProviderGemini)

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for ai replies")
		return nil, nil
	}

	var fallback Responder
	if len(chain) > 1 {
		fallback = chain[1]
	}

	slog.InfoContext(ctx, "ai responder configured",
		"primary", chain[0].Provider(),
		"chainSize", len(chain))

	return NewFallbackResponder(chain[0], fallback, cfg.RetryConfig, m), nil
}

// FromConfig builds the LLM configuration from the service configuration.
func FromConfig(cfg *config.Config) LLMConfig {
	return LLMConfig{
		PrimaryProvider:  Provider(cfg.LLMPrimaryProvider),
		FallbackProvider: Provider(cfg.LLMFallbackProvider),
		Groq: ProviderConfig{
			APIKey: cfg.GroqAPIKey,
			Model:  cfg.GroqModel,
		},
		Gemini: ProviderConfig{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.GeminiModel,
		},
		RetryConfig: DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
