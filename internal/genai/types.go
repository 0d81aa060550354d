// Package genai provides the free-form reply collaborator used when no
// dialogue rule matches a message.
//
// Architecture:
//   - Groq: OpenAI-compatible API through github.com/openai/openai-go/v3
//   - Gemini: google.golang.org/genai (official SDK)
//
// A FallbackResponder retries the primary provider with full-jitter backoff
// and then tries the fallback provider.
package genai

import (
	"context"
	"time"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGroq represents Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
	// ProviderGemini represents Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
)

// ProviderEndpoint defines the base URL for OpenAI-compatible providers.
// Gemini is not included as it uses a different SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// IsOpenAICompatible returns true if the provider uses OpenAI-compatible API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior message handed to the model as context.
type Turn struct {
	Role string // RoleUser or RoleAssistant
	Text string
}

// Responder produces a free-form reply to a customer message.
type Responder interface {
	// Reply answers message given the recent history (oldest first) and the
	// customer's display name.
	Reply(ctx context.Context, message string, history []Turn, name string) (string, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any resources held by the responder.
	Close() error
}

// RetryConfig defines retry behavior for LLM API calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 2 (1 initial + 1 retry)
	MaxAttempts int

	// InitialDelay is the base delay before first retry.
	// Default: 500ms
	InitialDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 3s
	MaxDelay time.Duration
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	APIKey string
	Model  string // Empty selects the provider default

	// BaseURL overrides the endpoint of an OpenAI-compatible provider.
	BaseURL string
}

// LLMConfig holds configuration for all LLM providers.
type LLMConfig struct {
	PrimaryProvider  Provider
	FallbackProvider Provider

	Groq   ProviderConfig
	Gemini ProviderConfig

	RetryConfig RetryConfig

	// BusinessName, BusinessPhone and BusinessWebsite are quoted in the
	// system prompt.
	BusinessName    string
	BusinessPhone   string
	BusinessWebsite string
}

// Default models.
const (
	// DefaultGroqModel is production-grade with strong Spanish output.
	DefaultGroqModel = "llama-3.3-70b-versatile"
	// DefaultGeminiModel offers fast inference at low cost.
	DefaultGeminiModel = "gemini-2.5-flash"
)

// Generation parameters shared by all providers.
const (
	replyTemperature = 0.7
	replyMaxTokens   = 500

	// HistoryTurns is how many prior turns are sent to the model.
	HistoryTurns = 10
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// HasAnyProvider returns true if at least one provider is configured.
func (c *LLMConfig) HasAnyProvider() bool {
	return c.Gemini.APIKey != "" || c.Groq.APIKey != ""
}

// HasProvider returns true if the specified provider is configured with an API key.
func (c *LLMConfig) HasProvider(p Provider) bool {
	switch p {
	case ProviderGemini:
		return c.Gemini.APIKey != ""
	case ProviderGroq:
		return c.Groq.APIKey != ""
	default:
		return false
	}
}

// lastTurns returns at most n turns from the end of history.
func lastTurns(history []Turn, n int) []Turn {
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}
