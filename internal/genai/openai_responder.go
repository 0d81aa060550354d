package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// openaiResponder answers through an OpenAI-compatible chat completions API.
type openaiResponder struct {
	client     openai.Client
	model      string
	systemInst string
	provider   Provider
}

// newOpenAIResponder creates a responder for an OpenAI-compatible provider.
// baseURL overrides the ProviderEndpoint entry when set.
func newOpenAIResponder(provider Provider, apiKey, model, baseURL, systemInst string) (*openaiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is required", provider)
	}
	if baseURL == "" {
		var ok bool
		baseURL, ok = ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}
	if model == "" {
		model = DefaultGroqModel
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // FallbackResponder owns retries
	)

	return &openaiResponder{
		client:     client,
		model:      model,
		systemInst: systemInst,
		provider:   provider,
	}, nil
}

// Reply implements Responder.
func (r *openaiResponder) Reply(ctx context.Context, message string, history []Turn, name string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, HistoryTurns+2)
	messages = append(messages, openai.SystemMessage(r.systemInst+customerLine(name)))
	for _, t := range lastTurns(history, HistoryTurns) {
		if t.Role == RoleAssistant {
			messages = append(messages, openai.AssistantMessage(t.Text))
		} else {
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	messages = append(messages, openai.UserMessage(message))

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       r.model,
		Messages:    messages,
		Temperature: openai.Float(replyTemperature),
		MaxTokens:   openai.Int(replyMaxTokens),
	})
	if err != nil {
		return "", r.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", WrapError(errors.New("empty response: no choices"), r.provider, 0)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(errors.New("empty response: no content"), r.provider, 0)
	}

	slog.DebugContext(ctx, "ai reply generated",
		"provider", r.provider,
		"model", r.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return text, nil
}

func (r *openaiResponder) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		wrapped := &LLMError{Err: err, StatusCode: apiErr.StatusCode, Provider: r.provider}
		if apiErr.Response != nil {
			wrapped.RetryAfter = ParseRetryAfter(apiErr.Response.Header)
		}
		return wrapped
	}
	return WrapError(err, r.provider, 0)
}

// Provider implements Responder.
func (r *openaiResponder) Provider() Provider {
	return r.provider
}

// Close implements Responder. The HTTP client needs no cleanup.
func (r *openaiResponder) Close() error {
	return nil
}
