package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// geminiResponder answers through the Gemini API.
type geminiResponder struct {
	client     *genai.Client
	model      string
	systemInst string
}

func newGeminiResponder(ctx context.Context, apiKey, model, systemInst string) (*geminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: api key is required", ProviderGemini)
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiResponder{
		client:     client,
		model:      model,
		systemInst: systemInst,
	}, nil
}

// Reply implements Responder.
func (r *geminiResponder) Reply(ctx context.Context, message string, history []Turn, name string) (string, error) {
	contents := make([]*genai.Content, 0, HistoryTurns+1)
	for _, t := range lastTurns(history, HistoryTurns) {
		var role genai.Role = genai.RoleUser
		if t.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	resp, err := r.client.Models.GenerateContent(ctx, r.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(r.systemInst+customerLine(name), genai.RoleUser),
		Temperature:       genai.Ptr[float32](replyTemperature),
		MaxOutputTokens:   replyMaxTokens,
	})
	if err != nil {
		return "", WrapError(err, ProviderGemini, 0)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", WrapError(errors.New("empty response: no candidates"), ProviderGemini, 0)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", WrapError(errors.New("empty response: no content"), ProviderGemini, 0)
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "ai reply generated",
			"provider", ProviderGemini,
			"model", r.model,
			"prompt_tokens", resp.UsageMetadata.PromptTokenCount,
			"completion_tokens", resp.UsageMetadata.CandidatesTokenCount)
	}

	return text, nil
}

// Provider implements Responder.
func (r *geminiResponder) Provider() Provider {
	return ProviderGemini
}

// Close implements Responder.
func (r *geminiResponder) Close() error {
	return nil
}
