package genai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/hotboat/whatsapp-bot/internal/errors"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const chatResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1730800000,
  "model": "llama-3.3-70b-versatile",
  "choices": [{"index": 0, "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  ¡Hola grumete! ⚓  "}}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 8, "total_tokens": 128}
}`

func TestOpenAIResponder_Reply(t *testing.T) {
	t.Parallel()

	var (
		mu  sync.Mutex
		got chatRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&got)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse))
	}))
	defer srv.Close()

	r, err := newOpenAIResponder(ProviderGroq, "test-key", "", srv.URL+"/", "SYSTEM")
	require.NoError(t, err)

	history := make([]Turn, 0, 12)
	for i := range 12 {
		role := RoleUser
		if i%2 == 1 {
			role = RoleAssistant
		}
		history = append(history, Turn{Role: role, Text: "turn"})
	}

	text, err := r.Reply(context.Background(), "¿tienen estacionamiento?", history, "Ana")
	require.NoError(t, err)
	assert.Equal(t, "¡Hola grumete! ⚓", text)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, DefaultGroqModel, got.Model)
	// system + last 10 turns + current message
	require.Len(t, got.Messages, 12)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "SYSTEM")
	assert.Contains(t, got.Messages[0].Content, "Ana")
	assert.Equal(t, "user", got.Messages[11].Role)
	assert.Equal(t, "¿tienen estacionamiento?", got.Messages[11].Content)
}

func TestOpenAIResponder_StatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("retry-after", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	r, err := newOpenAIResponder(ProviderGroq, "k", "m", srv.URL+"/", "")
	require.NoError(t, err)

	_, err = r.Reply(context.Background(), "hola", nil, "")
	require.Error(t, err)

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, http.StatusTooManyRequests, llmErr.StatusCode)
	assert.Equal(t, time.Second, llmErr.RetryAfter)
	assert.Equal(t, ActionRetry, ClassifyError(err))
}

func TestNewOpenAIResponder_Validation(t *testing.T) {
	t.Parallel()
	_, err := newOpenAIResponder(ProviderGroq, "", "", "", "")
	assert.Error(t, err)
	_, err = newOpenAIResponder(ProviderGemini, "k", "", "", "")
	assert.Error(t, err, "gemini has no OpenAI endpoint")
}

// scripted is a Responder that returns queued errors before succeeding.
type scripted struct {
	provider Provider
	mu       sync.Mutex
	errs     []error
	calls    int
	reply    string
}

func (s *scripted) Reply(context.Context, string, []Turn, string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return "", err
	}
	return s.reply, nil
}

func (s *scripted) Provider() Provider { return s.provider }
func (s *scripted) Close() error       { return nil }

func TestFallbackResponder(t *testing.T) {
	t.Parallel()

	cfg := RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	transient := errors.New("503 service unavailable")
	permanent := &LLMError{Err: errors.New("bad key"), StatusCode: 401}

	t.Run("retry recovers on primary", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		primary := &scripted{provider: ProviderGroq, errs: []error{transient}, reply: "ok"}
		secondary := &scripted{provider: ProviderGemini, reply: "fallback"}

		got, err := NewFallbackResponder(primary, secondary, cfg, m).Reply(context.Background(), "hola", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 2, primary.calls)
		assert.Zero(t, secondary.calls)
		assert.InDelta(t, 1, testutil.ToFloat64(m.AIRequestsTotal.WithLabelValues("groq", "success")), 0)
	})

	t.Run("falls back after retries", func(t *testing.T) {
		t.Parallel()
		primary := &scripted{provider: ProviderGroq, errs: []error{transient, transient}}
		secondary := &scripted{provider: ProviderGemini, reply: "fallback"}

		got, err := NewFallbackResponder(primary, secondary, cfg, nil).Reply(context.Background(), "hola", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "fallback", got)
		assert.Equal(t, 2, primary.calls)
	})

	t.Run("permanent error falls back without retry", func(t *testing.T) {
		t.Parallel()
		primary := &scripted{provider: ProviderGroq, errs: []error{permanent}}
		secondary := &scripted{provider: ProviderGemini, reply: "fallback"}

		got, err := NewFallbackResponder(primary, secondary, cfg, nil).Reply(context.Background(), "hola", nil, "")
		require.NoError(t, err)
		assert.Equal(t, "fallback", got)
		assert.Equal(t, 1, primary.calls)
	})

	t.Run("all providers fail", func(t *testing.T) {
		t.Parallel()
		m := metrics.New(prometheus.NewRegistry())
		primary := &scripted{provider: ProviderGroq, errs: []error{permanent}}
		secondary := &scripted{provider: ProviderGemini, errs: []error{permanent}}

		_, err := NewFallbackResponder(primary, secondary, cfg, m).Reply(context.Background(), "hola", nil, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, domerrors.ErrAIUnavailable)
		assert.Equal(t, domerrors.KindAI, domerrors.Kind(err))
		assert.InDelta(t, 1, testutil.ToFloat64(m.AIRequestsTotal.WithLabelValues("gemini", "auth_error")), 0)
	})

	t.Run("nil responder", func(t *testing.T) {
		t.Parallel()
		var f *FallbackResponder
		_, err := f.Reply(context.Background(), "hola", nil, "")
		assert.ErrorIs(t, err, domerrors.ErrAIUnavailable)
		assert.NoError(t, f.Close())
		assert.Empty(t, f.Provider())
	})
}

func TestNewResponder(t *testing.T) {
	t.Parallel()

	r, err := NewResponder(context.Background(), LLMConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = NewResponder(context.Background(), LLMConfig{
		PrimaryProvider:  ProviderGemini,
		FallbackProvider: ProviderGroq,
		Groq:             ProviderConfig{APIKey: "k"},
		RetryConfig:      DefaultRetryConfig(),
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, ProviderGroq, r.Provider(), "unconfigured primary is skipped")
	assert.Nil(t, r.fallback)
}

func TestSystemPrompt(t *testing.T) {
	t.Parallel()
	p := SystemPrompt(LLMConfig{})
	assert.Contains(t, p, DefaultBusinessName)
	assert.Contains(t, p, "Pucón")
	assert.Contains(t, p, "2 personas: $69,990 por persona")
	assert.Contains(t, p, "7 personas: $29,990 por persona")
	assert.NotContains(t, p, "%!")

	assert.Empty(t, customerLine("  "))
	assert.Contains(t, customerLine("Ana"), "Ana")
}
