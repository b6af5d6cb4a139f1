package openrouter

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
	"vision-navigator/internal/infrastructure/logger"
)

const completionTemplate = `{
  "id": "gen-1",
  "object": "chat.completion",
  "created": 1760000000,
  "model": "vision-model",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": %CONTENT%}, "finish_reason": %REASON%}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func completion(content, reason string) string {
	return strings.NewReplacer("%CONTENT%", content, "%REASON%", reason).Replace(completionTemplate)
}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *VisionAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig("test-key", "vision-model")
	cfg.BaseURL = srv.URL
	cfg.RequestsPerMinute = 0
	cfg.LogRequests = true
	cfg.Logger = logger.NewNop()
	return NewVisionAdapter(cfg)
}

func TestAnalyze_SendsPromptAndImages(t *testing.T) {
	var body string
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(`"{\"action\":\"complete\"}"`, `"stop"`))
	})

	shot := entity.Screenshot{Data: []byte{0xff, 0xd8, 0xff}, Format: "jpeg", Width: 10, Height: 10}
	got, err := adapter.Analyze(context.Background(), output.VisionRequest{
		Prompt: "what next?",
		Images: []entity.Screenshot{shot},
	})

	require.NoError(t, err)
	assert.Equal(t, `{"action":"complete"}`, got)
	assert.Contains(t, body, `"model":"vision-model"`)
	assert.Contains(t, body, "what next?")
	assert.Contains(t, body, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString(shot.Data))
}

func TestAnalyze_ContentFilter(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(`""`, `"content_filter"`))
	})

	_, err := adapter.Analyze(context.Background(), output.VisionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, output.ErrContentBlocked)
}

func TestAnalyze_EmptyContent(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(`"   "`, `"stop"`))
	})

	_, err := adapter.Analyze(context.Background(), output.VisionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, output.ErrContentBlocked)
}

func TestAnalyze_NoChoices(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"gen-2","object":"chat.completion","choices":[]}`)
	})

	_, err := adapter.Analyze(context.Background(), output.VisionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, output.ErrContentBlocked)
}

func TestAnalyze_ServerErrorIsTransport(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `{"error":{"message":"upstream down","type":"server_error"}}`)
	})

	_, err := adapter.Analyze(context.Background(), output.VisionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, output.ErrTransport)
	assert.NotErrorIs(t, err, output.ErrContentBlocked)
}

func TestAnalyze_CancelledContext(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := adapter.Analyze(ctx, output.VisionRequest{Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyze_RateLimitPastDeadline(t *testing.T) {
	var hits atomic.Int32
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completion(`"ok"`, `"stop"`))
	})
	adapter.limiter = rate.NewLimiter(rate.Every(time.Minute), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := adapter.Analyze(ctx, output.VisionRequest{Prompt: "first"})
	require.NoError(t, err)

	_, err = adapter.Analyze(ctx, output.VisionRequest{Prompt: "second"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, output.ErrTransport)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDataURL(t *testing.T) {
	assert.True(t, strings.HasPrefix(dataURL(entity.Screenshot{Format: "PNG"}), "data:image/png;base64,"))
	assert.True(t, strings.HasPrefix(dataURL(entity.Screenshot{Format: "jpg"}), "data:image/jpeg;base64,"))
	assert.True(t, strings.HasPrefix(dataURL(entity.Screenshot{}), "data:image/jpeg;base64,"))
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage(output.VisionRequest{
		Prompt: "compare",
		Images: []entity.Screenshot{{Format: "png"}, {Format: "png"}},
	})

	assert.Equal(t, openai.ChatMessageRoleUser, msg.Role)
	assert.Empty(t, msg.Content)
	require.Len(t, msg.MultiContent, 3)
	assert.Equal(t, openai.ChatMessagePartTypeText, msg.MultiContent[0].Type)
	assert.Equal(t, "compare", msg.MultiContent[0].Text)
	assert.Equal(t, openai.ChatMessagePartTypeImageURL, msg.MultiContent[2].Type)
}
