package openrouter

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"vision-navigator/internal/application/port/output"
	"vision-navigator/internal/domain/entity"
)

var _ output.VisionPort = (*VisionAdapter)(nil)

// VisionAdapter sends a prompt and screenshots to an OpenAI compatible chat
// endpoint (OpenRouter by default) and returns the text answer.
type VisionAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	limiter     *rate.Limiter
	logger      output.LoggerPort
}

type Config struct {
	APIKey            string
	Model             string
	BaseURL           string
	Temperature       float32
	MaxTokens         int
	RequestsPerMinute int
	Timeout           time.Duration
	LogRequests       bool
	Logger            output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             model,
		BaseURL:           "https://openrouter.ai/api/v1",
		MaxTokens:         1024,
		RequestsPerMinute: 60,
		Timeout:           90 * time.Second,
	}
}

func NewVisionAdapter(cfg Config) *VisionAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	var transport http.RoundTripper = http.DefaultTransport
	if cfg.LogRequests && cfg.Logger != nil {
		transport = &loggingTransport{base: transport, logger: cfg.Logger}
	}
	config.HTTPClient = &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &VisionAdapter{
		client:      openai.NewClientWithConfig(config),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		limiter:     limiter,
		logger:      cfg.Logger,
	}
}

// Analyze returns ErrContentBlocked when the answer carries no usable text and
// wraps every other failure in ErrTransport. Context errors stay matchable.
func (a *VisionAdapter) Analyze(ctx context.Context, req output.VisionRequest) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("rate limit wait: %w", ctxErr)
			}
			// The limiter refuses up front when the wait would outlast the deadline.
			return "", fmt.Errorf("rate limit wait: %w: %w", context.DeadlineExceeded, err)
		}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    []openai.ChatCompletionMessage{buildMessage(req)},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("vision request: %w", ctxErr)
		}
		return "", fmt.Errorf("%w: %w", output.ErrTransport, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", output.ErrContentBlocked)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", fmt.Errorf("%w: finish reason %s", output.ErrContentBlocked, choice.FinishReason)
	}
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: empty content (finish reason %q)", output.ErrContentBlocked, choice.FinishReason)
	}

	if a.logger != nil {
		a.logger.Debug("Vision response received",
			"model", a.model,
			"images", len(req.Images),
			"duration", time.Since(start).String(),
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens,
			"finish_reason", string(choice.FinishReason),
		)
	}
	return content, nil
}

func buildMessage(req output.VisionRequest) openai.ChatCompletionMessage {
	parts := make([]openai.ChatMessagePart, 0, len(req.Images)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: req.Prompt,
	})
	for _, img := range req.Images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
	return openai.ChatCompletionMessage{
		Role:         openai.ChatMessageRoleUser,
		MultiContent: parts,
	}
}

func dataURL(img entity.Screenshot) string {
	format := strings.ToLower(img.Format)
	switch format {
	case "png", "jpeg", "webp":
	case "jpg", "":
		format = "jpeg"
	}
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

// RoundTrip logs request sizes only; bodies carry base64 screenshots.
func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	t.logger.Debug("HTTP Request",
		"method", req.Method,
		"url", req.URL.String(),
		"content_length", req.ContentLength,
	)

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Warn("HTTP Request failed", "url", req.URL.String(), "error", err)
		return nil, err
	}

	t.logger.Debug("HTTP Response",
		"status", resp.Status,
		"statusCode", resp.StatusCode,
		"duration", time.Since(start).String(),
	)
	return resp, nil
}
