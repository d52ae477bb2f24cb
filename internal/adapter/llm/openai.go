// Package llm adapts HTTP reasoning engines to domain.ReasoningEngine and
// wraps them with rate limiting and circuit breaking.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"hedwig/internal/domain"
	"hedwig/internal/infra/config"
	"hedwig/internal/infra/logger"
	"hedwig/internal/infra/metrics"
	"hedwig/internal/infra/tracer"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// Engine is a named reasoning engine.
type Engine interface {
	domain.ReasoningEngine
	Name() string
}

// OpenAIEngine implements Engine for any OpenAI-compatible chat completions API.
// Each Complete call sends a single user message, optionally preceded by a
// system prompt.
type OpenAIEngine struct {
	name         string
	model        string
	apiKey       string
	baseURL      string
	temperature  float64
	maxTokens    int
	systemPrompt string
	client       *http.Client
	logger       *slog.Logger
}

// OpenAIOption configures an OpenAIEngine.
type OpenAIOption func(*OpenAIEngine)

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) OpenAIOption {
	return func(e *OpenAIEngine) { e.systemPrompt = prompt }
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(e *OpenAIEngine) { e.client = c }
}

// NewOpenAIEngine creates an engine from the llm config section.
func NewOpenAIEngine(cfg config.LLMConfig, log *slog.Logger, opts ...OpenAIOption) *OpenAIEngine {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	name := cfg.Provider
	if name == "" {
		name = "openai"
	}

	e := &OpenAIEngine{
		name:        name,
		model:       cfg.Model,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      NewHTTPClient(cfg.Timeout),
		logger:      logger.OrDiscard(log),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Complete implements domain.ReasoningEngine.
func (e *OpenAIEngine) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.complete",
		tracer.StringAttr("llm.provider", e.name),
		tracer.StringAttr("llm.model", e.model),
	)
	defer span.End()

	start := time.Now()
	text, err := e.complete(ctx, prompt)
	status := metrics.OutcomeSuccess
	if err != nil {
		status = metrics.OutcomeError
		tracer.RecordError(span, err)
	} else {
		tracer.SetOK(span)
	}
	metrics.EngineLatency.WithLabelValues(e.name, status).Observe(time.Since(start).Seconds())
	return text, err
}

func (e *OpenAIEngine) complete(ctx context.Context, prompt string) (string, error) {
	msgs := make([]openaiMessage, 0, 2)
	if e.systemPrompt != "" {
		msgs = append(msgs, openaiMessage{Role: domain.RoleSystem, Content: e.systemPrompt})
	}
	msgs = append(msgs, openaiMessage{Role: domain.RoleUser, Content: prompt})

	req := openaiRequest{Model: e.model, Messages: msgs}
	if e.maxTokens > 0 {
		req.MaxTokens = e.maxTokens
	}
	if e.temperature > 0 {
		t := e.temperature
		req.Temperature = &t
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if e.apiKey != "" {
		headers["Authorization"] = "Bearer " + e.apiKey
	}

	respBody, err := doJSONRequest(ctx, e.client, e.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return "", err
	}

	var resp openaiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", domain.ErrProviderError, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domain.ErrProviderError)
	}

	e.logger.Debug("llm completion finished",
		"provider", e.name,
		"model", resp.Model,
		"tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}

// Name implements Engine.
func (e *OpenAIEngine) Name() string { return e.name }

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
	Usage   openaiUsage    `json:"usage"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
