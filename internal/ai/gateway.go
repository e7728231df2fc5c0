// Package ai talks to a remote chat-completions endpoint for pattern
// analysis, task decomposition and free-form assistant answers. Every call
// degrades to a deterministic local response when the endpoint is disabled,
// unauthenticated or failing.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nhle/taskpilot/internal/logging"
	"github.com/nhle/taskpilot/internal/model"
)

const (
	defaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultTimeout     = 30 * time.Second
)

// Config holds the gateway settings. APIKey comes from the credential
// package, never from the config file.
type Config struct {
	Enabled     bool
	APIKey      string
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int

	// Timeout bounds every request to the endpoint.
	Timeout time.Duration

	// RateLimit is requests per second; zero means unlimited.
	RateLimit float64
}

// ConfigFrom converts the file configuration plus a resolved API key.
func ConfigFrom(cfg model.AIConfig, apiKey string) Config {
	return Config{
		Enabled:     cfg.Enabled,
		APIKey:      apiKey,
		Endpoint:    cfg.Endpoint,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		RateLimit:   cfg.RateLimit,
	}
}

// APIError is a non-success response from the endpoint.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Gateway sends prompts to the endpoint and falls back locally when needed.
type Gateway struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	history *History
	logger  *zap.Logger
}

// New creates a gateway. Missing settings take their defaults.
func New(cfg Config, logger *zap.Logger) *Gateway {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	return &Gateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		history: NewHistory(defaultHistorySize),
		logger:  logging.OrNop(logger).Named("ai"),
	}
}

// Enabled reports whether requests will reach the remote endpoint.
func (g *Gateway) Enabled() bool {
	return g.cfg.Enabled && g.cfg.APIKey != ""
}

// History returns the assistant conversation kept across AssistantResponse calls.
func (g *Gateway) History() *History {
	return g.history
}

// AnalyzeTaskPatterns asks for a natural-language analysis of the tasks.
// It only fails when the request cannot be built or ctx is already done.
func (g *Gateway) AnalyzeTaskPatterns(ctx context.Context, tasks []model.Task) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(Summarize(tasks))
	if err != nil {
		return "", fmt.Errorf("encoding task summaries: %w", err)
	}

	return g.sendRequest(ctx, []Message{
		{Role: RoleSystem, Content: analysisSystemPrompt},
		{Role: RoleUser, Content: "Analyze the following tasks and describe my productivity " +
			"patterns, bottlenecks and concrete improvements:\n" + string(payload)},
	}), nil
}

// DecomposeTask asks for 4 to 7 ordered subtasks. It never fails: an
// unusable answer yields DefaultSubtasks.
func (g *Gateway) DecomposeTask(ctx context.Context, title, description string) []string {
	user := "Break down this task into smaller subtasks.\nTitle: " + title
	if description != "" {
		user += "\nDescription: " + description
	}

	text := g.sendRequest(ctx, []Message{
		{Role: RoleSystem, Content: decompositionSystemPrompt},
		{Role: RoleUser, Content: user},
	})

	subtasks, ok := ParseSubtasks(text)
	if !ok {
		g.logger.Debug("decomposition not parseable, using defaults")
		return defaultSubtasks()
	}
	return subtasks
}

// AssistantResponse answers a free-form query with up to five recent tasks
// as context. The answer is raw; see CleanResponse for display.
func (g *Gateway) AssistantResponse(ctx context.Context, query string, recent []model.Task) string {
	if len(recent) > maxRecentTasks {
		recent = recent[:maxRecentTasks]
	}

	system := assistantSystemPrompt
	if payload, err := json.Marshal(Summarize(recent)); err == nil && len(recent) > 0 {
		system += "\n\nThe user's recent tasks:\n" + string(payload)
	}

	g.history.Add(RoleUser, query)
	messages := append([]Message{{Role: RoleSystem, Content: system}}, g.history.Messages()...)

	answer := g.sendRequest(ctx, messages)
	g.history.Add(RoleAssistant, answer)
	return answer
}

// sendRequest returns the first completion's content, or a canned response
// when the endpoint is disabled or the call fails in any way.
func (g *Gateway) sendRequest(ctx context.Context, messages []Message) string {
	if !g.Enabled() {
		return fallbackFor(messages)
	}

	text, err := g.callAPI(ctx, messages)
	if err != nil {
		if IsUnauthorized(err) {
			g.logger.Warn("endpoint rejected credentials, using fallback")
		} else {
			g.logger.Warn("endpoint request failed, using fallback", zap.Error(err))
		}
		return fallbackFor(messages)
	}
	return text
}

// callAPI makes a single request to the chat-completions endpoint.
func (g *Gateway) callAPI(ctx context.Context, messages []Message) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter error: %w", err)
	}

	bodyBytes, err := json.Marshal(apiRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling endpoint: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error.Message}
		}
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("response has no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// --- chat-completions API types ---

type apiRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int     `json:"index"`
		Message Message `json:"message"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
