package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nahidhasan98/review-relay/internal/logger"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIEngine calls an OpenAI-compatible /v1/chat/completions endpoint.
// Mistral, OpenAI and most self-hosted gateways speak this protocol.
type OpenAIEngine struct {
	httpClient *http.Client
	cfg        OpenAIConfig
	log        *logger.Logger
}

// NewOpenAIEngine creates an engine for cfg
func NewOpenAIEngine(cfg OpenAIConfig, log *logger.Logger) *OpenAIEngine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	return &OpenAIEngine{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		log:        log,
	}
}

// ProviderError is returned when the completions API responds with an error
type ProviderError struct {
	StatusCode int

	// Type is the provider-specific error type, e.g. "invalid_request_error"
	Type string

	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("review: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("review: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited returns true for HTTP 429
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Review implements Engine
func (e *OpenAIEngine) Review(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       e.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("review: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("review: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	e.log.Debugf("Requesting review from %s (model %s, %d prompt bytes)", e.cfg.BaseURL, e.cfg.Model, len(prompt))

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("review: sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", readProviderError(resp)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("review: decoding response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("review: response has no choices")
	}

	choice := decoded.Choices[0]
	if choice.FinishReason == "length" {
		e.log.Warn("Review was truncated at the token limit")
	}
	e.log.Debugf("Review received (%d prompt tokens, %d completion tokens)",
		decoded.Usage.PromptTokens, decoded.Usage.CompletionTokens)

	return choice.Message.Content, nil
}

func (e *OpenAIEngine) endpoint() string {
	return strings.TrimSuffix(e.cfg.BaseURL, "/") + "/v1/chat/completions"
}

// readProviderError decodes both the OpenAI style {"error": {...}} body
// and the flat {"type", "message"} body Mistral returns.
func readProviderError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var wire struct {
		Error *struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &wire) == nil {
		if wire.Error != nil && wire.Error.Message != "" {
			return &ProviderError{StatusCode: resp.StatusCode, Type: wire.Error.Type, Message: wire.Error.Message}
		}
		if wire.Message != "" {
			return &ProviderError{StatusCode: resp.StatusCode, Type: wire.Type, Message: wire.Message}
		}
	}

	return &ProviderError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
