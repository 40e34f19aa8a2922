// Package upstream talks to the OpenAI-compatible model backend.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// BaseURLDefault is the OpenAI API base URL.
	BaseURLDefault = "https://api.openai.com/v1"

	// CallTimeoutDefault bounds a single chat completion call.
	CallTimeoutDefault = 60 * time.Second
)

// ChatMessage is a single turn sent to the model backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature *float64
	MaxTokens   int
}

// Usage reports the token consumption of a completed call.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the content and usage of a completed chat call.
type ChatResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// ClientConfig holds the configuration parameters for initializing a Client.
type ClientConfig struct {
	// BaseURL of the model backend API. Defaults to the OpenAI API.
	BaseURL string
	// APIKey is the bearer key for the backend. Required.
	APIKey string
	// CallTimeout bounds each outbound call. Defaults to CallTimeoutDefault.
	CallTimeout time.Duration

	HTTPClient *http.Client
}

// Client is a thin adapter over the model backend's HTTP API.
// It retains no state across calls; each invocation is one outbound request.
type Client struct {
	baseURL     string
	apiKey      string
	callTimeout time.Duration
	httpClient  *http.Client
}

// NewClient creates a model backend client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("upstream client requires an API key")
	}
	c := &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callTimeout: cfg.CallTimeout,
		httpClient:  cfg.HTTPClient,
	}
	if c.baseURL == "" {
		c.baseURL = BaseURLDefault
	}
	if c.callTimeout <= 0 {
		c.callTimeout = CallTimeoutDefault
	}
	if c.httpClient == nil {
		c.httpClient = http.DefaultClient
	}
	return c, nil
}

// chatCompletionRequest is the wire format of the chat completions endpoint.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}

type apiErrorResponse struct {
	Error struct {
		Type string `json:"type"`
		Code string `json:"code"`
	} `json:"error"`
}

// CreateChatCompletion sends one chat completion request to the backend.
// Failures are reported as *Error with a classification and a sanitized summary.
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	body, err := json.Marshal(&chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp)
	}

	var completion chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return nil, NewError(KindBackendFailure, "model backend returned an unreadable response", err)
	}
	if len(completion.Choices) == 0 {
		return nil, NewError(KindBackendFailure, "model backend returned no completion", nil)
	}

	return &ChatResponse{
		Content: completion.Choices[0].Message.Content,
		Model:   completion.Model,
		Usage:   completion.Usage,
	}, nil
}

// ListModels returns the model identifiers available to the configured API key.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list models request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatusError(resp)
	}

	var parsed struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, NewError(KindBackendFailure, "model backend returned an unreadable response", err)
	}

	models := make([]string, len(parsed.Data))
	for i, m := range parsed.Data {
		models[i] = m.ID
	}
	return models, nil
}

// classifyTransportError maps network-level failures onto the upstream taxonomy.
// The raw error text never reaches the caller-facing message.
func classifyTransportError(err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return NewError(KindTimeout, "model backend request timed out", err)
	}
	return NewError(KindBackendFailure, "failed to reach the model backend", err)
}

// classifyStatusError maps a non-200 backend response onto the upstream taxonomy.
// Only the HTTP status and the backend's error type/code are inspected; the raw
// payload is discarded.
func classifyStatusError(resp *http.Response) *Error {
	// bounded read: the body is only parsed for classification
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr apiErrorResponse
	_ = json.Unmarshal(body, &apiErr)

	if resp.StatusCode == http.StatusTooManyRequests ||
		apiErr.Error.Type == "insufficient_quota" || apiErr.Error.Code == "insufficient_quota" {
		return NewError(KindRateLimited, "model backend rate limit exceeded", nil)
	}

	return NewError(
		KindBackendFailure,
		fmt.Sprintf("model backend returned status %d", resp.StatusCode),
		nil,
	)
}
