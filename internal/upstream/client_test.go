package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(&ClientConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
	})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(&ClientConfig{BaseURL: "http://127.0.0.1:1"})
	assert.Error(t, err)
}

func TestCreateChatCompletion(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		require.NotNil(t, req.Temperature)
		assert.InDelta(t, 0.3, *req.Temperature, 1e-9)
		assert.Equal(t, 500, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-2024-08-06",
			"choices": [{"message": {"role": "assistant", "content": "bonjour"}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`))
	})

	temp := 0.3
	resp, err := c.CreateChatCompletion(context.Background(), &ChatRequest{
		Model: "gpt-4o",
		Messages: []ChatMessage{
			{Role: "system", Content: "translate to French"},
			{Role: "user", Content: "hello"},
		},
		Temperature: &temp,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, "bonjour", resp.Content)
	assert.Equal(t, "gpt-4o-2024-08-06", resp.Model)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestCreateChatCompletionErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		status      int
		body        string
		wantKind    ErrorKind
		wantMessage string
	}{
		{
			name:        "rate limited by status",
			status:      http.StatusTooManyRequests,
			body:        `{"error": {"message": "Rate limit reached for org-secret on tokens", "type": "tokens"}}`,
			wantKind:    KindRateLimited,
			wantMessage: "model backend rate limit exceeded",
		},
		{
			name:        "quota exhaustion reported as 403",
			status:      http.StatusForbidden,
			body:        `{"error": {"message": "You exceeded your current quota", "type": "insufficient_quota"}}`,
			wantKind:    KindRateLimited,
			wantMessage: "model backend rate limit exceeded",
		},
		{
			name:        "server error",
			status:      http.StatusInternalServerError,
			body:        `{"error": {"message": "internal stack trace: frame at 0xdeadbeef", "type": "server_error"}}`,
			wantKind:    KindBackendFailure,
			wantMessage: "model backend returned status 500",
		},
		{
			name:        "bad gateway with non-JSON body",
			status:      http.StatusBadGateway,
			body:        "<html>upstream connect error</html>",
			wantKind:    KindBackendFailure,
			wantMessage: "model backend returned status 502",
		},
		{
			name:        "empty choices",
			status:      http.StatusOK,
			body:        `{"model": "gpt-4o", "choices": []}`,
			wantKind:    KindBackendFailure,
			wantMessage: "model backend returned no completion",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.CreateChatCompletion(context.Background(), &ChatRequest{
				Model:    "gpt-4o",
				Messages: []ChatMessage{{Role: "user", Content: "hi"}},
			})

			var upErr *Error
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.wantKind, upErr.Kind)
			assert.Equal(t, tt.wantMessage, upErr.Message)
			// backend payload details never leak into the message
			assert.NotContains(t, upErr.Message, "org-secret")
			assert.NotContains(t, upErr.Message, "0xdeadbeef")
		})
	}
}

func TestCreateChatCompletionTimeout(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	t.Cleanup(func() {
		close(blocked)
		srv.Close()
	})

	c, err := NewClient(&ClientConfig{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		CallTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = c.CreateChatCompletion(context.Background(), &ChatRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Less(t, time.Since(start), 5*time.Second)

	var upErr *Error
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, KindTimeout, upErr.Kind)
	assert.Equal(t, "model backend request timed out", upErr.Message)
}

func TestListModels(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/models", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"data": [{"id": "gpt-4o"}, {"id": "gpt-4o-mini"}]}`))
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)
}
