package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolgate/toolgate/pkg/types"
)

func TestListTools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v0/tools", r.URL.Path)
		assert.Equal(t, "Bearer my-credential", r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`[
			{"name": "chat_with_gpt", "description": "Send a message to the model"},
			{"name": "health_check", "description": "Check gateway health"}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "my-credential", nil)
	tools, err := c.ListTools()
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "chat_with_gpt", tools[0].Name)
}

func TestListToolsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"kind": "unauthorized", "message": "a valid bearer credential is required"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", nil)
	_, err := c.ListTools()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestInvokeTool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v0/tools/invoke", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req types.ToolInvokeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat_with_gpt", req.Tool)
		assert.Equal(t, "hi", req.Parameters["user_message"])

		_, _ = w.Write([]byte(`{
			"status": "success",
			"tool": "chat_with_gpt",
			"request_id": "req-1",
			"payload": {"response": "hello"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "my-credential", nil)
	result, err := c.InvokeTool("chat_with_gpt", map[string]any{"user_message": "hi"})
	require.NoError(t, err)
	assert.False(t, result.IsError())
	assert.Equal(t, "req-1", result.RequestID)
	assert.Equal(t, "hello", result.Payload["response"])
}

func TestInvokeToolReturnsErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{
			"status": "error",
			"tool": "chat_with_gpt",
			"error": {"kind": "unauthorized", "message": "credential has expired"}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale-credential", nil)
	result, err := c.InvokeTool("chat_with_gpt", map[string]any{"user_message": "hi"})
	// the envelope is returned even for failed invocations
	require.NoError(t, err)
	require.True(t, result.IsError())
	assert.Equal(t, types.ErrorKindUnauthorized, result.Error.Kind)
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		// no credential configured, none sent
		assert.Empty(t, r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{
			"status": "ok",
			"upstream_reachable": true,
			"default_model": "gpt-4o",
			"available_models": ["gpt-4o", "gpt-4o-mini"]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "", nil)
	health, err := c.Health()
	require.NoError(t, err)
	assert.Equal(t, types.HealthStatusOK, health.Status)
	assert.True(t, health.UpstreamReachable)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, health.AvailableModels)
}
