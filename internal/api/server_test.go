package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toolgate/toolgate/internal/auth"
	"github.com/toolgate/toolgate/internal/gateway"
	"github.com/toolgate/toolgate/internal/upstream"
	"github.com/toolgate/toolgate/internal/validate"
	"github.com/toolgate/toolgate/pkg/types"
)

const testCredential = "Bearer test-credential"

type fakeVerifier struct{}

func (fakeVerifier) Verify(ctx context.Context, credential string) (*auth.Claims, error) {
	if credential != testCredential {
		return nil, &auth.Error{Kind: auth.KindMalformedCredential}
	}
	return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"}}, nil
}

type fakeUpstream struct {
	chatErr error
}

func (f *fakeUpstream) CreateChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error) {
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &upstream.ChatResponse{Content: "hello", Model: req.Model}, nil
}

func (f *fakeUpstream) ListModels(ctx context.Context) ([]string, error) {
	return []string{"gpt-4o"}, nil
}

func newTestServer(t *testing.T, up *fakeUpstream) *Server {
	t.Helper()

	verifier := fakeVerifier{}
	svc, err := gateway.NewService(&gateway.ServiceConfig{
		Verifier:      verifier,
		Upstream:      up,
		Validator:     validate.NewValidator(validate.NewRuleSet([]string{"gpt-4o"}), false),
		DefaultModel:  "gpt-4o",
		AllowedModels: []string{"gpt-4o"},
	})
	require.NoError(t, err)

	s, err := NewServer(&ServerOptions{
		Port:           "8080",
		GatewayService: svc,
		Verifier:       verifier,
	})
	require.NoError(t, err)
	return s
}

func doRequest(s *Server, method, path, credential string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if credential != "" {
		req.Header.Set("Authorization", credential)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestNewServerRequiredOptions(t *testing.T) {
	_, err := NewServer(&ServerOptions{Port: "8080", Verifier: fakeVerifier{}})
	assert.Error(t, err)

	s := newTestServer(t, &fakeUpstream{})
	_, err = NewServer(&ServerOptions{Port: "8080", GatewayService: s.gatewayService})
	assert.Error(t, err)
}

func TestHealthEndpointNeedsNoCredential(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := doRequest(s, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var result types.HealthCheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, types.HealthStatusOK, result.Status)
	assert.True(t, result.UpstreamReachable)
	assert.Equal(t, "gpt-4o", result.DefaultModel)
}

func TestMetadataEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := doRequest(s, http.MethodGet, "/metadata", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var m types.ServerMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.NotEmpty(t, m.Version)
}

func TestListToolsRequiresCredential(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := doRequest(s, http.MethodGet, "/api/v0/tools", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodGet, "/api/v0/tools", testCredential, "")
	require.Equal(t, http.StatusOK, w.Code)

	var tools []types.Tool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tools))
	assert.Len(t, tools, 5)
}

func TestInvokeTool(t *testing.T) {
	tests := []struct {
		name       string
		upstream   *fakeUpstream
		credential string
		body       string
		wantStatus int
		wantKind   types.ErrorKind
	}{
		{
			name:       "successful chat call",
			upstream:   &fakeUpstream{},
			credential: testCredential,
			body:       `{"tool": "chat_with_gpt", "parameters": {"user_message": "hi"}}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "health check without credential",
			upstream:   &fakeUpstream{},
			credential: "",
			body:       `{"tool": "health_check"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing credential",
			upstream:   &fakeUpstream{},
			credential: "",
			body:       `{"tool": "chat_with_gpt", "parameters": {"user_message": "hi"}}`,
			wantStatus: http.StatusUnauthorized,
			wantKind:   types.ErrorKindUnauthorized,
		},
		{
			name:       "invalid parameters",
			upstream:   &fakeUpstream{},
			credential: testCredential,
			body:       `{"tool": "chat_with_gpt", "parameters": {}}`,
			wantStatus: http.StatusBadRequest,
			wantKind:   types.ErrorKindInvalidInput,
		},
		{
			name: "upstream rate limited",
			upstream: &fakeUpstream{
				chatErr: upstream.NewError(upstream.KindRateLimited, "model backend rate limit exceeded", nil),
			},
			credential: testCredential,
			body:       `{"tool": "chat_with_gpt", "parameters": {"user_message": "hi"}}`,
			wantStatus: http.StatusTooManyRequests,
			wantKind:   types.ErrorKindRateLimited,
		},
		{
			name: "upstream timeout",
			upstream: &fakeUpstream{
				chatErr: upstream.NewError(upstream.KindTimeout, "model backend request timed out", nil),
			},
			credential: testCredential,
			body:       `{"tool": "chat_with_gpt", "parameters": {"user_message": "hi"}}`,
			wantStatus: http.StatusBadGateway,
			wantKind:   types.ErrorKindUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.upstream)

			w := doRequest(s, http.MethodPost, "/api/v0/tools/invoke", tt.credential, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)

			var result types.ToolInvokeResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
			if tt.wantKind == "" {
				assert.False(t, result.IsError())
				assert.NotEmpty(t, result.RequestID)
			} else {
				require.NotNil(t, result.Error)
				assert.Equal(t, tt.wantKind, result.Error.Kind)
			}
		})
	}
}

func TestInvokeToolRejectsBadBody(t *testing.T) {
	s := newTestServer(t, &fakeUpstream{})

	w := doRequest(s, http.MethodPost, "/api/v0/tools/invoke", testCredential, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodPost, "/api/v0/tools/invoke", testCredential, `{"parameters": {}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
