// Package gateway routes authenticated, validated tool calls to the model backend.
package gateway

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/server"
	"github.com/toolgate/toolgate/internal/auth"
	"github.com/toolgate/toolgate/internal/telemetry"
	"github.com/toolgate/toolgate/internal/upstream"
	"github.com/toolgate/toolgate/internal/validate"
	"go.uber.org/zap"
)

// Tool names exposed by the gateway. The set is fixed and small.
const (
	ToolChat         = "chat_with_gpt"
	ToolConversation = "multi_turn_conversation"
	ToolAnalyzeDoc   = "analyze_document_with_gpt"
	ToolTranslate    = "translate_text"
	ToolHealthCheck  = "health_check"
)

// IsExempt reports whether a tool bypasses credential verification.
// health_check must remain reachable with no credential.
func IsExempt(tool string) bool {
	return tool == ToolHealthCheck
}

// CredentialVerifier validates a bearer credential and returns its claims.
type CredentialVerifier interface {
	Verify(ctx context.Context, credential string) (*auth.Claims, error)
}

// UpstreamClient is the model backend the gateway forwards tool calls to.
type UpstreamClient interface {
	CreateChatCompletion(ctx context.Context, req *upstream.ChatRequest) (*upstream.ChatResponse, error)
	ListModels(ctx context.Context) ([]string, error)
}

// ServiceConfig holds the configuration parameters for initializing the Service.
type ServiceConfig struct {
	Verifier  CredentialVerifier
	Upstream  UpstreamClient
	Validator *validate.Validator

	// DefaultModel is used when a tool call does not name a model.
	DefaultModel string
	// MaxTokens is the default output size cap for upstream calls.
	MaxTokens int
	// AllowedModels is reported by health_check as the available model list.
	AllowedModels []string

	// MCPServer and SseMCPServer receive the gateway's tool registrations.
	// Either may be nil (e.g. in tests exercising only the REST surface).
	MCPServer    *server.MCPServer
	SseMCPServer *server.MCPServer

	Metrics telemetry.CustomMetrics
	Logger  *zap.Logger
}

// Service is the tool dispatcher. It runs each inbound call through the
// staged pipeline (authenticate, validate, invoke) and assembles the response
// envelope. Dispatch is stateless across requests: the only shared state is
// the read-mostly signing key set held by the verifier and the immutable
// validation rule set.
type Service struct {
	verifier  CredentialVerifier
	upstream  UpstreamClient
	validator *validate.Validator

	defaultModel  string
	maxTokens     int
	allowedModels []string

	metrics telemetry.CustomMetrics
	logger  *zap.Logger
}

// NewService creates the dispatcher and registers the gateway's tools on the
// configured MCP servers.
func NewService(c *ServiceConfig) (*Service, error) {
	if c.Verifier == nil {
		return nil, errors.New("gateway service requires a credential verifier")
	}
	if c.Upstream == nil {
		return nil, errors.New("gateway service requires an upstream client")
	}
	if c.Validator == nil {
		return nil, errors.New("gateway service requires a validator")
	}
	if c.DefaultModel == "" {
		return nil, errors.New("gateway service requires a default model")
	}

	s := &Service{
		verifier:      c.Verifier,
		upstream:      c.Upstream,
		validator:     c.Validator,
		defaultModel:  c.DefaultModel,
		maxTokens:     c.MaxTokens,
		allowedModels: c.AllowedModels,
		metrics:       c.Metrics,
		logger:        c.Logger,
	}
	if s.maxTokens <= 0 {
		s.maxTokens = 4000
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopCustomMetrics()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	for _, srv := range []*server.MCPServer{c.MCPServer, c.SseMCPServer} {
		if srv != nil {
			s.registerTools(srv)
		}
	}
	return s, nil
}

type credentialContextKey struct{}

// WithCredential attaches the caller's bearer credential to the context so MCP
// tool handlers can authenticate per tool.
func WithCredential(ctx context.Context, credential string) context.Context {
	return context.WithValue(ctx, credentialContextKey{}, credential)
}

// CredentialFromContext returns the bearer credential attached by WithCredential.
func CredentialFromContext(ctx context.Context) string {
	credential, _ := ctx.Value(credentialContextKey{}).(string)
	return credential
}
