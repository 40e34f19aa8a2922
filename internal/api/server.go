// Package api provides the HTTP surface of the toolgate server.
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/toolgate/toolgate/internal/gateway"
	"github.com/toolgate/toolgate/internal/telemetry"
	"github.com/toolgate/toolgate/pkg/types"
	"github.com/toolgate/toolgate/pkg/version"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const (
	V0PathPrefix    = "/v0"
	V0ApiPathPrefix = "/api" + V0PathPrefix
)

// ServerOptions holds the dependencies of the HTTP server.
type ServerOptions struct {
	// Port is the HTTP port to bind the server to
	Port string

	// MCPServer serves the gateway's tools over the streamable http transport.
	MCPServer *server.MCPServer
	// SseMCPServer serves the gateway's tools over the SSE transport.
	// Kept separate so SSE does not interfere with the streamable http server.
	SseMCPServer *server.MCPServer

	GatewayService *gateway.Service
	Verifier       gateway.CredentialVerifier

	OtelProviders *telemetry.Providers
	Logger        *zap.Logger
}

// Server handles the MCP transports and the REST API of the gateway.
type Server struct {
	port   string
	router *gin.Engine

	mcpServer    *server.MCPServer
	sseMcpServer *server.MCPServer

	gatewayService *gateway.Service
	verifier       gateway.CredentialVerifier

	otelProviders *telemetry.Providers
	logger        *zap.Logger
}

// NewServer initializes a new Gin server for the toolgate gateway.
func NewServer(opts *ServerOptions) (*Server, error) {
	s := &Server{
		port:           opts.Port,
		mcpServer:      opts.MCPServer,
		sseMcpServer:   opts.SseMCPServer,
		gatewayService: opts.GatewayService,
		verifier:       opts.Verifier,
		otelProviders:  opts.OtelProviders,
		logger:         opts.Logger,
	}
	if s.gatewayService == nil {
		return nil, fmt.Errorf("gateway service is required")
	}
	if s.verifier == nil {
		return nil, fmt.Errorf("credential verifier is required")
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	s.router = s.setupRouter()
	return s, nil
}

// Start runs the Gin server (blocking call)
func (s *Server) Start() error {
	if err := s.router.Run(":" + s.port); err != nil {
		return fmt.Errorf("failed to run the server: %w", err)
	}
	return nil
}

// setupRouter sets up the Gin router with the MCP transports and API endpoints.
func (s *Server) setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	// if otel is enabled, setup prometheus metrics endpoint
	if s.otelProviders != nil && s.otelProviders.IsEnabled() {
		r.Use(otelgin.Middleware(s.otelProviders.ServiceName()))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health stays reachable with no credential
	r.GET("/health", s.healthCheckHandler())

	r.GET(
		"/metadata",
		func(c *gin.Context) {
			m := &types.ServerMetadata{
				Version: version.GetVersion(),
			}
			c.JSON(http.StatusOK, m)
		},
	)

	// MCP transports. The bearer credential is carried into the request
	// context so tool handlers can authenticate per tool; the credential-exempt
	// health_check tool therefore stays reachable through these endpoints too.
	if s.mcpServer != nil {
		streamableHTTPServer := server.NewStreamableHTTPServer(
			s.mcpServer,
			server.WithHTTPContextFunc(credentialContextFunc),
		)
		r.Any("/mcp", gin.WrapH(streamableHTTPServer))
	}

	if s.sseMcpServer != nil {
		sseServer := server.NewSSEServer(
			s.sseMcpServer,
			server.WithSSEContextFunc(credentialContextFunc),
		)
		r.Any("/sse", gin.WrapH(sseServer.SSEHandler()))
		r.Any("/message", gin.WrapH(sseServer.MessageHandler()))
	}

	// Setup /v0 API endpoints
	apiV0 := r.Group(V0ApiPathPrefix)
	{
		apiV0.GET("/tools", s.requireCredential(), s.listToolsHandler())

		// tool-level auth happens inside the dispatch pipeline so that the
		// exempt tool remains invocable without a credential
		apiV0.POST("/tools/invoke", s.invokeToolHandler())
	}

	return r
}
