package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/toolgate/toolgate/internal/api"
	"github.com/toolgate/toolgate/internal/auth"
	"github.com/toolgate/toolgate/internal/config"
	"github.com/toolgate/toolgate/internal/gateway"
	"github.com/toolgate/toolgate/internal/telemetry"
	"github.com/toolgate/toolgate/internal/upstream"
	"github.com/toolgate/toolgate/internal/validate"
	"github.com/toolgate/toolgate/pkg/version"
	"go.uber.org/zap"
)

const (
	// TelemetryEnabledEnvVar toggles otel metrics collection.
	TelemetryEnabledEnvVar = "OTEL_ENABLED"
)

var startServerCmdBindPort string

var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the ToolGate server",
	Long: "Starts the ToolGate HTTP server: the MCP transports (/mcp, /sse) and the REST API.\n\n" +
		"Required environment variables:\n" +
		"  " + config.AuthAudienceEnvVar + "    audience verified credentials must carry\n" +
		"  " + config.AuthIssuerEnvVar + "      trusted credential issuer URL\n" +
		"  " + config.UpstreamAPIKeyEnvVar + "  API key for the model backend (or " +
		config.UpstreamAPIKeyEnvVar + "_FILE)\n\n" +
		"The signing key set is fetched from " + config.AuthJWKSURLEnvVar + " if set, otherwise\n" +
		"from the issuer's /.well-known/jwks.json location.\n" +
		"An optional YAML config file (" + config.ConfigFileEnvVar + ", default " +
		config.ConfigFileDefault + ") can override\n" +
		"the model allowlist and validation strictness.",
	RunE: runStartServer,
	Annotations: map[string]string{
		"group": string(subCommandGroupBasic),
		"order": "1",
	},
}

func init() {
	startServerCmd.Flags().StringVar(
		&startServerCmdBindPort,
		"port",
		"",
		fmt.Sprintf("port to bind the HTTP server to (overrides env var %s)", config.BindPortEnvVar),
	)

	rootCmd.AddCommand(startServerCmd)
}

// isTelemetryEnabled returns true if telemetry should be enabled.
// Telemetry is off by default and opt-in via the environment.
func isTelemetryEnabled() (bool, error) {
	raw := strings.ToLower(os.Getenv(TelemetryEnabledEnvVar))
	switch raw {
	case "":
		return false, nil
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf(
			"invalid value for %s environment variable: '%s', valid values are 'true' or 'false'",
			TelemetryEnabledEnvVar, raw,
		)
	}
}

func runStartServer(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load(afero.NewOsFs())
	if err != nil {
		return err
	}
	if startServerCmdBindPort != "" {
		cfg.BindPort = startServerCmdBindPort
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	telemetryEnabled, err := isTelemetryEnabled()
	if err != nil {
		return err
	}
	otelConfig := &telemetry.Config{
		ServiceName: "toolgate",
		Enabled:     telemetryEnabled,
	}
	otelProviders, err := telemetry.Init(cmd.Context(), otelConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize Opentelemetry providers: %v", err)
	}
	defer func() {
		if err := otelProviders.Shutdown(cmd.Context()); err != nil {
			cmd.Printf("Warning: failed to shutdown opentelemetry providers: %v\n", err)
		}
	}()

	// By default, a no-op metrics implementation is used so the rest of the
	// code records metrics without checking whether telemetry is enabled.
	metrics := telemetry.NewNoopCustomMetrics()
	if otelProviders.IsEnabled() {
		metrics, err = telemetry.NewOtelCustomMetrics(otelProviders.Meter)
		if err != nil {
			return fmt.Errorf("failed to create gateway metrics: %v", err)
		}
	}

	keySet, err := auth.NewKeySet(&auth.KeySetConfig{
		URL:     cfg.JWKSURL,
		Metrics: metrics,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create signing key set: %v", err)
	}

	verifier, err := auth.NewVerifier(&auth.VerifierConfig{
		KeySet:     keySet,
		Audience:   cfg.Audience,
		Issuer:     cfg.Issuer,
		Algorithms: cfg.Algorithms,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create credential verifier: %v", err)
	}

	upstreamClient, err := upstream.NewClient(&upstream.ClientConfig{
		BaseURL:     cfg.UpstreamBaseURL,
		APIKey:      cfg.UpstreamAPIKey,
		CallTimeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create upstream client: %v", err)
	}

	validator := validate.NewValidator(validate.NewRuleSet(cfg.AllowedModels), cfg.StrictParams)

	// create the MCP servers serving the gateway's tools
	mcpServer := server.NewMCPServer(
		"ToolGate MCP Server",
		version.GetVersion(),
		server.WithToolCapabilities(true),
	)
	sseMcpServer := server.NewMCPServer(
		"ToolGate MCP Server for SSE transport",
		version.GetVersion(),
		server.WithToolCapabilities(true),
	)

	gatewayService, err := gateway.NewService(&gateway.ServiceConfig{
		Verifier:      verifier,
		Upstream:      upstreamClient,
		Validator:     validator,
		DefaultModel:  cfg.DefaultModel,
		MaxTokens:     cfg.MaxTokens,
		AllowedModels: cfg.AllowedModels,
		MCPServer:     mcpServer,
		SseMCPServer:  sseMcpServer,
		Metrics:       metrics,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create gateway service: %v", err)
	}

	opts := &api.ServerOptions{
		Port:           cfg.BindPort,
		MCPServer:      mcpServer,
		SseMCPServer:   sseMcpServer,
		GatewayService: gatewayService,
		Verifier:       verifier,
		OtelProviders:  otelProviders,
		Logger:         logger,
	}
	s, err := api.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create the API server: %v", err)
	}

	logger.Info("starting toolgate server",
		zap.String("port", cfg.BindPort),
		zap.String("issuer", cfg.Issuer),
		zap.String("default_model", cfg.DefaultModel),
		zap.Bool("telemetry", otelProviders.IsEnabled()),
	)

	return s.Start()
}
