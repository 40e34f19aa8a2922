// Package config loads the toolgate server configuration.
package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	BindPortEnvVar  = "PORT"
	BindPortDefault = "8080"

	AuthAudienceEnvVar   = "AUTH_AUDIENCE"
	AuthIssuerEnvVar     = "AUTH_ISSUER"
	AuthJWKSURLEnvVar    = "AUTH_JWKS_URL"
	AuthAlgorithmsEnvVar = "AUTH_ALGORITHMS"

	UpstreamAPIKeyEnvVar  = "OPENAI_API_KEY"
	UpstreamBaseURLEnvVar = "OPENAI_BASE_URL"
	DefaultModelEnvVar    = "OPENAI_MODEL"
	MaxTokensEnvVar       = "OPENAI_MAX_TOKENS"

	// ConfigFileEnvVar points to an optional YAML file with gateway settings.
	ConfigFileEnvVar  = "TOOLGATE_CONFIG"
	ConfigFileDefault = "toolgate.yaml"
)

const (
	defaultModel     = "gpt-4o"
	defaultMaxTokens = 4000
)

// defaultAllowedModels is the model allowlist used when the config file does
// not override it.
var defaultAllowedModels = []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"}

// Config holds the full server configuration.
type Config struct {
	BindPort string

	// Credential verification settings. Audience and Issuer are required:
	// the gateway fails closed rather than run unauthenticated.
	Audience   string
	Issuer     string
	JWKSURL    string
	Algorithms []string

	// Upstream model backend settings.
	UpstreamAPIKey  string
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	DefaultModel    string
	MaxTokens       int

	// AllowedModels is the explicit allowlist of upstream model names.
	AllowedModels []string
	// StrictParams rejects undeclared tool parameters instead of ignoring them.
	StrictParams bool
}

// fileConfig is the YAML shape of the optional gateway config file.
type fileConfig struct {
	AllowedModels      []string `yaml:"allowed_models"`
	StrictParams       bool     `yaml:"strict_params"`
	DefaultModel       string   `yaml:"default_model"`
	UpstreamTimeoutSec int      `yaml:"upstream_timeout_sec"`
}

// Load assembles the configuration from environment variables and the optional
// YAML config file. The filesystem is injected so tests can use an in-memory fs.
func Load(fsys afero.Fs) (*Config, error) {
	audience := os.Getenv(AuthAudienceEnvVar)
	if audience == "" {
		return nil, fmt.Errorf("%s environment variable is required", AuthAudienceEnvVar)
	}
	issuer := os.Getenv(AuthIssuerEnvVar)
	if issuer == "" {
		return nil, fmt.Errorf("%s environment variable is required", AuthIssuerEnvVar)
	}

	apiKey, err := getEnvOrFile(UpstreamAPIKeyEnvVar)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", UpstreamAPIKeyEnvVar)
	}

	jwksURL := os.Getenv(AuthJWKSURLEnvVar)
	if jwksURL == "" {
		// conventional well-known location relative to the issuer
		jwksURL = strings.TrimSuffix(issuer, "/") + "/.well-known/jwks.json"
	}

	algorithms := []string{"RS256"}
	if raw := os.Getenv(AuthAlgorithmsEnvVar); raw != "" {
		algorithms = splitAndTrim(raw)
	}

	maxTokens := defaultMaxTokens
	if raw := os.Getenv(MaxTokensEnvVar); raw != "" {
		maxTokens, err = strconv.Atoi(raw)
		if err != nil || maxTokens < 1 {
			return nil, fmt.Errorf(
				"invalid value for %s: '%s', must be a positive integer", MaxTokensEnvVar, raw,
			)
		}
	}

	cfg := &Config{
		BindPort:        getBindPort(),
		Audience:        audience,
		Issuer:          issuer,
		JWKSURL:         jwksURL,
		Algorithms:      algorithms,
		UpstreamAPIKey:  apiKey,
		UpstreamBaseURL: os.Getenv(UpstreamBaseURLEnvVar),
		DefaultModel:    os.Getenv(DefaultModelEnvVar),
		MaxTokens:       maxTokens,
		AllowedModels:   slices.Clone(defaultAllowedModels),
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaultModel
	}

	if err := applyFileConfig(fsys, cfg); err != nil {
		return nil, err
	}

	// the default model must itself pass the model allowlist
	if !slices.Contains(cfg.AllowedModels, cfg.DefaultModel) {
		return nil, fmt.Errorf(
			"default model %q is not in the allowed models list", cfg.DefaultModel,
		)
	}

	return cfg, nil
}

// applyFileConfig overlays settings from the YAML config file, if one exists.
func applyFileConfig(fsys afero.Fs, cfg *Config) error {
	path := os.Getenv(ConfigFileEnvVar)
	explicit := path != ""
	if !explicit {
		path = ConfigFileDefault
	}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to check config file %s: %w", path, err)
	}
	if !exists {
		if explicit {
			return fmt.Errorf("config file %s does not exist", path)
		}
		return nil
	}

	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if len(fc.AllowedModels) > 0 {
		cfg.AllowedModels = fc.AllowedModels
	}
	if fc.DefaultModel != "" {
		cfg.DefaultModel = fc.DefaultModel
	}
	if fc.UpstreamTimeoutSec > 0 {
		cfg.UpstreamTimeout = time.Duration(fc.UpstreamTimeoutSec) * time.Second
	}
	cfg.StrictParams = fc.StrictParams

	return nil
}

// getBindPort returns the TCP port to bind the toolgate server to.
func getBindPort() string {
	port := os.Getenv(BindPortEnvVar)
	if port == "" {
		port = BindPortDefault
	}
	return port
}

// getEnvOrFile returns the value of the given environment variable.
// If the environment variable is not set, it checks for a corresponding
// _FILE environment variable and reads the value from the file if it exists.
// If both are set, the value of the original environment variable takes precedence.
func getEnvOrFile(envVar string) (string, error) {
	val := os.Getenv(envVar)
	if val != "" {
		return val, nil
	}

	fileEnvVar := envVar + "_FILE"
	filePath := os.Getenv(fileEnvVar)
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", fileEnvVar, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	return "", nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
