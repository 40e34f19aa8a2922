package types

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthCheckResult is the response of the credential-exempt health_check tool.
type HealthCheckResult struct {
	Status            string   `json:"status"`
	UpstreamReachable bool     `json:"upstream_reachable"`
	DefaultModel      string   `json:"default_model"`
	AvailableModels   []string `json:"available_models"`
}

// ServerMetadata holds basic information about a running gateway instance.
type ServerMetadata struct {
	Version string `json:"version"`
}
