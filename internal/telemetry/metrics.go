package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ToolCallOutcome classifies how a tool call ended, from the gateway's perspective.
type ToolCallOutcome string

const (
	ToolCallOutcomeSuccess      ToolCallOutcome = "success"
	ToolCallOutcomeUnauthorized ToolCallOutcome = "unauthorized"
	ToolCallOutcomeInvalid      ToolCallOutcome = "invalid"
	ToolCallOutcomeError        ToolCallOutcome = "error"
)

// CustomMetrics records gateway-specific metrics.
// A no-op implementation is used when telemetry is disabled so callers never
// have to check whether metrics are enabled.
type CustomMetrics interface {
	// RecordToolCall records a single tool invocation with its outcome and duration.
	RecordToolCall(ctx context.Context, tool string, outcome ToolCallOutcome, duration time.Duration)
	// RecordKeySetRefresh records one signing key set fetch attempt.
	RecordKeySetRefresh(ctx context.Context, success bool)
}

type noopCustomMetrics struct{}

// NewNoopCustomMetrics returns a CustomMetrics implementation that does nothing.
func NewNoopCustomMetrics() CustomMetrics {
	return &noopCustomMetrics{}
}

func (n *noopCustomMetrics) RecordToolCall(context.Context, string, ToolCallOutcome, time.Duration) {
}

func (n *noopCustomMetrics) RecordKeySetRefresh(context.Context, bool) {}

type otelCustomMetrics struct {
	toolCalls        metric.Int64Counter
	toolCallDuration metric.Float64Histogram
	keySetRefreshes  metric.Int64Counter
}

// NewOtelCustomMetrics creates a CustomMetrics implementation backed by the given meter.
func NewOtelCustomMetrics(meter metric.Meter) (CustomMetrics, error) {
	toolCalls, err := meter.Int64Counter(
		"toolgate.tool.calls",
		metric.WithDescription("Total number of tool invocations handled by the gateway"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool calls counter: %w", err)
	}

	toolCallDuration, err := meter.Float64Histogram(
		"toolgate.tool.call.duration",
		metric.WithDescription("Duration of tool invocations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool call duration histogram: %w", err)
	}

	keySetRefreshes, err := meter.Int64Counter(
		"toolgate.keyset.refreshes",
		metric.WithDescription("Total number of signing key set fetch attempts"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create key set refresh counter: %w", err)
	}

	return &otelCustomMetrics{
		toolCalls:        toolCalls,
		toolCallDuration: toolCallDuration,
		keySetRefreshes:  keySetRefreshes,
	}, nil
}

func (m *otelCustomMetrics) RecordToolCall(
	ctx context.Context, tool string, outcome ToolCallOutcome, duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", string(outcome)),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolCallDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *otelCustomMetrics) RecordKeySetRefresh(ctx context.Context, success bool) {
	m.keySetRefreshes.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
