package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/toolgate/toolgate/internal/telemetry"
	"github.com/toolgate/toolgate/internal/upstream"
	"github.com/toolgate/toolgate/internal/validate"
	"github.com/toolgate/toolgate/pkg/types"
	"go.uber.org/zap"
)

const (
	temperatureDefault  = 0.7
	temperatureAnalysis = 0.3

	translationMaxTokens = 2000

	healthCheckTimeout = 5 * time.Second
)

// InvokeTool runs one tool call through the staged pipeline:
// authenticate (skipped for exempt tools), validate, invoke upstream, respond.
// Any stage failure short-circuits the remaining stages; an invalid request
// never reaches the model backend. The returned envelope is always non-nil.
func (s *Service) InvokeTool(
	ctx context.Context, tool string, params map[string]any, credential string,
) *types.ToolInvokeResult {
	started := time.Now()
	requestID := uuid.NewString()
	outcome := telemetry.ToolCallOutcomeError

	defer func() {
		s.metrics.RecordToolCall(ctx, tool, outcome, time.Since(started))
	}()

	fail := func(err error) *types.ToolInvokeResult {
		descriptor := s.sanitize(requestID, tool, err)
		switch descriptor.Kind {
		case types.ErrorKindUnauthorized:
			outcome = telemetry.ToolCallOutcomeUnauthorized
		case types.ErrorKindInvalidInput:
			outcome = telemetry.ToolCallOutcomeInvalid
		default:
			outcome = telemetry.ToolCallOutcomeError
		}
		return &types.ToolInvokeResult{
			Status:    types.InvokeStatusError,
			Tool:      tool,
			RequestID: requestID,
			ElapsedMs: time.Since(started).Milliseconds(),
			Error:     descriptor,
		}
	}

	var subject string
	if !IsExempt(tool) {
		claims, err := s.verifier.Verify(ctx, credential)
		if err != nil {
			return fail(err)
		}
		subject = claims.Subject
	}

	validated, err := s.validator.Validate(tool, params)
	if err != nil {
		return fail(err)
	}

	payload, err := s.invoke(ctx, tool, validated)
	if err != nil {
		return fail(err)
	}

	outcome = telemetry.ToolCallOutcomeSuccess
	s.logger.Info("tool call succeeded",
		zap.String("tool", tool),
		zap.String("request_id", requestID),
		zap.String("subject", subject),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &types.ToolInvokeResult{
		Status:    types.InvokeStatusSuccess,
		Tool:      tool,
		RequestID: requestID,
		ElapsedMs: time.Since(started).Milliseconds(),
		Payload:   payload,
	}
}

// invoke maps a validated tool call onto its upstream request shape.
func (s *Service) invoke(ctx context.Context, tool string, params map[string]any) (map[string]any, error) {
	switch tool {
	case ToolChat:
		return s.invokeChat(ctx, params)
	case ToolConversation:
		return s.invokeConversation(ctx, params)
	case ToolAnalyzeDoc:
		return s.invokeAnalyzeDocument(ctx, params)
	case ToolTranslate:
		return s.invokeTranslate(ctx, params)
	case ToolHealthCheck:
		return s.invokeHealthCheck(ctx)
	default:
		// unreachable while the validator and dispatcher share the same tool set
		return nil, fmt.Errorf("tool %q has no handler", tool)
	}
}

func (s *Service) invokeChat(ctx context.Context, params map[string]any) (map[string]any, error) {
	var messages []upstream.ChatMessage
	if systemPrompt := stringParam(params, "system_prompt"); systemPrompt != "" {
		messages = append(messages, upstream.ChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, upstream.ChatMessage{
		Role:    "user",
		Content: stringParam(params, "user_message"),
	})

	temperature := floatParam(params, "temperature", temperatureDefault)
	maxTokens := int(floatParam(params, "max_tokens", float64(s.maxTokens)))
	model := s.modelParam(params)

	resp, err := s.upstream.CreateChatCompletion(ctx, &upstream.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"response":    resp.Content,
		"model_used":  model,
		"tokens_used": tokensUsed(resp.Usage),
	}, nil
}

func (s *Service) invokeConversation(ctx context.Context, params map[string]any) (map[string]any, error) {
	history, _ := params["messages"].([]validate.Message)

	var messages []upstream.ChatMessage
	if systemPrompt := stringParam(params, "system_prompt"); systemPrompt != "" {
		messages = append(messages, upstream.ChatMessage{Role: "system", Content: systemPrompt})
	}
	// caller order is preserved
	for _, m := range history {
		messages = append(messages, upstream.ChatMessage{Role: m.Role, Content: m.Content})
	}

	temperature := floatParam(params, "temperature", temperatureDefault)
	model := s.modelParam(params)

	resp, err := s.upstream.CreateChatCompletion(ctx, &upstream.ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"response":            resp.Content,
		"model_used":          model,
		"conversation_length": len(messages),
		"tokens_used":         tokensUsed(resp.Usage),
	}, nil
}

func (s *Service) invokeAnalyzeDocument(ctx context.Context, params map[string]any) (map[string]any, error) {
	documentText := stringParam(params, "document_text")
	analysisRequest := stringParam(params, "analysis_request")

	systemPrompt := "You are a document analysis assistant. " +
		"Provide clear, concise, and actionable analysis. " +
		"Focus on what's most important and relevant."

	userPrompt := fmt.Sprintf(
		"Please analyze the following document:\n\n---\n%s\n---\n\n"+
			"Analysis request: %s\n\nPlease provide a thorough but concise analysis.",
		documentText, analysisRequest,
	)

	temperature := float64(temperatureAnalysis)
	model := s.modelParam(params)

	resp, err := s.upstream.CreateChatCompletion(ctx, &upstream.ChatRequest{
		Model: model,
		Messages: []upstream.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: &temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"analysis":        resp.Content,
		"document_length": len(documentText),
		"model_used":      model,
		"tokens_used":     tokensUsed(resp.Usage),
	}, nil
}

func (s *Service) invokeTranslate(ctx context.Context, params map[string]any) (map[string]any, error) {
	text := stringParam(params, "text")
	targetLanguage := stringParam(params, "target_language")
	sourceLanguage := stringParam(params, "source_language")

	var prompt string
	if sourceLanguage == "" || sourceLanguage == "auto" {
		sourceLanguage = "auto"
		prompt = fmt.Sprintf("Translate the following text to %s:\n\n%s", targetLanguage, text)
	} else {
		prompt = fmt.Sprintf(
			"Translate the following text from %s to %s:\n\n%s", sourceLanguage, targetLanguage, text,
		)
	}

	systemPrompt := "You are a professional translator. " +
		"Provide accurate, natural-sounding translations. " +
		"Only output the translation, no explanations."

	temperature := float64(temperatureAnalysis)

	resp, err := s.upstream.CreateChatCompletion(ctx, &upstream.ChatRequest{
		Model: s.defaultModel,
		Messages: []upstream.ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: &temperature,
		MaxTokens:   translationMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"original_text":   text,
		"translated_text": resp.Content,
		"target_language": targetLanguage,
		"source_language": sourceLanguage,
		"tokens_used":     resp.Usage.TotalTokens,
	}, nil
}

func (s *Service) invokeHealthCheck(ctx context.Context) (map[string]any, error) {
	result := s.HealthCheck(ctx)
	return map[string]any{
		"status":             result.Status,
		"upstream_reachable": result.UpstreamReachable,
		"default_model":      result.DefaultModel,
		"available_models":   result.AvailableModels,
	}, nil
}

// HealthCheck probes the model backend and reports the gateway's health.
// It never fails: an unreachable backend degrades the status instead.
func (s *Service) HealthCheck(ctx context.Context) *types.HealthCheckResult {
	probeCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	status := types.HealthStatusOK
	reachable := true
	if _, err := s.upstream.ListModels(probeCtx); err != nil {
		s.logger.Warn("model backend health probe failed", zap.Error(err))
		status = types.HealthStatusDegraded
		reachable = false
	}

	return &types.HealthCheckResult{
		Status:            status,
		UpstreamReachable: reachable,
		DefaultModel:      s.defaultModel,
		AvailableModels:   s.allowedModels,
	}
}

// modelParam returns the validated model parameter or the configured default.
func (s *Service) modelParam(params map[string]any) string {
	if model := stringParam(params, "model"); model != "" {
		return model
	}
	return s.defaultModel
}

func stringParam(params map[string]any, name string) string {
	v, _ := params[name].(string)
	return v
}

func floatParam(params map[string]any, name string, fallback float64) float64 {
	if v, ok := params[name].(float64); ok {
		return v
	}
	return fallback
}

func tokensUsed(u upstream.Usage) map[string]any {
	return map[string]any{
		"prompt":     u.PromptTokens,
		"completion": u.CompletionTokens,
		"total":      u.TotalTokens,
	}
}
