package types

// ToolInputSchema defines the schema for the input parameters of a tool
type ToolInputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
	Required   []string       `json:"required,omitempty"`
}

// Tool represents one named operation exposed by the gateway.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema ToolInputSchema `json:"input_schema"`
}

// ToolInvokeRequest is the inbound tool-call envelope accepted by the REST API.
// The bearer credential travels in the Authorization header, not in the body.
type ToolInvokeRequest struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

const (
	// InvokeStatusSuccess marks a tool call that completed and produced a payload.
	InvokeStatusSuccess = "success"
	// InvokeStatusError marks a tool call that failed at any stage.
	InvokeStatusError = "error"
)

// ToolInvokeResult represents the result of a Tool call.
// It is designed to be passed down to the end user.
type ToolInvokeResult struct {
	Status    string         `json:"status"`
	Tool      string         `json:"tool"`
	RequestID string         `json:"request_id,omitempty"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Payload   map[string]any `json:"payload,omitempty"`

	Error *ErrorDescriptor `json:"error,omitempty"`
}

// IsError reports whether the result carries an error descriptor.
func (r *ToolInvokeResult) IsError() bool {
	return r.Status == InvokeStatusError
}
