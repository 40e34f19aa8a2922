package gateway

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/toolgate/toolgate/pkg/types"
)

// toolDefs declares the gateway's tools in MCP form. The declarations mirror
// the validation rule set; the validator remains the authority on bounds.
func (s *Service) toolDefs() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolChat,
			mcp.WithDescription("Send a single message to the model and get a response"),
			mcp.WithString("user_message", mcp.Required(),
				mcp.Description("The message or question to send to the model"),
			),
			mcp.WithString("system_prompt",
				mcp.Description("Optional instructions for how the model should behave"),
			),
			mcp.WithString("model",
				mcp.Description("Which model to use"),
				mcp.Enum(s.allowedModels...),
			),
			mcp.WithNumber("temperature",
				mcp.Description("Creativity level between 0.0 (focused) and 1.0 (creative)"),
			),
			mcp.WithNumber("max_tokens",
				mcp.Description("Maximum length of the response"),
			),
		),
		mcp.NewTool(ToolConversation,
			mcp.WithDescription("Have a multi-turn conversation with the model"),
			mcp.WithArray("messages", mcp.Required(),
				mcp.Description("Ordered conversation history"),
				mcp.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"role":    map[string]any{"type": "string", "enum": []string{"user", "assistant", "system"}},
						"content": map[string]any{"type": "string"},
					},
					"required": []string{"role", "content"},
				}),
			),
			mcp.WithString("system_prompt",
				mcp.Description("Optional instructions for the model's behavior"),
			),
			mcp.WithString("model",
				mcp.Description("Which model to use"),
				mcp.Enum(s.allowedModels...),
			),
			mcp.WithNumber("temperature",
				mcp.Description("Creativity level between 0.0 (focused) and 1.0 (creative)"),
			),
		),
		mcp.NewTool(ToolAnalyzeDoc,
			mcp.WithDescription("Analyze a document using the model"),
			mcp.WithString("document_text", mcp.Required(),
				mcp.Description("The full text of the document to analyze"),
			),
			mcp.WithString("analysis_request", mcp.Required(),
				mcp.Description("What you want to know about the document"),
			),
			mcp.WithString("model",
				mcp.Description("Which model to use"),
				mcp.Enum(s.allowedModels...),
			),
		),
		mcp.NewTool(ToolTranslate,
			mcp.WithDescription("Translate text using the model"),
			mcp.WithString("text", mcp.Required(),
				mcp.Description("The text to translate"),
			),
			mcp.WithString("target_language", mcp.Required(),
				mcp.Description("Language to translate to"),
			),
			mcp.WithString("source_language",
				mcp.Description("Source language, defaults to auto-detection"),
			),
		),
		mcp.NewTool(ToolHealthCheck,
			mcp.WithDescription("Check gateway and model backend health, no credential required"),
		),
	}
}

// registerTools adds the gateway's tools and their handlers to an MCP server.
func (s *Service) registerTools(srv *server.MCPServer) {
	for _, tool := range s.toolDefs() {
		srv.AddTool(tool, s.toolHandler(tool.Name))
	}
}

// toolHandler bridges an MCP tools/call request into the dispatch pipeline.
// The caller's credential travels in the request context (see WithCredential),
// so exempt tools stay callable without one.
func (s *Service) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := s.InvokeTool(ctx, name, req.GetArguments(), CredentialFromContext(ctx))

		if result.IsError() {
			encoded, err := json.Marshal(result.Error)
			if err != nil {
				return nil, err
			}
			return mcp.NewToolResultError(string(encoded)), nil
		}

		encoded, err := json.Marshal(result.Payload)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(encoded)), nil
	}
}

// Tools returns the gateway's tool listing for the REST API.
func (s *Service) Tools() []types.Tool {
	defs := s.toolDefs()
	tools := make([]types.Tool, len(defs))
	for i, def := range defs {
		tools[i] = types.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: types.ToolInputSchema{
				Type:       def.InputSchema.Type,
				Properties: def.InputSchema.Properties,
				Required:   def.InputSchema.Required,
			},
		}
	}
	return tools
}
