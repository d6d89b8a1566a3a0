// Package types holds the shared contracts between the dataset engine,
// the tool registry, and the LLM clients. Keeping them here breaks the
// import cycle between session and perception.
package types

import (
	"context"
)

// LLMClient defines the interface for conversational model providers.
type LLMClient interface {
	// Complete sends a bare prompt and returns the text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithTools starts a new exchange: it sends the system prompt,
	// the user message, and the declared tool menu, and returns the model's
	// text and any requested tool calls.
	CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []ToolDefinition) (*LLMToolResponse, error)

	// ContinueWithToolResults resumes the in-flight exchange by feeding
	// tool results back to the model. Callers must have issued
	// CompleteWithTools first; the client tracks the exchange contents.
	ContinueWithToolResults(ctx context.Context, systemPrompt string, results []ToolResult, tools []ToolDefinition) (*LLMToolResponse, error)
}

// ToolDefinition describes a tool that the LLM can invoke.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID    string                 `json:"id"`    // Unique ID for this tool use
	Name  string                 `json:"name"`  // Tool name to invoke
	Input map[string]interface{} `json:"input"` // Tool arguments
}

// ToolResult carries an executed tool's output back to the model.
type ToolResult struct {
	ToolUseID string `json:"tool_use_id"` // Matches ToolCall.ID
	Name      string `json:"name"`        // Tool name that produced the result
	Content   string `json:"content"`     // Result content (JSON text)
	IsError   bool   `json:"is_error"`    // Whether this is an error result
}

// UsageMetadata captures token usage metrics from the LLM.
type UsageMetadata struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// LLMToolResponse contains both text response and tool calls from the LLM.
type LLMToolResponse struct {
	Text       string        `json:"text"`        // Text response (may be empty if only tool calls)
	ToolCalls  []ToolCall    `json:"tool_calls"`  // Tool invocations requested by LLM
	StopReason string        `json:"stop_reason"` // "STOP", "tool_use", etc.
	Usage      UsageMetadata `json:"usage"`       // Token usage metrics
}

// ImageGenerator defines the interface for image-generation collaborators.
// anchor is an optional source image the generation should riff on.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string, anchor []byte) ([]byte, error)
}
