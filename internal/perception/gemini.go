package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"datanerd/internal/logging"
	"datanerd/internal/types"
)

// GeminiClient implements LLMClient for the Google Gemini API.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client

	mu          sync.Mutex
	lastRequest time.Time

	// contents tracks the in-flight exchange for multi-turn function
	// calling. CompleteWithTools resets it; ContinueWithToolResults
	// appends to it. Guarded by mu.
	contents []GeminiContent
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.5-flash",
		Timeout:         2 * time.Minute,
		MaxOutputTokens: 8192,
	}
}

// NewGeminiClient creates a new Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a new Gemini client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	model := strings.TrimSpace(config.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	baseURL := strings.TrimSpace(config.BaseURL)
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens <= 0 {
		maxOutputTokens = 8192
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &GeminiClient{
		apiKey:          config.APIKey,
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: maxOutputTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

// GetModel returns the current model.
func (c *GeminiClient) GetModel() string {
	return c.model
}

// Complete sends a bare prompt and returns the completion text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.CompleteWithTools(ctx, defaultSystemPrompt, prompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CompleteWithTools starts a new exchange: the client forgets any prior
// exchange contents, sends the user prompt with the tool menu, and
// records the model's reply so tool results can be fed back.
func (c *GeminiClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	c.mu.Lock()
	c.contents = []GeminiContent{
		{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
	}
	c.mu.Unlock()

	return c.generate(ctx, systemPrompt, tools)
}

// ContinueWithToolResults resumes the in-flight exchange by feeding tool
// results back as functionResponse parts. CompleteWithTools must have
// been called first.
func (c *GeminiClient) ContinueWithToolResults(ctx context.Context, systemPrompt string, results []types.ToolResult, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	c.mu.Lock()
	if len(c.contents) == 0 {
		c.mu.Unlock()
		return nil, fmt.Errorf("no exchange in flight; call CompleteWithTools first")
	}

	parts := make([]GeminiPart, 0, len(results))
	for _, r := range results {
		response := map[string]interface{}{"result": r.Content}
		if r.IsError {
			response = map[string]interface{}{"error": r.Content}
		}
		parts = append(parts, GeminiPart{
			FunctionResponse: &GeminiFunctionResponse{
				Name:     r.Name,
				Response: response,
			},
		})
	}
	c.contents = append(c.contents, GeminiContent{Role: "function", Parts: parts})
	c.mu.Unlock()

	return c.generate(ctx, systemPrompt, tools)
}

// generate sends the tracked contents and appends the model's reply.
func (c *GeminiClient) generate(ctx context.Context, systemPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	// Auto-apply timeout if context has no deadline
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] generate: model=%s tools=%d contents=%d", c.model, len(tools), len(c.contents))

	if c.apiKey == "" {
		logging.APIError("[Gemini] generate: API key not configured")
		return nil, fmt.Errorf("API key not configured")
	}

	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}

	// Rate limiting
	c.mu.Lock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < 100*time.Millisecond {
		time.Sleep(100*time.Millisecond - elapsed)
	}
	c.lastRequest = time.Now()

	contents := make([]GeminiContent, len(c.contents))
	copy(contents, c.contents)
	c.mu.Unlock()

	reqBody := GeminiRequest{
		Contents: contents,
		SystemInstruction: &GeminiContent{
			Parts: []GeminiPart{{Text: systemPrompt}},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     1.0,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if len(tools) > 0 {
		declarations := make([]GeminiFunctionDeclaration, len(tools))
		for i, t := range tools {
			declarations[i] = GeminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			}
		}
		reqBody.Tools = []GeminiTool{{FunctionDeclarations: declarations}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	// Retry loop for rate limits
	maxRetries := 3
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(1<<uint(i-1)) * time.Second)
		}

		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limit exceeded (429)")
			continue
		}
		if resp.StatusCode != http.StatusOK {
			logging.APIError("[Gemini] generate: API returned status %d: %s", resp.StatusCode, string(body))
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		var geminiResp GeminiResponse
		if err := json.Unmarshal(body, &geminiResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if geminiResp.Error != nil {
			return nil, fmt.Errorf("API error: %s", geminiResp.Error.Message)
		}
		if len(geminiResp.Candidates) == 0 {
			return nil, fmt.Errorf("no completion returned")
		}

		result := c.recordReply(&geminiResp)

		logging.API("[Gemini] generate: completed in %v text_len=%d tool_calls=%d stop_reason=%s",
			time.Since(startTime), len(result.Text), len(result.ToolCalls), result.StopReason)
		return result, nil
	}

	logging.APIError("[Gemini] generate: max retries exceeded after %v: %v", time.Since(startTime), lastErr)
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// recordReply appends the model's content to the tracked exchange and
// converts it to the provider-neutral response shape.
func (c *GeminiClient) recordReply(geminiResp *GeminiResponse) *types.LLMToolResponse {
	candidate := geminiResp.Candidates[0]

	result := &types.LLMToolResponse{
		StopReason: candidate.FinishReason,
		Usage: types.UsageMetadata{
			InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
			OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  geminiResp.UsageMetadata.TotalTokenCount,
		},
	}

	var textBuilder strings.Builder
	for _, part := range candidate.Content.Parts {
		if part.Text != "" {
			textBuilder.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			id := fmt.Sprintf("call_%d", len(result.ToolCalls))
			result.ToolCalls = append(result.ToolCalls, types.ToolCall{
				ID:    id,
				Name:  part.FunctionCall.Name,
				Input: part.FunctionCall.Args,
			})
		}
	}
	result.Text = strings.TrimSpace(textBuilder.String())

	c.mu.Lock()
	c.contents = append(c.contents, GeminiContent{
		Role:  "model",
		Parts: candidate.Content.Parts,
	})
	c.mu.Unlock()

	return result
}
