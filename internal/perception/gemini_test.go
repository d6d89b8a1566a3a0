package perception

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"datanerd/internal/types"
)

// geminiStub serves canned responses and records request bodies.
type geminiStub struct {
	server   *httptest.Server
	requests []GeminiRequest
	respond  func(call int) string
}

func newGeminiStub(t *testing.T, respond func(call int) string) *geminiStub {
	t.Helper()
	stub := &geminiStub{respond: respond}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GeminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		call := len(stub.requests)
		stub.requests = append(stub.requests, req)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(stub.respond(call)))
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func stubClient(stub *geminiStub) *GeminiClient {
	return NewGeminiClientWithConfig(GeminiConfig{
		APIKey:  "test-key",
		BaseURL: stub.server.URL,
		Model:   "gemini-2.5-flash",
	})
}

const textResponse = `{
	"candidates": [{"content": {"role": "model", "parts": [{"text": "hello"}]}, "finishReason": "STOP"}],
	"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 2, "totalTokenCount": 12}
}`

const toolCallResponse = `{
	"candidates": [{"content": {"role": "model", "parts": [
		{"functionCall": {"name": "get_column_stats", "args": {"column": "Views"}}}
	]}, "finishReason": "STOP"}],
	"usageMetadata": {"totalTokenCount": 20}
}`

func TestComplete(t *testing.T) {
	stub := newGeminiStub(t, func(int) string { return textResponse })
	client := stubClient(stub)

	got, err := client.Complete(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "hello" {
		t.Errorf("text = %q", got)
	}
}

func TestCompleteWithTools(t *testing.T) {
	stub := newGeminiStub(t, func(int) string { return toolCallResponse })
	client := stubClient(stub)

	tools := []types.ToolDefinition{{
		Name:        "get_column_stats",
		Description: "stats",
		InputSchema: map[string]interface{}{"type": "object"},
	}}
	resp, err := client.CompleteWithTools(context.Background(), "system", "average views?", tools)
	if err != nil {
		t.Fatalf("CompleteWithTools: %v", err)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.Name != "get_column_stats" || call.Input["column"] != "Views" {
		t.Errorf("call = %+v", call)
	}
	if call.ID != "call_0" {
		t.Errorf("call ID = %q", call.ID)
	}
	if resp.Usage.TotalTokens != 20 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	// The request declared the tool menu.
	req := stub.requests[0]
	if len(req.Tools) != 1 || len(req.Tools[0].FunctionDeclarations) != 1 {
		t.Errorf("request tools = %+v", req.Tools)
	}
	if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "system" {
		t.Error("system instruction missing")
	}
}

func TestContinueWithToolResults(t *testing.T) {
	stub := newGeminiStub(t, func(call int) string {
		if call == 0 {
			return toolCallResponse
		}
		return textResponse
	})
	client := stubClient(stub)

	_, err := client.CompleteWithTools(context.Background(), "system", "average views?", nil)
	if err != nil {
		t.Fatalf("CompleteWithTools: %v", err)
	}

	resp, err := client.ContinueWithToolResults(context.Background(), "system", []types.ToolResult{
		{ToolUseID: "call_0", Name: "get_column_stats", Content: `{"mean":20}`},
	}, nil)
	if err != nil {
		t.Fatalf("ContinueWithToolResults: %v", err)
	}
	if resp.Text != "hello" {
		t.Errorf("text = %q", resp.Text)
	}

	// Second request must carry the whole exchange: user turn, model
	// turn with the function call, then the function response.
	req := stub.requests[1]
	if len(req.Contents) != 3 {
		t.Fatalf("contents = %d, want 3", len(req.Contents))
	}
	if req.Contents[1].Role != "model" {
		t.Errorf("second content role = %q", req.Contents[1].Role)
	}
	last := req.Contents[2]
	if last.Role != "function" {
		t.Errorf("last content role = %q", last.Role)
	}
	fr := last.Parts[0].FunctionResponse
	if fr == nil || fr.Name != "get_column_stats" {
		t.Errorf("function response = %+v", fr)
	}
	if fr.Response["result"] != `{"mean":20}` {
		t.Errorf("response payload = %+v", fr.Response)
	}
}

func TestContinueWithToolResultsErrorPayload(t *testing.T) {
	stub := newGeminiStub(t, func(call int) string {
		if call == 0 {
			return toolCallResponse
		}
		return textResponse
	})
	client := stubClient(stub)

	if _, err := client.CompleteWithTools(context.Background(), "", "q", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := client.ContinueWithToolResults(context.Background(), "", []types.ToolResult{
		{ToolUseID: "call_0", Name: "broken_tool", Content: "Error: boom", IsError: true},
	}, nil); err != nil {
		t.Fatal(err)
	}

	fr := stub.requests[1].Contents[2].Parts[0].FunctionResponse
	if fr.Response["error"] != "Error: boom" {
		t.Errorf("error payload = %+v", fr.Response)
	}
}

func TestContinueWithoutExchange(t *testing.T) {
	stub := newGeminiStub(t, func(int) string { return textResponse })
	client := stubClient(stub)

	if _, err := client.ContinueWithToolResults(context.Background(), "", nil, nil); err == nil {
		t.Error("continuing without an exchange should fail")
	}
}

func TestMissingAPIKey(t *testing.T) {
	client := NewGeminiClient("")
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Error("missing API key should fail")
	}
}

func TestAPIErrorSurface(t *testing.T) {
	stub := newGeminiStub(t, func(int) string {
		return `{"error": {"code": 400, "message": "bad request", "status": "INVALID_ARGUMENT"}}`
	})
	client := stubClient(stub)

	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Error("API error body should surface as an error")
	}
}
