package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"datanerd/internal/analysis"
	"datanerd/internal/dataset"
	"datanerd/internal/tools"
	"datanerd/internal/types"
)

// scriptedClient returns canned responses in order and records the tool
// results it was fed.
type scriptedClient struct {
	responses  []*types.LLMToolResponse
	calls      int
	gotResults [][]types.ToolResult
}

func (c *scriptedClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (c *scriptedClient) next() (*types.LLMToolResponse, error) {
	if c.calls >= len(c.responses) {
		return nil, fmt.Errorf("script exhausted after %d calls", c.calls)
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	return c.next()
}

func (c *scriptedClient) ContinueWithToolResults(ctx context.Context, systemPrompt string, results []types.ToolResult, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	c.gotResults = append(c.gotResults, results)
	return c.next()
}

// greedyClient always asks for the same tool, never answering.
type greedyClient struct {
	tool       string
	args       map[string]any
	gotResults [][]types.ToolResult
}

func (c *greedyClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (c *greedyClient) respond() *types.LLMToolResponse {
	return &types.LLMToolResponse{
		StopReason: "tool_use",
		ToolCalls:  []types.ToolCall{{ID: "call_0", Name: c.tool, Input: c.args}},
	}
}

func (c *greedyClient) CompleteWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	return c.respond(), nil
}

func (c *greedyClient) ContinueWithToolResults(ctx context.Context, systemPrompt string, results []types.ToolResult, tools []types.ToolDefinition) (*types.LLMToolResponse, error) {
	c.gotResults = append(c.gotResults, results)
	return c.respond(), nil
}

func testRegistry(t *testing.T, ds *dataset.Dataset) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	tools.RegisterDatasetTools(r, func() *dataset.Dataset { return ds })
	return r
}

func testDS(t *testing.T) *dataset.Dataset {
	t.Helper()
	return dataset.Load("Title,Views,Favorites,publishedAt\nA,10,1,2024-01-01\nB,30,3,2024-01-02\n").Enrich()
}

func TestAskPlainAnswer(t *testing.T) {
	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{Text: "Both videos combined have 40 views.", StopReason: "STOP"},
	}}
	ds := testDS(t)
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{})

	result, err := engine.Ask(context.Background(), "how many views total?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Answer != "Both videos combined have 40 views." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Rounds != 0 || len(result.Calls) != 0 {
		t.Errorf("plain answer should use no rounds, got %d rounds %d calls", result.Rounds, len(result.Calls))
	}
}

func TestAskSingleToolRound(t *testing.T) {
	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{
			StopReason: "tool_use",
			ToolCalls: []types.ToolCall{
				{ID: "call_0", Name: "get_column_stats", Input: map[string]any{"column": "Views"}},
			},
		},
		{Text: "Mean views: 20.", StopReason: "STOP"},
	}}
	ds := testDS(t)
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{})

	result, err := engine.Ask(context.Background(), "average views?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if result.Answer != "Mean views: 20." {
		t.Errorf("answer = %q", result.Answer)
	}
	if result.Rounds != 1 {
		t.Errorf("rounds = %d, want 1", result.Rounds)
	}
	if len(result.Calls) != 1 || result.Calls[0].Tool != "get_column_stats" {
		t.Errorf("call log = %+v", result.Calls)
	}
	if _, ok := result.Calls[0].Value.(*analysis.DescribeResult); !ok {
		t.Errorf("call log should keep the structured value, got %T", result.Calls[0].Value)
	}

	// The model received serialized stats, not a Go struct dump.
	fed := client.gotResults[0][0]
	if fed.IsError {
		t.Error("successful call fed back as error")
	}
	if !strings.Contains(fed.Content, `"mean":20`) {
		t.Errorf("model content = %q", fed.Content)
	}
}

func TestAskHaltsAtRoundLimit(t *testing.T) {
	client := &greedyClient{tool: "get_column_stats", args: map[string]any{"column": "Views"}}
	ds := testDS(t)
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{MaxRounds: 5})

	result, err := engine.Ask(context.Background(), "keep digging")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !result.HaltedAtLimit {
		t.Error("HaltedAtLimit not set")
	}
	if result.Rounds != 5 {
		t.Errorf("rounds = %d, want 5", result.Rounds)
	}
	if len(result.Calls) != 5 {
		t.Errorf("calls = %d, want 5", len(result.Calls))
	}
	if result.Answer == "" {
		t.Error("halted exchange should still produce an answer")
	}
}

func TestAskUnknownToolBecomesErrorResult(t *testing.T) {
	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{
			StopReason: "tool_use",
			ToolCalls:  []types.ToolCall{{ID: "call_0", Name: "no_such_tool", Input: nil}},
		},
		{Text: "Sorry.", StopReason: "STOP"},
	}}
	ds := testDS(t)
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{})

	result, err := engine.Ask(context.Background(), "?")
	if err != nil {
		t.Fatalf("tool failure must not abort the exchange: %v", err)
	}

	fed := client.gotResults[0][0]
	if !fed.IsError {
		t.Error("unknown tool should be fed back as an error result")
	}
	if !strings.HasPrefix(fed.Content, "Error:") {
		t.Errorf("content = %q", fed.Content)
	}
	if result.Calls[0].Error == "" {
		t.Error("call log should record the failure")
	}
}

func TestAskOneCallPerRound(t *testing.T) {
	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{
			StopReason: "tool_use",
			ToolCalls: []types.ToolCall{
				{ID: "call_0", Name: "get_column_stats", Input: map[string]any{"column": "Views"}},
				{ID: "call_1", Name: "dataset_summary", Input: map[string]any{}},
			},
		},
		{Text: "Done.", StopReason: "STOP"},
	}}
	ds := testDS(t)
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{})

	result, err := engine.Ask(context.Background(), "?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	// Both calls get responses, but only the first executed.
	fed := client.gotResults[0]
	if len(fed) != 2 {
		t.Fatalf("fed %d results, want 2", len(fed))
	}
	if fed[0].IsError {
		t.Error("first call should succeed")
	}
	if !fed[1].IsError || !strings.Contains(fed[1].Content, "one tool call per round") {
		t.Errorf("second call = %+v", fed[1])
	}
	if len(result.Calls) != 1 {
		t.Errorf("call log = %d entries, want 1", len(result.Calls))
	}
}

func TestAskCollectsFullChartTruncatesForModel(t *testing.T) {
	// 80 daily rows; the model copy is capped while the caller keeps all.
	var b strings.Builder
	b.WriteString("Views,publishedAt\n")
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "%d,2024-01-%02dT00:00:0%d\n", i+1, i%28+1, i/28)
	}
	ds := dataset.Load(b.String())

	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{
			StopReason: "tool_use",
			ToolCalls:  []types.ToolCall{{ID: "call_0", Name: "get_time_series", Input: map[string]any{"metric": "Views"}}},
		},
		{Text: "Views trend upward.", StopReason: "STOP"},
	}}
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{MaxChartPoints: 50})

	result, err := engine.Ask(context.Background(), "trend?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if len(result.Charts) != 1 {
		t.Fatalf("charts = %d, want 1", len(result.Charts))
	}
	if got := len(result.Charts[0].Data); got != 80 {
		t.Errorf("caller chart has %d points, want all 80", got)
	}
	if result.Charts[0].Truncated {
		t.Error("caller chart must not be flagged truncated")
	}

	fed := client.gotResults[0][0].Content
	if !strings.Contains(fed, `"truncated":true`) {
		t.Errorf("model copy should be truncated: %s", fed)
	}
	if !strings.Contains(fed, "truncated to first 50 of 80") {
		t.Errorf("model copy missing truncation note: %s", fed)
	}
}

func TestAskImageSanitization(t *testing.T) {
	gen := &stubGenerator{data: make([]byte, 1024)}
	ds := testDS(t)
	registry := testRegistry(t, ds)
	tools.RegisterMediaTools(registry, gen)

	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{
			StopReason: "tool_use",
			ToolCalls:  []types.ToolCall{{ID: "call_0", Name: "generate_image", Input: map[string]any{"prompt": "neon dashboard"}}},
		},
		{Text: "Here is your image.", StopReason: "STOP"},
	}}
	engine := NewEngine(client, registry, ds, EngineConfig{})

	result, err := engine.Ask(context.Background(), "draw it")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if len(result.Images) != 1 || len(result.Images[0].Data) != 1024 {
		t.Fatalf("caller should receive full image bytes, got %+v", result.Images)
	}

	fed := client.gotResults[0][0].Content
	if !strings.Contains(fed, "image generated") || !strings.Contains(fed, "neon dashboard") {
		t.Errorf("model content = %q", fed)
	}
	if len(fed) > 200 {
		t.Errorf("model content suspiciously large (%d bytes); bytes may have leaked", len(fed))
	}
}

type stubGenerator struct{ data []byte }

func (g *stubGenerator) Generate(ctx context.Context, prompt string, anchor []byte) ([]byte, error) {
	return g.data, nil
}

func TestSetDatasetSwapsBetweenExchanges(t *testing.T) {
	ds := testDS(t)
	client := &scriptedClient{responses: []*types.LLMToolResponse{
		{Text: "ok", StopReason: "STOP"},
	}}
	engine := NewEngine(client, testRegistry(t, ds), ds, EngineConfig{})

	replacement := dataset.Load("X\n1\n")
	engine.SetDataset(replacement)
	if engine.Dataset() != replacement {
		t.Error("SetDataset did not swap")
	}
}

func TestEngineDefaults(t *testing.T) {
	engine := NewEngine(nil, nil, nil, EngineConfig{})
	if engine.config.MaxRounds != DefaultMaxRounds {
		t.Errorf("MaxRounds = %d, want %d", engine.config.MaxRounds, DefaultMaxRounds)
	}
	if engine.config.MaxChartPoints != DefaultMaxChartPoints {
		t.Errorf("MaxChartPoints = %d, want %d", engine.config.MaxChartPoints, DefaultMaxChartPoints)
	}
}
