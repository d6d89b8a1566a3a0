// Package session runs the tool dispatch loop: it hands the user's
// question to the model together with the tool menu, executes the
// requested tools, feeds results back, and stops when the model answers
// in plain text or the round limit is reached.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"datanerd/internal/analysis"
	"datanerd/internal/dataset"
	"datanerd/internal/logging"
	"datanerd/internal/tools"
	"datanerd/internal/types"
)

// Defaults for the dispatch loop.
const (
	DefaultMaxRounds      = 5
	DefaultMaxChartPoints = 50
)

// EngineConfig bounds the dispatch loop.
type EngineConfig struct {
	// MaxRounds caps how many tool rounds one question may consume.
	MaxRounds int

	// MaxChartPoints caps chart data echoed back to the model. The full
	// chart is always kept for the caller.
	MaxChartPoints int

	// ToolTimeout bounds a single tool execution. Zero means no extra
	// deadline beyond the exchange context.
	ToolTimeout time.Duration
}

// CallRecord is one executed tool call in an exchange, with the full
// unsanitized value.
type CallRecord struct {
	Round      int            `json:"round"`
	Tool       string         `json:"tool"`
	Args       map[string]any `json:"args"`
	Value      any            `json:"value,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

// ExchangeResult is the outcome of one question.
type ExchangeResult struct {
	ID       string               `json:"id"`
	Question string               `json:"question"`
	Answer   string               `json:"answer"`
	Rounds   int                  `json:"rounds"`
	Calls    []CallRecord         `json:"calls,omitempty"`
	Charts   []*analysis.Chart    `json:"charts,omitempty"`
	Images   []*tools.ImageResult `json:"images,omitempty"`

	// HaltedAtLimit is set when the model still wanted tools after the
	// final round.
	HaltedAtLimit bool `json:"halted_at_limit,omitempty"`

	Usage types.UsageMetadata `json:"usage"`
}

// Engine owns one conversation over one dataset.
type Engine struct {
	client   types.LLMClient
	registry *tools.Registry
	config   EngineConfig

	mu sync.RWMutex
	ds *dataset.Dataset
}

// NewEngine creates a dispatch engine. Zero config fields fall back to
// the defaults.
func NewEngine(client types.LLMClient, registry *tools.Registry, ds *dataset.Dataset, config EngineConfig) *Engine {
	if config.MaxRounds <= 0 {
		config.MaxRounds = DefaultMaxRounds
	}
	if config.MaxChartPoints <= 0 {
		config.MaxChartPoints = DefaultMaxChartPoints
	}
	return &Engine{
		client:   client,
		registry: registry,
		config:   config,
		ds:       ds,
	}
}

// Dataset returns the current dataset. Tools read through this so a
// swap never lands mid-exchange.
func (e *Engine) Dataset() *dataset.Dataset {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ds
}

// SetDataset swaps in a replacement dataset. Callers invoke this
// between exchanges, typically from the file watcher.
func (e *Engine) SetDataset(ds *dataset.Dataset) {
	e.mu.Lock()
	e.ds = ds
	e.mu.Unlock()
	logging.Session("Dataset swapped: %d rows, %d columns", len(ds.Rows), len(ds.Headers))
}

// Ask runs one full exchange. The returned result always carries the
// complete call log and full chart data, regardless of what was
// truncated for the model.
func (e *Engine) Ask(ctx context.Context, question string) (*ExchangeResult, error) {
	timer := logging.StartTimer(logging.CategorySession, "exchange")
	defer timer.Stop()

	result := &ExchangeResult{
		ID:       uuid.New().String(),
		Question: question,
	}

	systemPrompt := BuildSystemPrompt(e.Dataset(), e.registry.Names(), e.config.MaxRounds)
	definitions := e.registry.Definitions()

	logging.Session("Exchange %s: %q (tools=%d, max_rounds=%d)",
		result.ID, question, len(definitions), e.config.MaxRounds)

	resp, err := e.client.CompleteWithTools(ctx, systemPrompt, question, definitions)
	if err != nil {
		return nil, fmt.Errorf("initial completion failed: %w", err)
	}
	result.accumulateUsage(resp.Usage)

	for round := 1; round <= e.config.MaxRounds; round++ {
		if len(resp.ToolCalls) == 0 {
			result.Answer = resp.Text
			logging.Session("Exchange %s: answered after %d round(s)", result.ID, result.Rounds)
			return result, nil
		}

		result.Rounds = round
		toolResults := e.runRound(ctx, round, resp.ToolCalls, result)

		resp, err = e.client.ContinueWithToolResults(ctx, systemPrompt, toolResults, definitions)
		if err != nil {
			return nil, fmt.Errorf("round %d continuation failed: %w", round, err)
		}
		result.accumulateUsage(resp.Usage)
	}

	// Round budget exhausted. Take whatever text the model produced;
	// if it still wants tools, flag the halt.
	result.Answer = resp.Text
	if len(resp.ToolCalls) > 0 {
		result.HaltedAtLimit = true
		if result.Answer == "" {
			result.Answer = "I reached the tool call limit before finishing the analysis. Here is what I found so far; ask a follow-up to continue."
		}
		logging.Session("Exchange %s: halted at round limit with %d pending call(s)", result.ID, len(resp.ToolCalls))
	}
	return result, nil
}

// runRound executes the round's tool calls. Only the first call does
// real work; extra calls in the same turn are answered with an error
// result so the model learns the one-call-per-round contract while the
// response still covers every requested call.
func (e *Engine) runRound(ctx context.Context, round int, calls []types.ToolCall, result *ExchangeResult) []types.ToolResult {
	toolResults := make([]types.ToolResult, 0, len(calls))
	for i, call := range calls {
		if i > 0 {
			toolResults = append(toolResults, types.ToolResult{
				ToolUseID: call.ID,
				Name:      call.Name,
				Content:   "Error: only one tool call per round is allowed; repeat this call in the next round",
				IsError:   true,
			})
			continue
		}
		toolResults = append(toolResults, e.runCall(ctx, round, call, result))
	}
	return toolResults
}

// runCall executes one tool call, records it, and sanitizes the value
// for the model.
func (e *Engine) runCall(ctx context.Context, round int, call types.ToolCall, result *ExchangeResult) types.ToolResult {
	callCtx := ctx
	if e.config.ToolTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.ToolTimeout)
		defer cancel()
	}

	record := CallRecord{
		Round: round,
		Tool:  call.Name,
		Args:  call.Input,
	}

	execResult, err := e.registry.Execute(callCtx, call.Name, call.Input)
	if execResult != nil {
		record.DurationMs = execResult.DurationMs
	}
	if err != nil {
		record.Error = err.Error()
		result.Calls = append(result.Calls, record)
		logging.Session("Exchange %s round %d: %s failed: %v", result.ID, round, call.Name, err)
		return types.ToolResult{
			ToolUseID: call.ID,
			Name:      call.Name,
			Content:   "Error: " + err.Error(),
			IsError:   true,
		}
	}

	record.Value = execResult.Value
	result.Calls = append(result.Calls, record)
	result.collect(execResult.Value)

	content := sanitizeForModel(execResult.Value, e.config.MaxChartPoints)
	logging.SessionDebug("Exchange %s round %d: %s -> %d bytes to model", result.ID, round, call.Name, len(content))
	return types.ToolResult{
		ToolUseID: call.ID,
		Name:      call.Name,
		Content:   content,
	}
}

// collect pulls renderable payloads out of a tool value. Full data only;
// truncation never touches what the caller sees.
func (r *ExchangeResult) collect(value any) {
	switch v := value.(type) {
	case analysis.Chartable:
		r.Charts = append(r.Charts, v.Chart())
	case *tools.ImageResult:
		r.Images = append(r.Images, v)
	}
}

func (r *ExchangeResult) accumulateUsage(u types.UsageMetadata) {
	r.Usage.InputTokens += u.InputTokens
	r.Usage.OutputTokens += u.OutputTokens
	r.Usage.TotalTokens += u.TotalTokens
}
