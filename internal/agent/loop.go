// Package agent runs the tool-orchestration loop: it alternates provider
// completions with tool-registry invocations until the model produces a
// final answer or the iteration cap is reached.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/llm"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/registry"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/trace"
)

const defaultMaxIterations = 6

// AbortedReply is the fixed user-visible answer returned when the loop hits
// its iteration cap. Cap exhaustion is a normal termination, not an error:
// a model that keeps requesting tools must never hang the request.
const AbortedReply = "Stopped: exceeded the maximum number of tool iterations."

// ToolClient is the slice of the registry client the loop depends on.
type ToolClient interface {
	ListTools(ctx context.Context, tenantID string) ([]llm.ToolDefinition, error)
	Invoke(ctx context.Context, toolName string, args map[string]any, tenantID string) registry.Result
}

// RunParams configures one orchestration run.
type RunParams struct {
	Provider     llm.Provider
	ProviderName string
	Model        string

	// Tools is nil when tool orchestration is disabled for this run.
	Tools    ToolClient
	TenantID string

	SystemPrompt  string
	UserText      string
	Temperature   float64
	MaxIterations int

	// Trace receives every provider and registry exchange. Nil disables tracing.
	Trace trace.Sink
}

// RunResult is the outcome of one completed run.
type RunResult struct {
	Reply   string
	Usage   llm.TokenUsage
	History []llm.ChatMessage
	// Aborted is true when the iteration cap was hit and Reply carries
	// the fixed AbortedReply text.
	Aborted bool
}

// Run executes the loop until the model returns a final text response or
// the iteration cap is reached. Provider errors are fatal for the run;
// tool failures are embedded into the conversation as tool results.
func Run(ctx context.Context, p RunParams) (*RunResult, error) {
	if p.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if strings.TrimSpace(p.UserText) == "" {
		return nil, fmt.Errorf("user text is required")
	}
	maxIterations := p.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	sink := p.Trace
	if sink == nil {
		sink = nopSink{}
	}

	history := []llm.ChatMessage{{Role: llm.RoleUser, Content: p.UserText}}
	toolDefs := fetchToolDefs(ctx, p, sink)
	totalUsage := llm.TokenUsage{}

	for i := 0; i < maxIterations; i++ {
		// Each iteration sends the full conversation state and available
		// tools. The model either returns final text or a set of tool calls.
		logging.Logger().Info(
			"provider request",
			"provider", p.ProviderName,
			"model", p.Model,
			"iteration", i+1,
			"message_count", len(history),
			"tool_count", len(toolDefs),
		)
		sink.Append(trace.KindTxAgent, p.TenantID, map[string]string{
			"provider":  p.ProviderName,
			"model":     p.Model,
			"iteration": fmt.Sprint(i + 1),
		}, map[string]any{
			"message_count": len(history),
			"tool_count":    len(toolDefs),
			"latest":        summarizeText(latestMessage(history), 300),
		})

		resp, err := p.Provider.Chat(ctx, llm.ChatRequest{
			SystemPrompt: p.SystemPrompt,
			Messages:     history,
			Tools:        toolDefs,
			Temperature:  p.Temperature,
		})
		if err != nil {
			sink.Append(trace.KindRxAgent, p.TenantID, map[string]string{
				"provider":  p.ProviderName,
				"iteration": fmt.Sprint(i + 1),
				"error":     "true",
			}, summarizeText(err.Error(), 400))
			return nil, err
		}

		sink.Append(trace.KindRxAgent, p.TenantID, map[string]string{
			"provider":        p.ProviderName,
			"iteration":       fmt.Sprint(i + 1),
			"tool_call_count": fmt.Sprint(len(resp.ToolCalls)),
		}, map[string]any{
			"content":    summarizeText(resp.Content, 300),
			"tool_calls": toolCallSummaries(resp.ToolCalls),
		})
		logging.Logger().Info(
			"provider response",
			"iteration", i+1,
			"tool_call_count", len(resp.ToolCalls),
			"input_tokens", resp.Usage.InputTokens,
			"output_tokens", resp.Usage.OutputTokens,
		)

		totalUsage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			// No tool calls means the reply is terminal.
			if resp.Content != "" {
				history = append(history, llm.ChatMessage{
					Role:    llm.RoleAssistant,
					Content: resp.Content,
				})
			}
			return &RunResult{
				Reply:   resp.Content,
				Usage:   totalUsage,
				History: history,
			}, nil
		}

		history = append(history, llm.ChatMessage{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		history = append(history, executeBatch(ctx, p, sink, resp.ToolCalls)...)
	}

	return &RunResult{
		Reply:   AbortedReply,
		Usage:   totalUsage,
		History: history,
		Aborted: true,
	}, nil
}

// fetchToolDefs loads the tool catalog once per run. A fetch failure
// degrades to running without tools rather than failing the request.
func fetchToolDefs(ctx context.Context, p RunParams, sink trace.Sink) []llm.ToolDefinition {
	if p.Tools == nil {
		return nil
	}
	defs, err := p.Tools.ListTools(ctx, p.TenantID)
	if err != nil {
		logging.Logger().Warn("tool list fetch failed, continuing without tools", "err", err)
		sink.Append(trace.KindRxMaximo, p.TenantID, map[string]string{
			"op":    "list_tools",
			"error": "true",
		}, summarizeText(err.Error(), 400))
		return nil
	}
	return defs
}

// executeBatch runs one iteration's tool calls concurrently and returns
// their tool messages in the original provider-given order, keeping the
// transcript deterministic regardless of completion order.
func executeBatch(ctx context.Context, p RunParams, sink trace.Sink, calls []llm.ToolCall) []llm.ChatMessage {
	results := make([]llm.ChatMessage, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = executeCall(ctx, p, sink, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func executeCall(ctx context.Context, p RunParams, sink trace.Sink, call llm.ToolCall) llm.ChatMessage {
	args := parseArguments(call)

	logging.Logger().Info("tool call start", "tool", call.Name, "tool_call_id", call.ID)
	sink.Append(trace.KindTxMaximo, p.TenantID, map[string]string{
		"tool":         call.Name,
		"tool_call_id": call.ID,
	}, map[string]any{"arguments": summarizeText(call.Arguments, 400)})

	var result registry.Result
	if p.Tools == nil {
		result = registry.Result{
			OK:     false,
			Status: 0,
			Body:   map[string]any{"error": "tool execution is not available"},
		}
	} else {
		result = p.Tools.Invoke(ctx, call.Name, args, p.TenantID)
	}

	sink.Append(trace.KindRxMaximo, p.TenantID, map[string]string{
		"tool":         call.Name,
		"tool_call_id": call.ID,
		"status":       fmt.Sprint(result.Status),
		"ok":           fmt.Sprint(result.OK),
	}, result.Body)
	if !result.OK {
		logging.Logger().Warn("tool call failed", "tool", call.Name, "tool_call_id", call.ID, "status", result.Status)
	} else {
		logging.Logger().Info("tool call complete", "tool", call.Name, "tool_call_id", call.ID, "status", result.Status)
	}

	content, err := json.Marshal(result)
	if err != nil {
		content = []byte(`{"ok":false,"status":0,"body":{"error":"unserializable tool result"}}`)
	}
	return llm.ChatMessage{
		Role:       llm.RoleTool,
		ToolCallID: call.ID,
		Content:    string(content),
	}
}

// parseArguments decodes the raw provider-supplied JSON arguments. Invalid
// JSON degrades to {"raw": <arguments>} so a malformed call never fails
// the run; the tool or the model gets to react instead.
func parseArguments(call llm.ToolCall) map[string]any {
	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) == "" {
		return args
	}
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		logging.Logger().Warn(
			"tool arguments are not valid JSON, passing raw",
			"tool", call.Name,
			"tool_call_id", call.ID,
			"err", err,
		)
		return map[string]any{"raw": call.Arguments}
	}
	return args
}

type nopSink struct{}

func (nopSink) Append(trace.Kind, string, map[string]string, any) trace.Event {
	return trace.Event{}
}

func toolCallSummaries(calls []llm.ToolCall) []map[string]string {
	out := make([]map[string]string, 0, len(calls))
	for _, call := range calls {
		out = append(out, map[string]string{
			"id":        call.ID,
			"name":      call.Name,
			"arguments": summarizeText(call.Arguments, 200),
		})
	}
	return out
}

func latestMessage(history []llm.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == llm.RoleUser && strings.TrimSpace(history[i].Content) != "" {
			return history[i].Content
		}
	}
	return ""
}

func summarizeText(text string, maxLen int) string {
	if maxLen <= 0 || len(text) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return fmt.Sprintf("%s...[truncated %d chars]", text[:cut], len(text)-cut)
}
