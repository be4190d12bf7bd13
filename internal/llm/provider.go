// Package llm defines the provider-agnostic chat contract and the adapters
// that translate it to each supported LLM provider's wire format.
package llm

import (
	"context"
	"unicode/utf8"
)

// Provider sends chat requests to an LLM backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Role is the author role for a chat message.
type Role string

const (
	// RoleSystem is the system prompt when carried inline in history.
	RoleSystem Role = "system"
	// RoleUser is a user-authored message.
	RoleUser Role = "user"
	// RoleAssistant is an assistant-authored message.
	RoleAssistant Role = "assistant"
	// RoleTool is a tool-result message addressed to the model.
	RoleTool Role = "tool"
)

// ChatMessage is a single message in model conversation history.
type ChatMessage struct {
	Role       Role
	Content    string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolDefinition describes a callable tool exposed to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a model request to execute a tool. Arguments is the raw
// provider-supplied JSON string, not yet parsed.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// TokenUsage reports provider token accounting for one response.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage across loop iterations.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// ChatRequest is the provider-agnostic request payload.
type ChatRequest struct {
	SystemPrompt string
	Messages     []ChatMessage
	Tools        []ToolDefinition
	MaxTokens    int
	Temperature  float64
}

// ChatResponse is the provider-agnostic response payload.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     TokenUsage
}

func resolveMaxTokens(requestMaxTokens, configuredMaxTokens int) int {
	if requestMaxTokens > 0 {
		return requestMaxTokens
	}
	return configuredMaxTokens
}

const maxErrorBodyLen = 400

// truncateForError caps provider error bodies so diagnostics stay readable
// and upstream HTML error pages do not flood logs or API responses.
func truncateForError(body string) string {
	if len(body) <= maxErrorBodyLen {
		return body
	}
	cut := maxErrorBodyLen
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut] + "...(truncated)"
}
