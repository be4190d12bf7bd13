package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

const (
	defaultOpenAIURL     = "https://api.openai.com/v1/chat/completions"
	defaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"
)

// chatCompletionsProvider speaks the OpenAI chat-completions wire format.
// It serves any endpoint in that family (OpenAI, OpenRouter, self-hosted
// compatible servers) and is the only family that carries tool definitions.
type chatCompletionsProvider struct {
	apiKey     string
	model      string
	maxTokens  int
	endpoint   string
	httpClient *http.Client
}

func newOpenAIProvider(cfg config.LLMProviderConfig) (Provider, error) {
	endpoint, err := chatCompletionsEndpoint(cfg)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("%s model is required", cfg.Provider)
	}
	return &chatCompletionsProvider{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  normalizeMaxTokens(cfg.MaxTokens),
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

func chatCompletionsEndpoint(cfg config.LLMProviderConfig) (string, error) {
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		return strings.TrimSuffix(base, "/") + "/chat/completions", nil
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		return defaultOpenAIURL, nil
	case "openrouter":
		return defaultOpenRouterURL, nil
	default:
		return "", fmt.Errorf("%s requires base_url", cfg.Provider)
	}
}

func newChatCompletionsProviderForTest(apiKey, model string, maxTokens int, endpoint string, httpClient *http.Client) (Provider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &chatCompletionsProvider{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		endpoint:   endpoint,
		httpClient: httpClient,
	}, nil
}

// Chat sends a provider-agnostic chat request and normalizes the response.
func (p *chatCompletionsProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := chatCompletionsRequest{
		Model:       p.model,
		Messages:    toWireMessages(req.Messages),
		MaxTokens:   resolveMaxTokens(req.MaxTokens, p.maxTokens),
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		payload.Messages = append([]wireMessage{{
			Role:    string(RoleSystem),
			Content: req.SystemPrompt,
		}}, payload.Messages...)
	}
	if len(req.Tools) > 0 {
		payload.ToolChoice = "auto"
		payload.Tools = make([]wireTool, 0, len(req.Tools))
		for _, tool := range req.Tools {
			payload.Tools = append(payload.Tools, wireTool{
				Type: "function",
				Function: wireFunction{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  tool.Parameters,
				},
			})
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("chat API returned %s: %s", httpResp.Status, truncateForError(strings.TrimSpace(string(respBody))))
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode chat response: %s: %w", truncateForError(strings.TrimSpace(string(respBody))), err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat response has no choices")
	}

	msg := parsed.Choices[0].Message
	toolCalls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &ChatResponse{
		Content:   msg.Content,
		ToolCalls: toolCalls,
		Usage: TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Arguments   string         `json:"arguments,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function wireFunction `json:"function"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func toWireMessages(messages []ChatMessage) []wireMessage {
	out := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		m := wireMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
		if msg.Role == RoleTool {
			m.ToolCallID = msg.ToolCallID
		}
		if len(msg.ToolCalls) > 0 {
			m.ToolCalls = make([]wireToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireFunction{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
		}
		out = append(out, m)
	}
	return out
}
