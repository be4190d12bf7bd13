package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChatCompletionsProvider_RequestAndResponse(t *testing.T) {
	var gotAuth string
	var gotReq map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices":[
				{
					"message":{
						"role":"assistant",
						"content":"checking assets",
						"tool_calls":[
							{
								"id":"call_1",
								"type":"function",
								"function":{
									"name":"asset.list",
									"arguments":"{\"site\":\"HQ\"}"
								}
							}
						]
					}
				}
			],
			"usage":{"prompt_tokens":11,"completion_tokens":7,"total_tokens":18}
		}`))
	}))
	defer srv.Close()

	p, err := newChatCompletionsProviderForTest("test-key", "gpt-4o-mini", 4096, srv.URL+"/v1/chat/completions", srv.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	resp, err := p.Chat(context.Background(), ChatRequest{
		SystemPrompt: "be concise",
		MaxTokens:    123,
		Temperature:  0.4,
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "list assets at HQ"},
		},
		Tools: []ToolDefinition{
			{
				Name:        "asset.list",
				Description: "List assets",
				Parameters:  map[string]any{"type": "object"},
			},
		},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotReq["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %#v", gotReq["model"])
	}
	if int(gotReq["max_tokens"].(float64)) != 123 {
		t.Fatalf("unexpected max_tokens: %#v", gotReq["max_tokens"])
	}
	if gotReq["temperature"].(float64) != 0.4 {
		t.Fatalf("unexpected temperature: %#v", gotReq["temperature"])
	}
	if gotReq["tool_choice"] != "auto" {
		t.Fatalf("expected tool_choice auto when tools are present: %#v", gotReq["tool_choice"])
	}
	msgs := gotReq["messages"].([]any)
	first := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "be concise" {
		t.Fatalf("expected system prompt first, got %#v", first)
	}

	if resp.Content != "checking assets" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].ID != "call_1" || resp.ToolCalls[0].Name != "asset.list" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.ToolCalls[0].Arguments != `{"site":"HQ"}` {
		t.Fatalf("arguments must stay raw: %q", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage.InputTokens != 11 || resp.Usage.OutputTokens != 7 || resp.Usage.TotalTokens != 18 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
}

func TestChatCompletionsProvider_NoToolsOmitsToolFields(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`))
	}))
	defer srv.Close()

	p, err := newChatCompletionsProviderForTest("k", "m", 0, srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	resp, err := p.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if _, present := gotReq["tools"]; present {
		t.Fatalf("tools must be omitted when empty: %#v", gotReq["tools"])
	}
	if _, present := gotReq["tool_choice"]; present {
		t.Fatalf("tool_choice must be omitted when no tools: %#v", gotReq["tool_choice"])
	}
	if resp.Content != "hi" || len(resp.ToolCalls) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChatCompletionsProvider_ToolHistoryRoundTrip(t *testing.T) {
	var gotReq chatCompletionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	}))
	defer srv.Close()

	p, err := newChatCompletionsProviderForTest("k", "m", 0, srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = p.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{
			{Role: RoleUser, Content: "go"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "x", Arguments: `{}`}}},
			{Role: RoleTool, ToolCallID: "c1", Content: `{"ok":true}`},
		},
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if len(gotReq.Messages) != 3 {
		t.Fatalf("expected 3 messages on the wire, got %d", len(gotReq.Messages))
	}
	assistant := gotReq.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "c1" || assistant.ToolCalls[0].Type != "function" {
		t.Fatalf("unexpected assistant tool calls: %+v", assistant.ToolCalls)
	}
	toolMsg := gotReq.Messages[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "c1" {
		t.Fatalf("unexpected tool message: %+v", toolMsg)
	}
}

func TestChatCompletionsProvider_ErrorBodyTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(strings.Repeat("e", 2000)))
	}))
	defer srv.Close()

	p, err := newChatCompletionsProviderForTest("k", "m", 0, srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	_, err = p.Chat(context.Background(), ChatRequest{
		Messages: []ChatMessage{{Role: RoleUser, Content: "hello"}},
	})
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if !strings.Contains(err.Error(), "...(truncated)") {
		t.Fatalf("expected truncated body marker, got %v", err)
	}
	if len(err.Error()) > 600 {
		t.Fatalf("error not truncated: %d chars", len(err.Error()))
	}
}
