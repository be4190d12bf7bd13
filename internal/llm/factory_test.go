package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

func TestNewProviderFromConfig_UnsupportedProvider(t *testing.T) {
	_, err := NewProviderFromConfig(config.LLMProviderConfig{
		Provider: "carrierpigeon",
		Model:    "v1",
		APIKey:   "k",
	})
	if err == nil || !strings.Contains(err.Error(), "unsupported provider") {
		t.Fatalf("expected unsupported provider error, got %v", err)
	}
}

func TestNewProviderFromConfig_BuildsEachFamily(t *testing.T) {
	cases := []config.LLMProviderConfig{
		{Provider: "openai", Model: "gpt-4o-mini", APIKey: "k", RequestTimeout: time.Second},
		{Provider: "openrouter", Model: "deepseek/deepseek-chat", APIKey: "k", RequestTimeout: time.Second},
		{Provider: "openai-compatible", Model: "local", BaseURL: "http://localhost:8000/v1", RequestTimeout: time.Second},
		{Provider: "anthropic", Model: "claude-sonnet-4-5", APIKey: "k", RequestTimeout: time.Second},
		{Provider: "gemini", Model: "gemini-2.0-flash", APIKey: "k", RequestTimeout: time.Second},
		{Provider: "watsonx", Model: "ibm/granite-13b-chat-v2", APIKey: "k", BaseURL: "https://us-south.ml.cloud.ibm.com", RequestTimeout: time.Second},
	}
	for _, cfg := range cases {
		if _, err := NewProviderFromConfig(cfg); err != nil {
			t.Fatalf("%s: %v", cfg.Provider, err)
		}
	}
}

func TestSupportsTools(t *testing.T) {
	for name, want := range map[string]bool{
		"openai":            true,
		"OpenAI":            true,
		"openrouter":        true,
		"openai-compatible": true,
		"anthropic":         false,
		"gemini":            false,
		"watsonx":           false,
		"":                  false,
	} {
		if got := SupportsTools(name); got != want {
			t.Fatalf("SupportsTools(%q) = %v, want %v", name, got, want)
		}
	}
}
