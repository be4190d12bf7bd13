package llm

import (
	"fmt"
	"strings"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

const defaultMaxTokens = 4096

func normalizeMaxTokens(v int) int {
	if v <= 0 {
		return defaultMaxTokens
	}
	return v
}

// NewProviderFromConfig builds an LLM provider from the selected LLM profile.
func NewProviderFromConfig(cfg config.LLMProviderConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "openrouter", "openai-compatible":
		return newOpenAIProvider(cfg)
	case "anthropic":
		return newAnthropicProvider(cfg)
	case "gemini":
		return newGeminiProvider(cfg)
	case "watsonx":
		return newWatsonxProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// SupportsTools reports whether a provider family participates in tool
// orchestration. Only the OpenAI-compatible chat-completions family does;
// the other families return plain text and never receive tool definitions.
func SupportsTools(providerName string) bool {
	switch strings.ToLower(strings.TrimSpace(providerName)) {
	case "openai", "openrouter", "openai-compatible":
		return true
	default:
		return false
	}
}
