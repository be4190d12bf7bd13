package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
)

// anthropicProvider adapts the content-block message API. This family does
// not participate in tool orchestration here: tool definitions in the
// request are ignored and tool-role history is rejected.
type anthropicProvider struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int
}

func newAnthropicProvider(cfg config.LLMProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &anthropicProvider{
		client:    client,
		model:     anthropic.Model(cfg.Model),
		maxTokens: normalizeMaxTokens(cfg.MaxTokens),
	}, nil
}

func newAnthropicProviderForTest(apiKey, model string, maxTokens int, baseURL string, httpClient *http.Client) (Provider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("anthropic model is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)
	return &anthropicProvider{
		client:    client,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}, nil
}

// Chat sends the conversation and joins all returned text blocks with a
// newline into a single reply.
func (p *anthropicProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msgs, err := toAnthropicMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	body := anthropic.MessageNewParams{
		Model:     p.model,
		MaxTokens: int64(resolveMaxTokens(req.MaxTokens, p.maxTokens)),
		Messages:  msgs,
	}
	if req.SystemPrompt != "" {
		body.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		body.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %s", truncateForError(err.Error()))
	}

	var parts []string
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}

	usage := TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &ChatResponse{
		Content: strings.Join(parts, "\n"),
		Usage:   usage,
	}, nil
}

func toAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return nil, fmt.Errorf("message role %s is not supported by this provider family", msg.Role)
		}
	}
	return out, nil
}
