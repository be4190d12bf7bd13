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

const watsonxGenerationVersion = "2024-05-31"

// watsonxProvider adapts the text-generation API: the conversation is
// flattened into one prompt and the reply is results[0].generated_text.
// No tool orchestration for this family.
type watsonxProvider struct {
	apiKey     string
	model      string
	maxTokens  int
	baseURL    string
	httpClient *http.Client
}

func newWatsonxProvider(cfg config.LLMProviderConfig) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("watsonx api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("watsonx model is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		// Endpoints are region-specific, there is no usable global default.
		return nil, fmt.Errorf("watsonx base_url is required")
	}
	return &watsonxProvider{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  normalizeMaxTokens(cfg.MaxTokens),
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
	}, nil
}

func newWatsonxProviderForTest(apiKey, model string, maxTokens int, baseURL string, httpClient *http.Client) (Provider, error) {
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("watsonx model is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &watsonxProvider{
		apiKey:     apiKey,
		model:      model,
		maxTokens:  maxTokens,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Chat flattens the conversation into a single prompt and returns the
// generated text.
func (p *watsonxProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := watsonxRequest{
		ModelID: p.model,
		Input:   flattenPrompt(req.SystemPrompt, req.Messages),
		Parameters: watsonxParameters{
			MaxNewTokens: resolveMaxTokens(req.MaxTokens, p.maxTokens),
			Temperature:  req.Temperature,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal watsonx request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ml/v1/text/generation?version=%s", p.baseURL, watsonxGenerationVersion)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build watsonx request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("watsonx request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read watsonx response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("watsonx API returned %s: %s", httpResp.Status, truncateForError(strings.TrimSpace(string(respBody))))
	}

	var parsed watsonxResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode watsonx response: %s: %w", truncateForError(strings.TrimSpace(string(respBody))), err)
	}
	if len(parsed.Results) == 0 {
		return nil, fmt.Errorf("watsonx response has no results")
	}

	result := parsed.Results[0]
	usage := TokenUsage{
		InputTokens:  result.InputTokenCount,
		OutputTokens: result.GeneratedTokenCount,
	}
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens

	return &ChatResponse{
		Content: result.GeneratedText,
		Usage:   usage,
	}, nil
}

type watsonxRequest struct {
	ModelID    string            `json:"model_id"`
	Input      string            `json:"input"`
	Parameters watsonxParameters `json:"parameters"`
}

type watsonxParameters struct {
	MaxNewTokens int     `json:"max_new_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

type watsonxResponse struct {
	Results []struct {
		GeneratedText       string `json:"generated_text"`
		InputTokenCount     int    `json:"input_token_count"`
		GeneratedTokenCount int    `json:"generated_token_count"`
	} `json:"results"`
}

func flattenPrompt(systemPrompt string, messages []ChatMessage) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	for _, msg := range messages {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}
