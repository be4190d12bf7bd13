package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/llm"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/tenant"
)

const (
	defaultListTimeout   = 10 * time.Second
	defaultInvokeTimeout = 30 * time.Second
)

// Result is the canonical outcome of one tool invocation. It is always
// produced: network and decode failures become OK=false payloads rather
// than errors, so the orchestration loop can hand them back to the model.
type Result struct {
	OK     bool `json:"ok"`
	// Status is the HTTP-style status of the invoke call, 0 when no
	// network attempt completed.
	Status int `json:"status"`
	Body   any `json:"body"`
}

// Client calls the tool-registry server.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	listTimeout   time.Duration
	invokeTimeout time.Duration
}

// NewClient builds a registry client for the given server URL.
func NewClient(registryURL string, listTimeout, invokeTimeout time.Duration) (*Client, error) {
	base, err := tenant.NormalizeBaseURL(registryURL)
	if err != nil {
		return nil, fmt.Errorf("registry URL: %w", err)
	}
	if listTimeout <= 0 {
		listTimeout = defaultListTimeout
	}
	if invokeTimeout <= 0 {
		invokeTimeout = defaultInvokeTimeout
	}
	return &Client{
		baseURL:       base,
		httpClient:    &http.Client{},
		listTimeout:   listTimeout,
		invokeTimeout: invokeTimeout,
	}, nil
}

// ListTools fetches and normalizes the tool catalog for a tenant.
func (c *Client) ListTools(ctx context.Context, tenantID string) ([]llm.ToolDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, c.listTimeout)
	defer cancel()

	endpoint := c.baseURL + "/tools"
	if tenantID != "" {
		endpoint += "?tenant=" + url.QueryEscape(tenantID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build tools request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tools response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("registry returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Tools []map[string]any `json:"tools"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode tools response: %w", err)
	}
	return NormalizeTools(parsed.Tools), nil
}

// Invoke executes one tool. It never returns an error: every failure mode
// degrades to an OK=false Result so tool failures stay data, not faults.
func (c *Client) Invoke(ctx context.Context, toolName string, args map[string]any, tenantID string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.invokeTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{
		"tool":   toolName,
		"args":   args,
		"tenant": tenantID,
	})
	if err != nil {
		return failure(0, "encode tool call", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(payload))
	if err != nil {
		return failure(0, "build tool call", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return failure(0, "tool call failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(http.StatusBadGateway, "read tool response", err)
	}

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	return Result{
		OK:     ok,
		Status: resp.StatusCode,
		Body:   decodeBody(body),
	}
}

// decodeBody keeps JSON bodies structured and falls back to the raw string.
func decodeBody(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return trimmed
}

func failure(status int, msg string, err error) Result {
	return Result{
		OK:     false,
		Status: status,
		Body: map[string]any{
			"error":  msg,
			"detail": err.Error(),
		},
	}
}
