// Package runtime is the orchestration entry point: it resolves request
// parameters against configuration, builds the provider and tool clients,
// and hands the run to the agent loop. All failures leave this package as
// typed errors the API layer renders as {error, detail} payloads.
package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/JanWillemSteur65/maximo-ai-agent/internal/agent"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/config"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/llm"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/logging"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/registry"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/tenant"
	"github.com/JanWillemSteur65/maximo-ai-agent/internal/trace"
)

// ErrorKind classifies a request failure for the API error payload.
type ErrorKind string

const (
	// KindConfigError covers failures detected before any network call.
	KindConfigError ErrorKind = "config_error"
	// KindProviderError covers fatal LLM provider call failures.
	KindProviderError ErrorKind = "provider_error"
	// KindInternalError covers everything else.
	KindInternalError ErrorKind = "internal_error"
)

// Error is a classified, user-visible request failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func configError(format string, args ...any) *Error {
	return &Error{Kind: KindConfigError, Detail: fmt.Sprintf(format, args...)}
}

// ChatParams is one inbound chat request.
type ChatParams struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	SystemPrompt    string  `json:"system_prompt"`
	Temperature     float64 `json:"temperature"`
	UserText        string  `json:"user_text"`
	Tenant          string  `json:"tenant"`
	ToolsEnabled    bool    `json:"tools_enabled"`
	ToolRegistryURL string  `json:"tool_registry_url"`
}

// ChatReply is the terminal answer of one orchestration run.
type ChatReply struct {
	Reply string         `json:"reply"`
	Usage llm.TokenUsage `json:"usage"`
}

// Service wires configuration, tenants, and the trace buffer into
// per-request orchestration runs.
type Service struct {
	cfg     *config.Config
	tenants *tenant.Registry
	traces  *trace.Buffer

	// Test seams: replaced by fakes in unit tests.
	newProvider   func(config.LLMProviderConfig) (llm.Provider, error)
	newToolClient func(registryURL string, cfg config.ToolsConfig) (agent.ToolClient, error)
}

// NewService builds the runtime service.
func NewService(cfg *config.Config, traces *trace.Buffer) *Service {
	return &Service{
		cfg:         cfg,
		tenants:     tenant.NewRegistry(cfg.Tenants),
		traces:      traces,
		newProvider: llm.NewProviderFromConfig,
		newToolClient: func(registryURL string, toolsCfg config.ToolsConfig) (agent.ToolClient, error) {
			return registry.NewClient(registryURL, toolsCfg.ListTimeout, toolsCfg.InvokeTimeout)
		},
	}
}

// Traces exposes the trace buffer for the read and stream endpoints.
func (s *Service) Traces() *trace.Buffer {
	return s.traces
}

// Chat runs one orchestration request end to end.
func (s *Service) Chat(ctx context.Context, params ChatParams) (*ChatReply, error) {
	if strings.TrimSpace(params.UserText) == "" {
		return nil, configError("user_text is required")
	}

	profile, ok := s.cfg.LLMProfile(params.Provider)
	if !ok {
		return nil, configError("no LLM profile for provider %q", params.Provider)
	}
	if params.Model != "" {
		profile.Model = params.Model
	}
	if err := profile.Validate(); err != nil {
		return nil, configError("llm profile %q: %v", params.Provider, err)
	}

	provider, err := s.newProvider(profile)
	if err != nil {
		return nil, configError("build provider: %v", err)
	}

	tenantID := ""
	if params.Tenant != "" {
		resolved, err := s.tenants.Resolve(params.Tenant)
		if err != nil {
			return nil, configError("%v", err)
		}
		tenantID = resolved.ID
	}

	registryURL := params.ToolRegistryURL
	if registryURL == "" {
		registryURL = s.cfg.Tools.RegistryURL
	}

	var toolClient agent.ToolClient
	if params.ToolsEnabled {
		switch {
		case !llm.SupportsTools(profile.Provider):
			// The tools flag is honored only for the OpenAI-compatible
			// family. Warn instead of silently diverging from the request.
			logging.Logger().Warn(
				"tools requested but provider family does not support tool orchestration",
				"provider", profile.Provider,
			)
		case registryURL == "":
			return nil, configError("tools enabled but no tool registry URL configured")
		default:
			toolClient, err = s.newToolClient(registryURL, s.cfg.Tools)
			if err != nil {
				return nil, configError("tool registry: %v", err)
			}
		}
	}

	result, err := agent.Run(ctx, agent.RunParams{
		Provider:      provider,
		ProviderName:  profile.Provider,
		Model:         profile.Model,
		Tools:         toolClient,
		TenantID:      tenantID,
		SystemPrompt:  params.SystemPrompt,
		UserText:      params.UserText,
		Temperature:   params.Temperature,
		MaxIterations: s.cfg.Tools.MaxIterations,
		Trace:         s.traces,
	})
	if err != nil {
		return nil, &Error{Kind: KindProviderError, Detail: err.Error()}
	}

	return &ChatReply{Reply: result.Reply, Usage: result.Usage}, nil
}
