package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validatable is implemented by config sections that can self-validate.
type Validatable interface {
	Validate() error
}

// Validate checks required LLM provider fields and provider-specific rules.
func (c LLMProviderConfig) Validate() error {
	if c.Provider == "" {
		return errors.New("provider is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be > 0")
	}

	switch c.Provider {
	case "openai", "openrouter", "anthropic", "gemini", "watsonx":
		if c.APIKey == "" {
			return errors.New("api_key is required")
		}
	case "openai-compatible":
		// Self-hosted endpoints may run without a key, but need an address.
		if c.BaseURL == "" {
			return errors.New("base_url is required")
		}
	default:
		return fmt.Errorf("unsupported provider %q", c.Provider)
	}
	return nil
}

// Validate checks that a tenant resolves to a usable API root.
func (c TenantConfig) Validate() error {
	base := strings.TrimSpace(c.BaseAPIURL)
	if base == "" {
		return errors.New("base_api_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_api_url %q is not an absolute URL", c.BaseAPIURL)
	}
	if c.APIKey == "" && (c.User == "" || c.Password == "") {
		return errors.New("either api_key or user+password is required")
	}
	return nil
}

// Validate checks loop bounds and registry timeouts.
func (c ToolsConfig) Validate() error {
	if c.MaxIterations <= 0 {
		return errors.New("max_iterations must be > 0")
	}
	if c.InvokeTimeout <= 0 {
		return errors.New("invoke_timeout must be > 0")
	}
	if c.ListTimeout <= 0 {
		return errors.New("list_timeout must be > 0")
	}
	return nil
}

// Validate checks trace buffer bounds.
func (c TraceConfig) Validate() error {
	if c.Capacity <= 0 {
		return errors.New("capacity must be > 0")
	}
	if c.PayloadCap <= 0 {
		return errors.New("payload_cap must be > 0")
	}
	return nil
}

// Validate checks the listener address.
func (c ServerConfig) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("addr is required")
	}
	return nil
}

// Validate validates startup configuration and returns the first fatal error.
func (cfg *Config) Validate() error {
	var errs []error

	if len(cfg.LLM) == 0 {
		errs = append(errs, errors.New("at least one llm.* profile is required"))
	}

	if err := cfg.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}
	if err := cfg.Tools.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tools: %w", err))
	}
	if err := cfg.Trace.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("trace: %w", err))
	}

	for name, llmCfg := range cfg.LLM {
		if err := llmCfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("llm.%s: %w", name, err))
		}
	}
	for name, tenantCfg := range cfg.Tenants {
		if err := tenantCfg.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("tenants.%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
