package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MAXGATE_HOME", dir)
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MAXGATE_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8765" {
		t.Fatalf("server.addr = %q", cfg.Server.Addr)
	}
	profile, ok := cfg.LLMProfile("")
	if !ok {
		t.Fatal("default profile missing")
	}
	if profile.Provider != "openai" || profile.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default profile: %+v", profile)
	}
	if cfg.Tools.MaxIterations != 6 {
		t.Fatalf("tools.max_iterations = %d", cfg.Tools.MaxIterations)
	}
	if cfg.Tools.InvokeTimeout != 30*time.Second {
		t.Fatalf("tools.invoke_timeout = %s", cfg.Tools.InvokeTimeout)
	}
	if cfg.Trace.Capacity != 500 {
		t.Fatalf("trace.capacity = %d", cfg.Trace.Capacity)
	}
}

func TestLoad_FileOverridesAndEnvExpansion(t *testing.T) {
	t.Setenv("TEST_MAXIMO_KEY", "maxkey-123")
	writeConfigFile(t, `
[server]
addr = ":9900"
token = "tok"

[llm.default]
provider = "openrouter"
api_key = "or-key"
model = "deepseek/deepseek-chat"
request_timeout = "90s"

[tenants.acme]
base_api_url = "https://maximo.acme.example/api"
api_key = "${TEST_MAXIMO_KEY}"

[tools]
registry_url = "https://registry.example"
max_iterations = 4
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9900" || cfg.Server.Token != "tok" {
		t.Fatalf("server section not overridden: %+v", cfg.Server)
	}
	profile, _ := cfg.LLMProfile("default")
	if profile.Provider != "openrouter" || profile.RequestTimeout != 90*time.Second {
		t.Fatalf("llm.default not overridden: %+v", profile)
	}
	acme, ok := cfg.Tenants["acme"]
	if !ok {
		t.Fatal("tenant acme missing")
	}
	if acme.APIKey != "maxkey-123" {
		t.Fatalf("env var not expanded: %q", acme.APIKey)
	}
	if cfg.Tools.MaxIterations != 4 {
		t.Fatalf("tools.max_iterations = %d", cfg.Tools.MaxIterations)
	}
	if cfg.Tools.ListTimeout != 10*time.Second {
		t.Fatal("unset fields must keep their defaults")
	}
}

func TestLLMProfile_Lookup(t *testing.T) {
	cfg := &Config{LLM: map[string]LLMProviderConfig{
		"default": {Provider: "openai"},
		"claude":  {Provider: "anthropic"},
	}}

	profile, ok := cfg.LLMProfile("claude")
	if !ok || profile.Provider != "anthropic" {
		t.Fatalf("named profile lookup failed: %+v", profile)
	}
	profile, ok = cfg.LLMProfile("")
	if !ok || profile.Provider != "openai" {
		t.Fatalf("empty name must select default, got %+v", profile)
	}
	if _, ok := cfg.LLMProfile("anthropicc"); ok {
		t.Fatal("unknown profile name must fail the lookup, not fall back to default")
	}
}

func TestLLMProviderConfigValidate(t *testing.T) {
	base := LLMProviderConfig{
		Provider:       "openai",
		APIKey:         "k",
		Model:          "gpt-4o-mini",
		RequestTimeout: time.Minute,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	noKey := base
	noKey.APIKey = ""
	if err := noKey.Validate(); err == nil {
		t.Fatal("expected api_key error")
	}

	compatible := base
	compatible.Provider = "openai-compatible"
	compatible.APIKey = ""
	if err := compatible.Validate(); err == nil {
		t.Fatal("openai-compatible needs base_url")
	}
	compatible.BaseURL = "http://localhost:11434/v1"
	if err := compatible.Validate(); err != nil {
		t.Fatalf("openai-compatible with base_url rejected: %v", err)
	}

	unknown := base
	unknown.Provider = "llama-farm"
	if err := unknown.Validate(); err == nil {
		t.Fatal("expected unsupported provider error")
	}
}

func TestTenantConfigValidate(t *testing.T) {
	valid := TenantConfig{BaseAPIURL: "https://maximo.example/api", APIKey: "k"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid tenant rejected: %v", err)
	}

	if err := (TenantConfig{APIKey: "k"}).Validate(); err == nil {
		t.Fatal("expected missing base_api_url error")
	}
	if err := (TenantConfig{BaseAPIURL: "/relative", APIKey: "k"}).Validate(); err == nil {
		t.Fatal("expected absolute URL error")
	}
	if err := (TenantConfig{BaseAPIURL: "https://maximo.example", User: "bob"}).Validate(); err == nil {
		t.Fatal("expected credentials error when password is missing")
	}
	basic := TenantConfig{BaseAPIURL: "https://maximo.example", User: "bob", Password: "pw"}
	if err := basic.Validate(); err != nil {
		t.Fatalf("user+password tenant rejected: %v", err)
	}
}

func TestConfigValidate_ReturnsFirstError(t *testing.T) {
	t.Setenv("MAXGATE_HOME", t.TempDir())
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Server.Addr = ""
	validateErr := cfg.Validate()
	if validateErr == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(validateErr.Error(), "server") {
		t.Fatalf("unexpected error: %v", validateErr)
	}
}

func TestWrite_RendersMergedTOML(t *testing.T) {
	writeConfigFile(t, `
[server]
addr = ":9100"
`)

	var buf bytes.Buffer
	if err := Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, ":9100") {
		t.Fatalf("user override missing from output:\n%s", out)
	}
	if !strings.Contains(out, "max_iterations") {
		t.Fatalf("defaults missing from output:\n%s", out)
	}
	if !strings.Contains(out, "30s") {
		t.Fatalf("durations should render human-readable:\n%s", out)
	}
}
