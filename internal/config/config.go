// Package config loads gateway runtime configuration from a TOML file and environment variables, exposing typed structs and accessors for all sections.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const defaultProfile = "default"

// Config is the runtime configuration loaded from defaults, config.toml, and env vars.
type Config struct {
	// HomeDir is runtime-resolved from MAXGATE_HOME and not read from config.
	HomeDir string                       `mapstructure:"-"`
	Server  ServerConfig                 `mapstructure:"server"`
	LLM     map[string]LLMProviderConfig `mapstructure:"llm"`
	Tenants map[string]TenantConfig      `mapstructure:"tenants"`
	Tools   ToolsConfig                  `mapstructure:"tools"`
	Trace   TraceConfig                  `mapstructure:"trace"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Token enables bearer auth on /api/* when non-empty.
	Token string `mapstructure:"token"`
}

// LLMProviderConfig configures one LLM provider profile.
type LLMProviderConfig struct {
	Provider       string        `mapstructure:"provider"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	BaseURL        string        `mapstructure:"base_url"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// TenantConfig configures one Maximo tenant reachable through the tool registry.
type TenantConfig struct {
	BaseAPIURL string `mapstructure:"base_api_url"`
	APIKey     string `mapstructure:"api_key"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
}

// ToolsConfig controls tool-registry access and the orchestration loop bounds.
type ToolsConfig struct {
	RegistryURL   string        `mapstructure:"registry_url"`
	InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
	ListTimeout   time.Duration `mapstructure:"list_timeout"`
	MaxIterations int           `mapstructure:"max_iterations"`
}

// TraceConfig controls the in-memory trace ring buffer.
type TraceConfig struct {
	Capacity   int `mapstructure:"capacity"`
	PayloadCap int `mapstructure:"payload_cap"`
}

var defaultConfig = Config{
	Server: ServerConfig{
		Addr:  ":8765",
		Token: "",
	},
	LLM: map[string]LLMProviderConfig{
		defaultProfile: {
			APIKey:         "",
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			MaxTokens:      4096,
			RequestTimeout: 60 * time.Second,
		},
	},
	Tools: ToolsConfig{
		RegistryURL:   "",
		InvokeTimeout: 30 * time.Second,
		ListTimeout:   10 * time.Second,
		MaxIterations: 6,
	},
	Trace: TraceConfig{
		Capacity:   500,
		PayloadCap: 4096,
	},
}

// homeDir returns the gateway home directory.
// Uses MAXGATE_HOME env var if set, otherwise defaults to ~/.maxgate.
func homeDir() (string, error) {
	if dir := os.Getenv("MAXGATE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".maxgate"), nil
}

func homeConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.toml")
}

// Load merges hardcoded defaults and config file values in that order.
// Config is always at $MAXGATE_HOME/config.toml.
func Load() (*Config, error) {
	homeDir, err := homeDir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		expandEnvStringHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	if err := v.Unmarshal(&cfg, func(c *mapstructure.DecoderConfig) {
		c.DecodeHook = decodeHook
	}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.HomeDir = homeDir

	return &cfg, nil
}

// Write writes the merged configuration (defaults overlaid by user
// config) to w in TOML format.
func Write(w io.Writer) error {
	if w == nil {
		return errors.New("writer is required")
	}

	homeDir, err := homeDir()
	if err != nil {
		return err
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(homeConfigPath(homeDir))
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	// Keep duration fields human-readable in generated TOML.
	v.Set("llm.default.request_timeout", v.GetDuration("llm.default.request_timeout").String())
	v.Set("tools.invoke_timeout", v.GetDuration("tools.invoke_timeout").String())
	v.Set("tools.list_timeout", v.GetDuration("tools.list_timeout").String())

	if err := v.WriteConfigTo(w); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", defaultConfig.Server.Addr)
	v.SetDefault("server.token", defaultConfig.Server.Token)

	v.SetDefault("llm.default.api_key", defaultConfig.LLM[defaultProfile].APIKey)
	v.SetDefault("llm.default.provider", defaultConfig.LLM[defaultProfile].Provider)
	v.SetDefault("llm.default.model", defaultConfig.LLM[defaultProfile].Model)
	v.SetDefault("llm.default.max_tokens", defaultConfig.LLM[defaultProfile].MaxTokens)
	v.SetDefault("llm.default.request_timeout", defaultConfig.LLM[defaultProfile].RequestTimeout)

	v.SetDefault("tools.registry_url", defaultConfig.Tools.RegistryURL)
	v.SetDefault("tools.invoke_timeout", defaultConfig.Tools.InvokeTimeout)
	v.SetDefault("tools.list_timeout", defaultConfig.Tools.ListTimeout)
	v.SetDefault("tools.max_iterations", defaultConfig.Tools.MaxIterations)

	v.SetDefault("trace.capacity", defaultConfig.Trace.Capacity)
	v.SetDefault("trace.payload_cap", defaultConfig.Trace.PayloadCap)
}

// LLMProfile returns the named LLM profile. An empty name selects
// "default"; an unknown name fails the lookup so a misspelled provider
// is never silently answered by a different profile.
func (c *Config) LLMProfile(name string) (LLMProviderConfig, bool) {
	if name == "" {
		name = defaultProfile
	}
	llm, ok := c.LLM[name]
	return llm, ok
}

func expandEnvStringHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.String {
			return data, nil
		}
		value, ok := data.(string)
		if !ok {
			return data, nil
		}
		return os.ExpandEnv(value), nil
	}
}
