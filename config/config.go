// Package config loads the per-role model configuration from a YAML file,
// following the usual precedence: file values first, environment variables on
// top. Each capability role maps to a provider endpoint so a single session
// can mix fast and strong backends.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/hupe1980/agenthive/agent"
	"github.com/hupe1980/agenthive/core"
	"github.com/hupe1980/agenthive/model"
	"github.com/hupe1980/agenthive/model/anthropic"
	"github.com/hupe1980/agenthive/model/openai"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
)

// ConfigFileName is the user config file in the home directory.
const ConfigFileName = ".agenthive.yaml"

// RoleConfig binds one capability role to a provider endpoint. Provider is
// "anthropic" or "openai"; any OpenAI compatible endpoint works through the
// openai provider with a custom base_url.
type RoleConfig struct {
	Provider    string  `mapstructure:"provider"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	ModelName   string  `mapstructure:"model_name"`
	MaxTokens   int64   `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// configured reports whether the entry carries enough to build a backend.
func (rc RoleConfig) configured() bool {
	return rc.APIKey != "" && rc.ModelName != ""
}

// Config is the full file shape.
type Config struct {
	Roles       map[string]RoleConfig `mapstructure:"roles"`
	MaxTokens   int64                 `mapstructure:"max_tokens"`
	Temperature float64               `mapstructure:"temperature"`
	WorkingDir  string                `mapstructure:"working_directory"`
	Verbose     bool                  `mapstructure:"verbose"`
}

// ConfiguredRoles returns the roles with a usable entry, in escalation order.
func (c *Config) ConfiguredRoles() []core.Role {
	var roles []core.Role
	for _, role := range core.EscalationOrder() {
		if rc, ok := c.Roles[string(role)]; ok && rc.configured() {
			roles = append(roles, role)
		}
	}
	return roles
}

// Path returns the user config file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ConfigFileName
	}
	return filepath.Join(home, ConfigFileName)
}

// Load reads the user config file. A missing file yields defaults so a fresh
// install can still run against environment variables.
func Load() (*Config, error) {
	return LoadFromPath(Path())
}

// LoadFromPath reads a config file from an explicit location.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// setDefaults seeds empty entries for every role so a partial file still
// unmarshals into the full map.
func setDefaults(v *viper.Viper) {
	v.SetDefault("max_tokens", 4096)
	v.SetDefault("temperature", 0.0)
	for _, role := range core.Roles() {
		v.SetDefault("roles."+string(role)+".provider", "openai")
	}
}

// applyEnv overlays API keys from the environment. ${VAR} references inside
// file values are expanded, and provider-level keys fill entries that have a
// model but no key of their own.
func applyEnv(cfg *Config) {
	for name, rc := range cfg.Roles {
		rc.APIKey = os.ExpandEnv(rc.APIKey)
		rc.BaseURL = os.ExpandEnv(rc.BaseURL)
		if rc.APIKey == "" {
			switch strings.ToLower(rc.Provider) {
			case "anthropic":
				rc.APIKey = os.Getenv("ANTHROPIC_API_KEY")
			default:
				rc.APIKey = os.Getenv("OPENAI_API_KEY")
			}
		}
		cfg.Roles[name] = rc
	}
}

// BuildRegistry constructs the agent bindings for all configured roles.
func BuildRegistry(cfg *Config, optFns ...func(o *agent.RegistryOptions)) (*agent.Registry, error) {
	registry := agent.NewRegistry(optFns...)

	for _, role := range cfg.ConfiguredRoles() {
		rc := cfg.Roles[string(role)]

		maxTokens := rc.MaxTokens
		if maxTokens <= 0 {
			maxTokens = cfg.MaxTokens
		}
		temperature := rc.Temperature
		if temperature == 0 {
			temperature = cfg.Temperature
		}

		backend, err := buildModel(rc, maxTokens, temperature)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", role, err)
		}

		registry.Add(&agent.Binding{
			Role:        role,
			Model:       backend,
			ModelName:   rc.ModelName,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		})
	}

	return registry, nil
}

func buildModel(rc RoleConfig, maxTokens int64, temperature float64) (model.Model, error) {
	switch strings.ToLower(rc.Provider) {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.Model = anthropicsdk.Model(rc.ModelName)
			o.APIKey = rc.APIKey
			o.BaseURL = rc.BaseURL
			o.MaxTokens = maxTokens
			o.Temperature = temperature
		}), nil
	case "openai", "":
		return openai.NewModel(func(o *openai.Options) {
			o.Model = rc.ModelName
			o.APIKey = rc.APIKey
			o.BaseURL = rc.BaseURL
			o.MaxCompletionTokens = maxTokens
			o.Temperature = temperature
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", rc.Provider)
	}
}
