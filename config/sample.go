package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags for writing.
type fileConfig struct {
	MaxTokens   int64                     `yaml:"max_tokens"`
	Temperature float64                   `yaml:"temperature"`
	WorkingDir  string                    `yaml:"working_directory,omitempty"`
	Verbose     bool                      `yaml:"verbose"`
	Roles       map[string]fileRoleConfig `yaml:"roles"`
}

type fileRoleConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	ModelName   string  `yaml:"model_name,omitempty"`
	MaxTokens   int64   `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
}

// Save writes the configuration back to its file.
func Save(cfg *Config, path string) error {
	out := fileConfig{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		WorkingDir:  cfg.WorkingDir,
		Verbose:     cfg.Verbose,
		Roles:       make(map[string]fileRoleConfig, len(cfg.Roles)),
	}
	for name, rc := range cfg.Roles {
		out.Roles[name] = fileRoleConfig{
			Provider:    rc.Provider,
			APIKey:      rc.APIKey,
			BaseURL:     rc.BaseURL,
			ModelName:   rc.ModelName,
			MaxTokens:   rc.MaxTokens,
			Temperature: rc.Temperature,
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

const sampleHeader = `# agenthive configuration
# Each role needs: provider, api_key, model_name.
# provider is "anthropic" or "openai"; any OpenAI compatible endpoint
# works via "openai" with a base_url.
# API keys may reference the environment, e.g. "${OPENAI_API_KEY}".

`

// WriteSample creates a starter config at path. An existing file is left
// untouched.
func WriteSample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	sample := fileConfig{
		MaxTokens:   4096,
		Temperature: 0.0,
		Roles:       map[string]fileRoleConfig{},
	}
	sample.Roles["fast"] = fileRoleConfig{
		Provider:  "openai",
		APIKey:    "${OPENAI_API_KEY}",
		ModelName: "gpt-4o-mini",
	}
	sample.Roles["balanced"] = fileRoleConfig{
		Provider:  "openai",
		APIKey:    "${OPENAI_API_KEY}",
		ModelName: "gpt-4o",
	}
	sample.Roles["reasoning"] = fileRoleConfig{
		Provider:  "anthropic",
		APIKey:    "${ANTHROPIC_API_KEY}",
		ModelName: "claude-3-5-sonnet-20241022",
	}
	sample.Roles["strongest"] = fileRoleConfig{
		Provider:  "anthropic",
		APIKey:    "${ANTHROPIC_API_KEY}",
		ModelName: "claude-3-opus-20240229",
	}

	data, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshaling sample config: %w", err)
	}
	return os.WriteFile(path, append([]byte(sampleHeader), data...), 0o600)
}
