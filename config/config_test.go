package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/agenthive/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".agenthive.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
max_tokens: 8192
temperature: 0.2
roles:
  fast:
    provider: openai
    api_key: sk-fast
    base_url: https://llm.internal/v1
    model_name: small-model
  strongest:
    provider: anthropic
    api_key: sk-strong
    model_name: big-model
    max_tokens: 16384
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, int64(8192), cfg.MaxTokens)
	assert.InDelta(t, 0.2, cfg.Temperature, 0.001)

	fast := cfg.Roles["fast"]
	assert.Equal(t, "openai", fast.Provider)
	assert.Equal(t, "sk-fast", fast.APIKey)
	assert.Equal(t, "https://llm.internal/v1", fast.BaseURL)
	assert.Equal(t, "small-model", fast.ModelName)

	strongest := cfg.Roles["strongest"]
	assert.Equal(t, "anthropic", strongest.Provider)
	assert.Equal(t, int64(16384), strongest.MaxTokens)
}

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, int64(4096), cfg.MaxTokens)
	assert.Empty(t, cfg.ConfiguredRoles())
}

func TestLoadFromPath_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "sk-from-env")
	path := writeConfig(t, `
roles:
  balanced:
    provider: openai
    api_key: "${TEST_LLM_KEY}"
    model_name: mid-model
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", cfg.Roles["balanced"].APIKey)
}

func TestConfiguredRoles_EscalationOrder(t *testing.T) {
	path := writeConfig(t, `
roles:
  fast:
    api_key: k
    model_name: m
  strongest:
    api_key: k
    model_name: m
  reasoning:
    api_key: k
    model_name: m
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	roles := cfg.ConfiguredRoles()
	assert.Equal(t, []core.Role{core.RoleStrongest, core.RoleReasoning, core.RoleFast}, roles)
}

func TestBuildRegistry(t *testing.T) {
	path := writeConfig(t, `
roles:
  fast:
    provider: openai
    api_key: sk-fast
    model_name: small-model
  strongest:
    provider: anthropic
    api_key: sk-strong
    model_name: big-model
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	registry, err := BuildRegistry(cfg)
	require.NoError(t, err)

	fast, ok := registry.Get(core.RoleFast)
	require.True(t, ok)
	assert.Equal(t, "small-model", fast.ModelName)
	assert.Equal(t, "openai", fast.Model.Info().Provider)

	strongest, ok := registry.Get(core.RoleStrongest)
	require.True(t, ok)
	assert.Equal(t, "anthropic", strongest.Model.Info().Provider)

	_, ok = registry.Get(core.RoleBalanced)
	assert.False(t, ok)
}

func TestBuildRegistry_UnknownProvider(t *testing.T) {
	path := writeConfig(t, `
roles:
  fast:
    provider: carrierpigeon
    api_key: k
    model_name: m
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	_, err = BuildRegistry(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrierpigeon")
}

func TestWriteSample_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".agenthive.yaml")

	require.NoError(t, WriteSample(path))
	assert.Error(t, WriteSample(path), "existing file must not be overwritten")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Roles, 4)
	assert.Equal(t, "anthropic", cfg.Roles["strongest"].Provider)
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".agenthive.yaml")
	cfg := &Config{
		MaxTokens:   2048,
		Temperature: 0.5,
		Roles: map[string]RoleConfig{
			"fast": {Provider: "openai", APIKey: "sk-x", ModelName: "small-model"},
		},
	}

	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), loaded.MaxTokens)
	assert.Equal(t, "small-model", loaded.Roles["fast"].ModelName)
}
