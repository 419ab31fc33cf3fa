package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/mohamedsaligh/mcp-server-client/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "memory:\n  path: " + filepath.Join(dir, "cli.db") + "\nproviders:\n  openai:\n    api_key: sk-fromconfig1234\n    model: gpt-4o-mini\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestServersAndCredentialsCommands(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "--config", cfgPath, "init-db")
	require.NoError(t, err)
	assert.Contains(t, out, "Database ready.")

	_, err = execute(t, "--config", cfgPath, "servers", "add", "shape-area", "http://localhost:8002", "--keywords", "area,shape")
	require.NoError(t, err)
	out, err = execute(t, "--config", cfgPath, "servers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "shape-area")
	assert.Contains(t, out, "http://localhost:8002")

	_, err = execute(t, "--config", cfgPath, "llms", "add", "primary")
	require.NoError(t, err)
	out, err = execute(t, "--config", cfgPath, "llms", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "****1234")
	assert.NotContains(t, out, "sk-fromconfig")

	_, err = execute(t, "--config", cfgPath, "servers", "delete", "missing-id")
	assert.Error(t, err)
}

func TestOracleFactoryUsesProviderDefaults(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"openai": {Model: "gpt-4o-mini", Temperature: 0.2},
	}}
	cfg.Normalize()
	factory := oracleFactory(cfg)

	c, err := factory(store.Credential{Provider: "openai", APIKey: "sk-test"})
	require.NoError(t, err)
	oa, ok := c.(*llm.OpenAI)
	require.True(t, ok)
	assert.Equal(t, 0.2, oa.Temperature)

	_, err = factory(store.Credential{Provider: "openai"})
	assert.ErrorIs(t, err, llm.ErrAuth)

	_, err = factory(store.Credential{Provider: "cohere", APIKey: "k"})
	assert.ErrorIs(t, err, llm.ErrUnsupportedProvider)
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv(config.EnvConfigPath, "")
	configPath = ""

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.App.Listen)
	assert.Equal(t, "mcpflow.db", cfg.Memory.Path)
}

func TestNewPolicyFromConfig(t *testing.T) {
	policy, err := newPolicy(config.GovernanceConfig{DenyServers: []string{"shell"}, AllowHosts: []string{"localhost"}})
	require.NoError(t, err)
	assert.True(t, policy.DeniedServers["shell"])
	assert.True(t, policy.AllowedHosts["localhost"])

	_, err = newPolicy(config.GovernanceConfig{DenyPayloadPatterns: []string{"("}})
	assert.Error(t, err)
}

func TestOracleFactoryFallsBackToEnabledProvider(t *testing.T) {
	cfg := &config.Config{Providers: map[string]config.ProviderConfig{
		"openrouter": {Model: "openai/gpt-4o-mini", MaxTokens: 512, Enabled: true},
	}}
	cfg.Normalize()
	assert.Equal(t, "openrouter", defaultProvider(cfg))

	c, err := oracleFactory(cfg)(store.Credential{APIKey: "sk-test"})
	require.NoError(t, err)
	oa, ok := c.(*llm.OpenAI)
	require.True(t, ok)
	assert.Equal(t, 512, oa.MaxTokens)

	empty := &config.Config{}
	empty.Normalize()
	assert.Equal(t, "openai", defaultProvider(empty))
}
