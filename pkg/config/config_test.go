package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
app:
  name: flow
  listen: ":9000"
memory:
  path: /tmp/flow.db
pipeline:
  discovery_timeout: 2s
providers:
  openai:
    model: gpt-4o-mini
    enabled: true
gateways:
  telegram:
    token: abc
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flow", cfg.App.Name)
	assert.Equal(t, ":9000", cfg.App.Listen)
	assert.Equal(t, "/tmp/flow.db", cfg.Memory.Path)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.DiscoveryTimeout)
	assert.Equal(t, 20*time.Second, cfg.Pipeline.ProcessTimeout)
	assert.Equal(t, 16, cfg.Pipeline.EventBuffer)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "openai", name)
	assert.Equal(t, "gpt-4o-mini", p.Model)

	tg, ok := cfg.GetTelegramConfig()
	assert.True(t, ok)
	assert.Equal(t, "abc", tg.Token)
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"app": {"name": "json-flow"}, "memory": {"path": "x.db"}}`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json-flow", cfg.App.Name)
	assert.Equal(t, "x.db", cfg.Memory.Path)
	assert.Equal(t, "./prompts", cfg.App.PromptsDir)

	_, ok := cfg.GetTelegramConfig()
	assert.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	assert.Equal(t, "config.yaml", ResolvePath(""))
	assert.Equal(t, "a.yaml", ResolvePath("a.yaml"))

	t.Setenv(EnvConfigPath, "env.yaml")
	assert.Equal(t, "env.yaml", ResolvePath(""))
}

func TestGovernanceSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
governance:
  deny_servers: [shell]
  deny_payload_patterns: ['rm\s+-rf']
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Governance.Enabled())
	assert.Equal(t, []string{"shell"}, cfg.Governance.DenyServers)
	assert.Equal(t, []string{`rm\s+-rf`}, cfg.Governance.DenyPayloadPatterns)
	assert.Empty(t, cfg.Governance.AllowHosts)

	assert.False(t, GovernanceConfig{}.Enabled())
}

func TestDefaultProviderIsFirstEnabledByName(t *testing.T) {
	cfg := &Config{Providers: map[string]ProviderConfig{
		"zeta":       {Model: "z", Enabled: true},
		"openrouter": {Model: "or", Enabled: true},
		"openai":     {Model: "oa"},
	}}
	for i := 0; i < 5; i++ {
		name, p := cfg.GetDefaultProvider()
		assert.Equal(t, "openrouter", name)
		assert.Equal(t, "or", p.Model)
	}

	name, _ := (&Config{}).GetDefaultProvider()
	assert.Equal(t, "", name)
}
