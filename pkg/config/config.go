package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the config file when no path is given on the command line.
const EnvConfigPath = "MCPFLOW_CONFIG"

type Config struct {
	App        AppConfig                 `yaml:"app"`
	Gateways   map[string]GatewayConfig  `yaml:"gateways"`
	Providers  map[string]ProviderConfig `yaml:"providers"`
	Memory     MemoryConfig              `yaml:"memory"`
	Pipeline   PipelineConfig            `yaml:"pipeline"`
	Governance GovernanceConfig          `yaml:"governance"`
}

type AppConfig struct {
	Name       string `yaml:"name"`
	Listen     string `yaml:"listen"`
	PromptsDir string `yaml:"prompts_dir"`
	LogDir     string `yaml:"log_dir"`
}

type GatewayConfig struct {
	Token   string `yaml:"token"`
	Enabled bool   `yaml:"enabled"`
}

// ProviderConfig holds per back-end defaults for the planning oracle. API keys
// live in the credential registry; a key set here is only used by `llms add`
// when none is passed on the command line.
type ProviderConfig struct {
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Enabled     bool    `yaml:"enabled"`
}

type MemoryConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// PipelineConfig bounds the network calls made by one orchestration run.
type PipelineConfig struct {
	DiscoveryTimeout time.Duration `yaml:"discovery_timeout"`
	ProcessTimeout   time.Duration `yaml:"process_timeout"`
	OracleTimeout    time.Duration `yaml:"oracle_timeout"`
	EventBuffer      int           `yaml:"event_buffer"`
}

// GovernanceConfig restricts which steps may be dispatched. Empty lists
// allow everything.
type GovernanceConfig struct {
	DenyServers         []string `yaml:"deny_servers"`
	AllowHosts          []string `yaml:"allow_hosts"`
	DenyPayloadPatterns []string `yaml:"deny_payload_patterns"`
}

// Enabled reports whether any rule is configured.
func (g GovernanceConfig) Enabled() bool {
	return len(g.DenyServers) > 0 || len(g.AllowHosts) > 0 || len(g.DenyPayloadPatterns) > 0
}

// Load reads the config file at path. YAML and JSON are both accepted.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ResolvePath picks the config file: explicit flag, then MCPFLOW_CONFIG, then config.yaml.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(EnvConfigPath); v != "" {
		return v
	}
	return "config.yaml"
}

// Normalize fills unset values with defaults.
func (c *Config) Normalize() {
	if c.App.Name == "" {
		c.App.Name = "mcpflow"
	}
	if c.App.Listen == "" {
		c.App.Listen = ":8000"
	}
	if c.App.PromptsDir == "" {
		c.App.PromptsDir = "./prompts"
	}
	if c.App.LogDir == "" {
		c.App.LogDir = "logs"
	}
	if c.Memory.Type == "" {
		c.Memory.Type = "sqlite"
	}
	if c.Memory.Path == "" {
		c.Memory.Path = "mcpflow.db"
	}
	if c.Pipeline.DiscoveryTimeout <= 0 {
		c.Pipeline.DiscoveryTimeout = 5 * time.Second
	}
	if c.Pipeline.ProcessTimeout <= 0 {
		c.Pipeline.ProcessTimeout = 20 * time.Second
	}
	if c.Pipeline.OracleTimeout <= 0 {
		c.Pipeline.OracleTimeout = 60 * time.Second
	}
	if c.Pipeline.EventBuffer <= 0 {
		c.Pipeline.EventBuffer = 16
	}
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	if c.Gateways == nil {
		c.Gateways = map[string]GatewayConfig{}
	}
}

// Provider returns the defaults for an oracle back-end type.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

// GetDefaultProvider returns the first enabled provider in name order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name, p := range c.Providers {
		if p.Enabled {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "", ProviderConfig{}
	}
	sort.Strings(names)
	return names[0], c.Providers[names[0]]
}

// GetTelegramConfig returns telegram config if enabled
func (c *Config) GetTelegramConfig() (GatewayConfig, bool) {
	tg, ok := c.Gateways["telegram"]
	if ok && tg.Enabled && tg.Token != "" {
		return tg, true
	}
	return GatewayConfig{}, false
}
