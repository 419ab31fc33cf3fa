package main

import (
	"fmt"
	"os"

	"github.com/mohamedsaligh/mcp-server-client/internal/agent"
	"github.com/mohamedsaligh/mcp-server-client/internal/governance"
	"github.com/mohamedsaligh/mcp-server-client/internal/llm"
	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/mohamedsaligh/mcp-server-client/internal/tools"
	"github.com/mohamedsaligh/mcp-server-client/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// app holds the process-wide collaborators shared by the commands.
type app struct {
	cfg      *config.Config
	store    *store.Store
	registry *prometheus.Registry
	pipeline *agent.Pipeline
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Memory.Path)
}

func newApp(cfg *config.Config) (*app, error) {
	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	provider := tools.NewClient(cfg.Pipeline.DiscoveryTimeout, cfg.Pipeline.ProcessTimeout)

	p := agent.NewPipeline(st, provider, oracleFactory(cfg),
		agent.NewPromptManager(cfg.App.PromptsDir),
		observability.NewLogger(os.Stderr, cfg.App.LogDir),
		observability.NewMetrics(reg))
	if cfg.Governance.Enabled() {
		policy, err := newPolicy(cfg.Governance)
		if err != nil {
			st.Close()
			return nil, err
		}
		p.Policy = policy
	}
	p.EventBuffer = cfg.Pipeline.EventBuffer
	p.OracleTimeout = cfg.Pipeline.OracleTimeout

	return &app{cfg: cfg, store: st, registry: reg, pipeline: p}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func newPolicy(g config.GovernanceConfig) (*governance.RulePolicy, error) {
	policy := governance.NewRulePolicy()
	for _, name := range g.DenyServers {
		policy.DenyServer(name)
	}
	for _, host := range g.AllowHosts {
		policy.AllowHost(host)
	}
	for _, pattern := range g.DenyPayloadPatterns {
		if err := policy.DenyPayload(pattern); err != nil {
			return nil, fmt.Errorf("governance: invalid payload pattern %q: %w", pattern, err)
		}
	}
	return policy, nil
}

// defaultProvider is the first enabled provider in the config, or openai.
func defaultProvider(cfg *config.Config) string {
	if name, _ := cfg.GetDefaultProvider(); name != "" {
		return name
	}
	return "openai"
}

// oracleFactory fills whatever the stored credential leaves unset from the
// config defaults for its provider type.
func oracleFactory(cfg *config.Config) agent.OracleFactory {
	return func(cred store.Credential) (llm.Completer, error) {
		if cred.Provider == "" {
			cred.Provider = defaultProvider(cfg)
		}
		defaults := cfg.Provider(cred.Provider)
		opts := llm.Options{
			Provider:    cred.Provider,
			APIKey:      cred.APIKey,
			Model:       cred.Model,
			BaseURL:     cred.BaseURL,
			Temperature: defaults.Temperature,
			MaxTokens:   defaults.MaxTokens,
		}
		if opts.Model == "" {
			opts.Model = defaults.Model
		}
		if opts.BaseURL == "" {
			opts.BaseURL = defaults.BaseURL
		}
		return llm.New(opts)
	}
}
