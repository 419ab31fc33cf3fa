package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/pkg/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mcpflow",
	Short: "Plan and run requests across registered MCP servers",
	Long: `mcpflow asks a language model for a plan, runs each step against the
registered capability providers, chains their results and summarizes the
outcome. It serves the streaming HTTP API, a Telegram bot and a local CLI.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $MCPFLOW_CONFIG or config.yaml)")
	rootCmd.AddCommand(newServeCmd(), newRunCmd(), newSessionsCmd(), newHistoryCmd(),
		newServersCmd(), newLLMsCmd(), newInitDBCmd())
}

// loadConfig reads the config file. A missing default file yields defaults.
func loadConfig() (*config.Config, error) {
	path := config.ResolvePath(configPath)
	cfg, err := config.Load(path)
	if err != nil {
		if configPath == "" && os.Getenv(config.EnvConfigPath) == "" && errors.Is(err, fs.ErrNotExist) {
			cfg = &config.Config{}
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

func main() {
	log.SetOutput(observability.NewTermWriter())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
