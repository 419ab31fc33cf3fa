package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mohamedsaligh/mcp-server-client/internal/gateway"
	"github.com/mohamedsaligh/mcp-server-client/internal/observability"
	"github.com/mohamedsaligh/mcp-server-client/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when enabled, the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.App.Listen = listen
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if observability.IsTerminal() {
				observability.PrintBanner(os.Stdout, fmt.Sprintf("%s listening on %s", cfg.App.Name, cfg.App.Listen))
			} else {
				log.Printf("[ INIT ] %s listening on %s", cfg.App.Name, cfg.App.Listen)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			e := server.New(a.store, a.pipeline, a.registry)
			g.Go(func() error { return server.Serve(ctx, e, cfg.App.Listen) })

			if tgCfg, ok := cfg.GetTelegramConfig(); ok {
				tg, err := gateway.NewTelegramGateway(tgCfg.Token, a.pipeline)
				if err != nil {
					return fmt.Errorf("telegram gateway: %w", err)
				}
				g.Go(func() error { return runGateway(ctx, tg) })
			}

			err = g.Wait()
			log.Println("[ EXIT ] mcpflow stopped")
			return err
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (overrides app.listen)")
	return cmd
}

func runGateway(ctx context.Context, m gateway.Messenger) error {
	if err := m.Start(ctx); err != nil {
		log.Printf("[ FAIL ] gateway error: %v", err)
		return err
	}
	return nil
}
