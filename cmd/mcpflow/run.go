package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/mohamedsaligh/mcp-server-client/internal/agent"
	"github.com/mohamedsaligh/mcp-server-client/internal/server"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var (
		sessionID  string
		userID     string
		answerOnly bool
	)
	cmd := &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one prompt and print its events as JSON lines",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = uuid.New().String()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			enc := json.NewEncoder(out)
			outcome := agent.Drain(a.pipeline.Run(ctx, agent.Request{
				SessionID: sessionID,
				UserID:    userID,
				Prompt:    strings.Join(args, " "),
			}), func(evt agent.Event) {
				if !answerOnly {
					_ = enc.Encode(evt)
				}
			})

			if ctx.Err() != nil {
				return ctx.Err()
			}
			if outcome.Error != "" {
				return errors.New(outcome.Error)
			}
			if answerOnly && outcome.Result != nil {
				fmt.Fprintln(out, outcome.Result.FinalAnswer)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id (default a new uuid)")
	cmd.Flags().StringVar(&userID, "user", server.DefaultUserID, "user id recorded with the run")
	cmd.Flags().BoolVar(&answerOnly, "answer", false, "print only the final answer")
	return cmd
}
