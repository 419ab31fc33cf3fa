package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/mohamedsaligh/mcp-server-client/internal/store"
	"github.com/spf13/cobra"
)

// withStore opens the configured store for the duration of fn.
func withStore(fn func(cmd *cobra.Command, args []string, st *store.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return fn(cmd, args, st)
	}
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the database schema",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Database ready.")
			return nil
		}),
	}
}

func newServersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "servers",
		Short: "Manage registered MCP servers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered MCP servers",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			servers, err := st.ListServers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENDPOINT\tACTIVE\tKEYWORDS")
			for _, s := range servers {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", s.ID, s.Name, s.EndpointURL, s.IsActive, s.Keywords)
			}
			return w.Flush()
		}),
	})

	var keywords string
	var inactive bool
	add := &cobra.Command{
		Use:   "add <name> <endpoint_url>",
		Short: "Register or update an MCP server",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			srv := store.Server{Name: args[0], EndpointURL: args[1], Keywords: keywords, IsActive: !inactive}
			if existing, err := st.GetServerByName(cmd.Context(), srv.Name); err == nil {
				srv.ID = existing.ID
			}
			saved, err := st.SaveServer(cmd.Context(), srv)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "MCP Server saved: %s\n", saved.ID)
			return nil
		}),
	}
	add.Flags().StringVar(&keywords, "keywords", "", "comma separated keywords shown to the planner")
	add.Flags().BoolVar(&inactive, "inactive", false, "register the server as inactive")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a registered MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			removed, err := st.DeleteServer(cmd.Context(), args[0])
			return reportDelete(cmd, removed, err)
		}),
	})
	return cmd
}

func newLLMsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "llms",
		Short: "Manage planning oracle credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List credentials with masked keys",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			creds, err := st.ListCredentials(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tMODEL\tKEY")
			for _, c := range creds {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Provider, c.Model, c.MaskedKey())
			}
			return w.Flush()
		}),
	})

	var cred store.Credential
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Store or update a credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cred.Name = args[0]
			if cred.Provider == "" {
				cred.Provider = defaultProvider(cfg)
			}
			defaults := cfg.Provider(cred.Provider)
			if cred.APIKey == "" {
				cred.APIKey = defaults.APIKey
			}
			if cred.Model == "" {
				cred.Model = defaults.Model
			}
			if cred.APIKey == "" {
				return fmt.Errorf("no api key given and providers.%s.api_key is empty", cred.Provider)
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			saved, err := st.SaveCredential(cmd.Context(), cred)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "LLM API saved: %s\n", saved.ID)
			return nil
		},
	}
	add.Flags().StringVar(&cred.Provider, "provider", "", "back-end type: openai or openrouter (default the first enabled provider)")
	add.Flags().StringVar(&cred.APIKey, "api-key", "", "API key (default providers.<provider>.api_key)")
	add.Flags().StringVar(&cred.Model, "model", "", "model name (default providers.<provider>.model)")
	add.Flags().StringVar(&cred.BaseURL, "base-url", "", "override the API base URL")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a credential",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, args []string, st *store.Store) error {
			removed, err := st.DeleteCredential(cmd.Context(), args[0])
			return reportDelete(cmd, removed, err)
		}),
	})
	return cmd
}

func reportDelete(cmd *cobra.Command, removed bool, err error) error {
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("not found")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
	return nil
}
