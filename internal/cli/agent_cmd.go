package cli

import (
	"fmt"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/jbohnslav/kingdom-sub000/internal/session"
	"github.com/spf13/cobra"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Manage agent configs and sessions",
	}
	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentInitCmd())
	cmd.AddCommand(newAgentResetCmd())
	cmd.AddCommand(newAgentStatusCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			configs, err := agent.List(scope)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, cfg := range configs {
				fmt.Fprintf(out, "%s\tbackend=%s\tcli=%q\n", cfg.Name, cfg.Backend, cfg.CLI)
			}
			return nil
		},
	}
}

func newAgentInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write default agent config files (never overwrites edits)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			if err := agent.EnsureDefaults(scope); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "agent configs ready in %s/agents\n", scope)
			return nil
		},
	}
}

func newAgentResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset [name]",
		Short: "Forget saved conversation sessions, for one agent or all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			store := session.NewStore(scope)
			if len(args) == 1 {
				if err := store.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", args[0])
				return nil
			}
			configs, err := agent.List(scope)
			if err != nil {
				return err
			}
			for _, cfg := range configs {
				if err := store.Remove(cfg.Name); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reset all agent sessions")
			return nil
		},
	}
}

func newAgentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show non-idle agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			active, err := session.NewStore(scope).ListActive()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(active) == 0 {
				fmt.Fprintln(out, "all agents idle")
				return nil
			}
			for _, st := range active {
				line := fmt.Sprintf("%s\t%s", st.Name, st.Status)
				if st.Thread != "" {
					line += "\tthread=" + st.Thread
				}
				if st.LastActivity != nil {
					line += "\tlast=" + st.LastActivity.Format(time.RFC3339)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}
