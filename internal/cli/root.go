// Package cli is the cobra surface over the council, thread, and session
// packages. Commands stay thin; all behavior lives in the core packages.
package cli

import (
	"os"

	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/spf13/cobra"
)

func NewRootCmd(version string) *cobra.Command {
	var scopeOverride string

	cmd := &cobra.Command{
		Use:          "kingdom",
		Short:        "Kingdom runs a council of CLI coding agents from one seat",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			scope, err := config.ResolveScope(scopeOverride)
			if err != nil {
				return err
			}
			cmd.SetContext(config.WithScope(cmd.Context(), scope))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&scopeOverride, "scope", "", "Override the state directory (default: <project>/.kingdom/<branch>, env: KINGDOM_SCOPE)")

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newThreadCmd())
	cmd.AddCommand(newAgentCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
