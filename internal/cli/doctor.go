package cli

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Verify agent CLIs and runtime dependencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			if err := agent.EnsureDefaults(scope); err != nil {
				return err
			}
			configs, err := agent.List(scope)
			if err != nil {
				return err
			}

			var problems []string
			if _, err := exec.LookPath("git"); err != nil {
				problems = append(problems, "missing dependency: git (not found on PATH)")
			}
			out := cmd.OutOrStdout()
			for _, cfg := range configs {
				bin := binaryFor(cfg)
				if _, err := exec.LookPath(bin); err != nil {
					problem := fmt.Sprintf("%s: %s not found on PATH", cfg.Name, bin)
					if cfg.InstallHint != "" {
						problem += " (install: " + cfg.InstallHint + ")"
					}
					problems = append(problems, problem)
					continue
				}
				fmt.Fprintf(out, "%s: ok (%s)\n", cfg.Name, bin)
			}

			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}

// binaryFor picks the executable to probe: the version command's argv[0]
// when configured, else the cli's.
func binaryFor(cfg *agent.Config) string {
	source := cfg.VersionCommand
	if source == "" {
		source = cfg.CLI
	}
	fields := strings.Fields(source)
	if len(fields) == 0 {
		return cfg.Name
	}
	return fields[0]
}
