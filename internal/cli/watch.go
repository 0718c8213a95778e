package cli

import (
	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
	"github.com/jbohnslav/kingdom-sub000/internal/tui"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [id]",
		Short: "Follow a thread live, including in-flight member streams",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			id, err := threadArg(scope, args)
			if err != nil {
				return err
			}
			ts := thread.NewStore(scope)
			if _, err := ts.Get(id); err != nil {
				return err
			}
			configs, err := agent.List(scope)
			if err != nil {
				return err
			}
			backends := map[string]string{}
			for _, cfg := range configs {
				backends[cfg.Name] = cfg.Backend
			}
			settings, err := config.LoadSettings(scope)
			if err != nil {
				return err
			}
			return tui.Run(id, ts.Dir(id), backends, settings.PollInterval())
		},
	}
}
