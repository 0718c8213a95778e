package cli

import (
	"fmt"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/jbohnslav/kingdom-sub000/internal/council"
	"github.com/spf13/cobra"
)

// councilFor assembles the council for the command's scope: settings,
// agent configs (created on first use), and an optional member filter.
func councilFor(cmd *cobra.Command, timeoutOverride time.Duration) (*council.Council, string, error) {
	scope := config.MustScopeFrom(cmd.Context())
	settings, err := config.LoadSettings(scope)
	if err != nil {
		return nil, "", err
	}
	if err := agent.EnsureDefaults(scope); err != nil {
		return nil, "", err
	}
	configs, err := agent.List(scope)
	if err != nil {
		return nil, "", err
	}
	if len(settings.Members) > 0 {
		configs = filterConfigs(configs, settings.Members)
	}
	if len(configs) == 0 {
		return nil, "", fmt.Errorf("no agents configured in %s", scope)
	}
	timeout := settings.Timeout()
	if timeoutOverride > 0 {
		timeout = timeoutOverride
	}
	c := council.New(scope, configs, timeout)
	if err := c.LoadSessions(); err != nil {
		return nil, "", err
	}
	return c, scope, nil
}

func filterConfigs(configs []*agent.Config, names []string) []*agent.Config {
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	var out []*agent.Config
	for _, cfg := range configs {
		if want[cfg.Name] {
			out = append(out, cfg)
		}
	}
	return out
}
