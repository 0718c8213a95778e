package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newAskCmd() *cobra.Command {
	var (
		timeoutSecs int
		fresh       bool
	)

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Ask the whole council one question and save a run bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := args[0]
			c, _, err := councilFor(cmd, time.Duration(timeoutSecs)*time.Second)
			if err != nil {
				return err
			}
			if fresh {
				c.ResetSessions()
			}

			results := c.Query(cmd.Context(), prompt)
			if err := c.SaveSessions(); err != nil {
				return err
			}
			dir, err := c.RunBundle(prompt, results)
			if err != nil {
				return err
			}

			names := make([]string, 0, len(results))
			for name := range results {
				names = append(names, name)
			}
			sort.Strings(names)
			out := cmd.OutOrStdout()
			for _, name := range names {
				resp := results[name]
				fmt.Fprintf(out, "## %s (%s)\n", name, resp.Elapsed.Round(time.Millisecond))
				if resp.Failed() {
					fmt.Fprintf(out, "error: %s\n\n", resp.Err)
					continue
				}
				fmt.Fprintf(out, "%s\n\n", resp.Text)
			}
			fmt.Fprintf(out, "saved: %s\n", dir)
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Per-member timeout in seconds (default from kingdom.yaml)")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Start fresh conversations, ignoring saved sessions")
	return cmd
}
