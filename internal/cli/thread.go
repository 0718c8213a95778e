package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/config"
	"github.com/jbohnslav/kingdom-sub000/internal/member"
	"github.com/jbohnslav/kingdom-sub000/internal/session"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
	"github.com/spf13/cobra"
)

func newThreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage council conversation threads",
	}
	cmd.AddCommand(newThreadNewCmd())
	cmd.AddCommand(newThreadListCmd())
	cmd.AddCommand(newThreadShowCmd())
	cmd.AddCommand(newThreadSendCmd())
	return cmd
}

func newThreadNewCmd() *cobra.Command {
	var (
		members []string
		pattern string
	)
	cmd := &cobra.Command{
		Use:   "new <id>",
		Short: "Create a thread and make it current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			if len(members) == 0 {
				members = []string{"king", "claude", "codex", "cursor"}
			}
			meta, err := thread.NewStore(scope).Create(args[0], members, pattern)
			if err != nil {
				return err
			}
			if err := session.NewStore(scope).SetCurrentThread(meta.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created thread %s\n", meta.ID)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&members, "members", nil, "Thread members (default: king plus all agents)")
	cmd.Flags().StringVar(&pattern, "pattern", thread.PatternCouncil, "Conversation pattern: council, work, or direct")
	return cmd
}

func newThreadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List threads, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			threads, err := thread.NewStore(scope).List()
			if err != nil {
				return err
			}
			current, err := session.NewStore(scope).CurrentThread()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, meta := range threads {
				marker := " "
				if meta.ID == current {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s  [%s]  %s\n", marker, meta.ID, meta.Pattern, strings.Join(meta.Members, ", "))
			}
			return nil
		},
	}
}

func newThreadShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Print a thread's messages in order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			id, err := threadArg(scope, args)
			if err != nil {
				return err
			}
			msgs, err := thread.NewStore(scope).ListMessages(id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, msg := range msgs {
				fmt.Fprintf(out, "--- %04d %s -> %s (%s)\n%s\n",
					msg.Sequence, msg.From, msg.To,
					msg.Timestamp.Format(time.RFC3339), strings.TrimSpace(msg.Body))
			}
			return nil
		},
	}
}

func newThreadSendCmd() *cobra.Command {
	var (
		id          string
		timeoutSecs int
	)
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message to the thread and collect council replies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope := config.MustScopeFrom(cmd.Context())
			if id == "" {
				var err error
				if id, err = threadArg(scope, nil); err != nil {
					return err
				}
			}
			c, _, err := councilFor(cmd, time.Duration(timeoutSecs)*time.Second)
			if err != nil {
				return err
			}
			ts := thread.NewStore(scope)
			if _, err := ts.Append(id, "king", thread.ToAll, args[0], nil); err != nil {
				return err
			}

			results, err := c.QueryToThread(cmd.Context(), ts, id, args[0])
			if err != nil {
				return err
			}
			if err := c.SaveSessions(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for name, resp := range results {
				if resp.Failed() {
					fmt.Fprintf(out, "%s: %s\n", name, resp.Err)
				}
			}
			fmt.Fprintf(out, "%d replies in thread %s\n", countReplies(results), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "thread", "", "Thread id (default: current thread)")
	cmd.Flags().IntVar(&timeoutSecs, "timeout", 0, "Per-member timeout in seconds")
	return cmd
}

// threadArg resolves an explicit thread id argument, falling back to the
// scope's current-thread pointer.
func threadArg(scope string, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	current, err := session.NewStore(scope).CurrentThread()
	if err != nil {
		return "", err
	}
	if current == "" {
		return "", fmt.Errorf("no current thread; pass an id or run 'kingdom thread new'")
	}
	return current, nil
}

func countReplies(results map[string]member.Response) int {
	n := 0
	for _, resp := range results {
		if !resp.Failed() && resp.Text != "" {
			n++
		}
	}
	return n
}
