// Package council fans a prompt out to every configured member
// concurrently and collects their responses, persisting session
// continuity between invocations.
package council

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/member"
	"github.com/jbohnslav/kingdom-sub000/internal/session"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
)

// DefaultTimeout bounds each member's query wall-clock time.
const DefaultTimeout = 5 * time.Minute

// Council orchestrates a fixed set of members for one scope.
type Council struct {
	scope    string
	members  []*member.Member
	timeout  time.Duration
	sessions *session.Store
}

func New(scope string, configs []*agent.Config, timeout time.Duration) *Council {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Council{scope: scope, timeout: timeout, sessions: session.NewStore(scope)}
	for _, cfg := range configs {
		c.members = append(c.members, member.New(scope, cfg))
	}
	return c
}

func (c *Council) Members() []*member.Member { return c.members }

// Member returns the named member, or nil.
func (c *Council) Member(name string) *member.Member {
	for _, m := range c.members {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// Query dispatches the prompt to all members concurrently. The result map
// always contains exactly one entry per member; a member whose goroutine
// panics is reported as a failed response rather than aborting the fan-out.
func (c *Council) Query(ctx context.Context, prompt string) map[string]member.Response {
	return c.fanOut(ctx, prompt, func(m *member.Member) member.Response {
		return m.Query(ctx, prompt, c.timeout)
	})
}

func (c *Council) fanOut(ctx context.Context, prompt string, run func(*member.Member) member.Response) map[string]member.Response {
	results := make(map[string]member.Response, len(c.members))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, m := range c.members {
		wg.Add(1)
		go func(m *member.Member) {
			defer wg.Done()
			resp := func() (resp member.Response) {
				defer func() {
					if r := recover(); r != nil {
						slog.Error("member query panicked", "member", m.Name(), "panic", r)
						resp = member.Response{Name: m.Name(), Err: fmt.Sprintf("internal error: %v", r)}
					}
				}()
				return run(m)
			}()
			mu.Lock()
			results[m.Name()] = resp
			mu.Unlock()
		}(m)
	}
	wg.Wait()
	return results
}

// QueryToThread fans the prompt out with live stream scratch files in the
// thread directory, then appends each successful response as a finalized
// message and removes its scratch file. Appends happen sequentially after
// collection; the orchestrator is the thread's sole writer during a
// fan-out.
func (c *Council) QueryToThread(ctx context.Context, ts *thread.Store, threadID, prompt string) (map[string]member.Response, error) {
	if _, err := ts.Get(threadID); err != nil {
		return nil, err
	}
	results := c.fanOut(ctx, prompt, func(m *member.Member) member.Response {
		return m.QueryStream(ctx, prompt, c.timeout, ts.StreamPath(threadID, m.Name()))
	})
	for _, m := range c.members {
		resp := results[m.Name()]
		if resp.Failed() || resp.Text == "" {
			continue
		}
		if _, err := ts.Append(threadID, m.Name(), "king", resp.Text, nil); err != nil {
			return results, err
		}
		ts.RemoveStream(threadID, m.Name())
	}
	return results, nil
}

// Interrupt terminates all in-flight member child processes early.
func (c *Council) Interrupt() {
	for _, m := range c.members {
		m.Interrupt()
	}
}

// LoadSessions installs each member's persisted continuation id.
func (c *Council) LoadSessions() error {
	for _, m := range c.members {
		st, err := c.sessions.Get(m.Name())
		if err != nil {
			return err
		}
		m.SetContinuationID(st.ResumeID)
	}
	return nil
}

// SaveSessions persists each member's continuation id. A member with no
// continuation id has its stale session file removed, keeping save and
// load exactly symmetric.
func (c *Council) SaveSessions() error {
	for _, m := range c.members {
		id := m.ContinuationID()
		if id == "" {
			if err := c.sessions.Remove(m.Name()); err != nil {
				return err
			}
			continue
		}
		err := c.sessions.LockedUpdate(m.Name(), func(st *session.AgentState) error {
			st.ResumeID = id
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// ResetSessions clears all continuation ids in memory. Call SaveSessions
// to persist the reset.
func (c *Council) ResetSessions() {
	for _, m := range c.members {
		m.Reset()
	}
}
