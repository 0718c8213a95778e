// Package member executes council member queries as child processes of
// the configured backend CLI and classifies their outcomes.
package member

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/backend"
)

// Response is the outcome of one member query. Err is a display-ready
// string; an empty Err means the query produced usable text.
type Response struct {
	Name    string
	Text    string
	Err     string
	Elapsed time.Duration
	Raw     string
}

// Failed reports whether the query produced no usable answer.
func (r Response) Failed() bool { return r.Err != "" }

// Member wraps one configured agent with process execution and a
// persistent continuation id for session resume.
type Member struct {
	cfg   *agent.Config
	scope string

	mu             sync.Mutex
	continuationID string
	proc           *os.Process
}

func New(scope string, cfg *agent.Config) *Member {
	return &Member{cfg: cfg, scope: scope}
}

func (m *Member) Name() string { return m.cfg.Name }

// ContinuationID returns the stored session-resume token.
func (m *Member) ContinuationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.continuationID
}

// SetContinuationID installs a resume token loaded from the session store.
func (m *Member) SetContinuationID(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.continuationID = id
}

// Reset clears the continuation id so the next query starts a fresh
// conversation.
func (m *Member) Reset() {
	m.SetContinuationID("")
}

// Query runs one prompt through the member's backend CLI, bounded by a
// wall-clock timeout.
func (m *Member) Query(ctx context.Context, prompt string, timeout time.Duration) Response {
	return m.query(ctx, prompt, timeout, "")
}

// QueryStream is Query with stdout additionally teed, line for line, into
// a scratch file so a poller can surface partial output while the child
// is still running. The file is truncated at the start of each attempt.
func (m *Member) QueryStream(ctx context.Context, prompt string, timeout time.Duration, streamPath string) Response {
	return m.query(ctx, prompt, timeout, streamPath)
}

func (m *Member) query(ctx context.Context, prompt string, timeout time.Duration, streamPath string) Response {
	start := time.Now()
	resp := Response{Name: m.cfg.Name}

	argv, err := backend.BuildCommand(m.cfg.Backend, m.cfg.Command(), prompt, m.ContinuationID())
	if err != nil {
		resp.Err = err.Error()
		m.log(prompt, resp)
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	// Stdin is left nil so the child reads from the null device; some
	// backends block forever on a terminal stdin.
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	var stream *os.File
	if streamPath != "" {
		stream, err = os.OpenFile(streamPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			slog.Warn("stream scratch file unavailable", "member", m.cfg.Name, "err", err)
		} else {
			cmd.Stdout = io.MultiWriter(&stdout, stream)
			defer stream.Close()
		}
	}

	runErr := m.run(cmd)
	resp.Elapsed = time.Since(start)
	resp.Raw = stdout.String()

	switch {
	case errors.Is(runErr, exec.ErrNotFound):
		resp.Err = fmt.Sprintf("Command not found: %s", argv[0])
	case ctx.Err() == context.DeadlineExceeded:
		resp.Err = fmt.Sprintf("Timeout after %ds", int(timeout.Seconds()))
	default:
		exitCode := 0
		if cmd.ProcessState != nil {
			exitCode = cmd.ProcessState.ExitCode()
		}
		parsed := backend.ParseResponse(m.cfg.Backend, stdout.String(), stderr.String(), exitCode)
		if parsed.Text != "" {
			// Non-zero exit with usable text still counts as an answer.
			resp.Text = parsed.Text
			if parsed.ContinuationID != "" {
				m.SetContinuationID(parsed.ContinuationID)
			}
		} else if runErr != nil || exitCode != 0 {
			resp.Err = strings.TrimSpace(stderr.String())
			if resp.Err == "" {
				resp.Err = fmt.Sprintf("exit status %d", exitCode)
			}
		}
	}

	m.log(prompt, resp)
	return resp
}

// run starts the child and waits, tracking the process so Interrupt can
// terminate it early.
func (m *Member) run(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	m.mu.Lock()
	m.proc = cmd.Process
	m.mu.Unlock()
	err := cmd.Wait()
	m.mu.Lock()
	m.proc = nil
	m.mu.Unlock()
	return err
}

// Interrupt terminates an in-flight query's child process before its
// timeout elapses. No-op when nothing is running.
func (m *Member) Interrupt() {
	m.mu.Lock()
	proc := m.proc
	m.mu.Unlock()
	if proc != nil {
		_ = proc.Kill()
	}
}

// log appends a human-readable record of the query to the member's log
// file. Logging failures never fail the query.
func (m *Member) log(prompt string, resp Response) {
	dir := filepath.Join(m.scope, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, m.cfg.Name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	outcome := resp.Text
	if resp.Failed() {
		outcome = "ERROR: " + resp.Err
	}
	fmt.Fprintf(f, "[%s] elapsed=%s\nPROMPT: %s\n%s\n\n",
		time.Now().UTC().Format(time.RFC3339), resp.Elapsed.Round(time.Millisecond), prompt, outcome)
}
