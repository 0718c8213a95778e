package member

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
)

func writeScript(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testMember(t *testing.T, scope, cli string) *Member {
	t.Helper()
	return New(scope, &agent.Config{Name: "claude", Backend: "claude_code", CLI: cli})
}

func TestQuery_jsonResult(t *testing.T) {
	script := writeScript(t, "agent.sh", `echo '{"result": "hi", "session_id": "s1"}'`+"\n")
	m := testMember(t, t.TempDir(), script)

	resp := m.Query(context.Background(), "hello", 5*time.Second)
	if resp.Err != "" {
		t.Fatalf("unexpected error: %q", resp.Err)
	}
	if resp.Text != "hi" {
		t.Errorf("text: %q", resp.Text)
	}
	if m.ContinuationID() != "s1" {
		t.Errorf("continuation id: %q", m.ContinuationID())
	}
	if resp.Elapsed <= 0 {
		t.Error("elapsed not recorded")
	}
}

func TestQuery_timeout(t *testing.T) {
	script := writeScript(t, "slow.sh", "sleep 10\n")
	m := testMember(t, t.TempDir(), script)

	resp := m.Query(context.Background(), "hello", time.Second)
	if resp.Err != "Timeout after 1s" {
		t.Errorf("error: %q", resp.Err)
	}
	if resp.Text != "" {
		t.Errorf("text should be empty on timeout: %q", resp.Text)
	}
}

func TestQuery_commandNotFound(t *testing.T) {
	m := testMember(t, t.TempDir(), "definitely-not-on-path-zz")

	resp := m.Query(context.Background(), "hello", time.Second)
	if resp.Err != "Command not found: definitely-not-on-path-zz" {
		t.Errorf("error: %q", resp.Err)
	}
}

func TestQuery_softErrorUsesStderr(t *testing.T) {
	script := writeScript(t, "fail.sh", "echo boom >&2\nexit 3\n")
	m := testMember(t, t.TempDir(), script)

	resp := m.Query(context.Background(), "hello", 5*time.Second)
	if resp.Err != "boom" {
		t.Errorf("error: %q", resp.Err)
	}
}

func TestQuery_nonZeroExitWithTextSucceeds(t *testing.T) {
	script := writeScript(t, "flaky.sh", `echo '{"result": "partial"}'`+"\nexit 2\n")
	m := testMember(t, t.TempDir(), script)

	resp := m.Query(context.Background(), "hello", 5*time.Second)
	if resp.Err != "" {
		t.Fatalf("unexpected error: %q", resp.Err)
	}
	if resp.Text != "partial" {
		t.Errorf("text: %q", resp.Text)
	}
}

func TestQueryStream_teesStdout(t *testing.T) {
	script := writeScript(t, "stream.sh",
		`echo '{"type":"item.completed","item":{"type":"agent_message","text":"line1"}}'`+"\n"+
			`echo '{"type":"item.completed","item":{"type":"agent_message","text":"line2"}}'`+"\n")
	scope := t.TempDir()
	m := New(scope, &agent.Config{Name: "codex", Backend: "codex", CLI: script})

	streamPath := filepath.Join(scope, ".stream-codex.jsonl")
	resp := m.QueryStream(context.Background(), "hello", 5*time.Second, streamPath)
	if resp.Err != "" {
		t.Fatalf("unexpected error: %q", resp.Err)
	}
	if resp.Text != "line1\nline2" {
		t.Errorf("text: %q", resp.Text)
	}
	data, err := os.ReadFile(streamPath)
	if err != nil {
		t.Fatalf("scratch file: %v", err)
	}
	if !strings.Contains(string(data), "line1") || !strings.Contains(string(data), "line2") {
		t.Errorf("scratch contents: %q", data)
	}
}

func TestQuery_appendsLog(t *testing.T) {
	script := writeScript(t, "agent.sh", `echo '{"result": "hi"}'`+"\n")
	scope := t.TempDir()
	m := testMember(t, scope, script)

	m.Query(context.Background(), "first prompt", 5*time.Second)
	m.Query(context.Background(), "second prompt", 5*time.Second)

	data, err := os.ReadFile(filepath.Join(scope, "logs", "claude.log"))
	if err != nil {
		t.Fatalf("log file: %v", err)
	}
	if !strings.Contains(string(data), "first prompt") || !strings.Contains(string(data), "second prompt") {
		t.Errorf("log contents: %q", data)
	}
}

func TestInterrupt_terminatesInFlight(t *testing.T) {
	script := writeScript(t, "slow.sh", "sleep 10\n")
	m := testMember(t, t.TempDir(), script)

	done := make(chan Response, 1)
	go func() { done <- m.Query(context.Background(), "hello", 10*time.Second) }()
	time.Sleep(300 * time.Millisecond)
	m.Interrupt()

	select {
	case resp := <-done:
		if resp.Err == "" {
			t.Errorf("interrupted query reported success: %+v", resp)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("query did not return after interrupt")
	}
}

func TestReset(t *testing.T) {
	m := testMember(t, t.TempDir(), "claude")
	m.SetContinuationID("s1")
	m.Reset()
	if m.ContinuationID() != "" {
		t.Errorf("continuation id after reset: %q", m.ContinuationID())
	}
}
