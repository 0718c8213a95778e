package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, scope string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(append([]string{"--scope", scope}, args...))
	err := root.Execute()
	return buf.String(), err
}

func TestNewRootCmd_hasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	if root == nil {
		t.Fatal("NewRootCmd returned nil")
	}
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ask", "thread", "agent", "watch", "doctor"} {
		if !names[want] {
			t.Errorf("expected subcommand %q", want)
		}
	}
}

func TestNewRootCmd_versionFlag(t *testing.T) {
	root := NewRootCmd("1.2.3")
	if root.Version != "1.2.3" {
		t.Errorf("Version: got %q", root.Version)
	}
}

func TestNewRootCmd_hasScopeFlag(t *testing.T) {
	root := NewRootCmd("")
	if root.PersistentFlags().Lookup("scope") == nil {
		t.Fatal("expected --scope persistent flag")
	}
}

func TestAgentInit_writesDefaults(t *testing.T) {
	scope := t.TempDir()
	out, err := execute(t, scope, "agent", "init")
	if err != nil {
		t.Fatalf("agent init: %v\n%s", err, out)
	}
	for _, name := range []string{"claude", "codex", "cursor"} {
		if _, err := os.Stat(filepath.Join(scope, "agents", name+".md")); err != nil {
			t.Errorf("missing %s.md: %v", name, err)
		}
	}
}

func TestAgentList(t *testing.T) {
	scope := t.TempDir()
	if _, err := execute(t, scope, "agent", "init"); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, scope, "agent", "list")
	if err != nil {
		t.Fatalf("agent list: %v", err)
	}
	for _, name := range []string{"claude", "codex", "cursor"} {
		if !strings.Contains(out, name) {
			t.Errorf("list output missing %q:\n%s", name, out)
		}
	}
}

func TestThreadNewListShow(t *testing.T) {
	scope := t.TempDir()
	out, err := execute(t, scope, "thread", "new", "API Design")
	if err != nil {
		t.Fatalf("thread new: %v\n%s", err, out)
	}
	if !strings.Contains(out, "api-design") {
		t.Errorf("new output: %q", out)
	}

	// Creating the same thread again fails.
	if _, err := execute(t, scope, "thread", "new", "api design"); err == nil {
		t.Error("duplicate thread new should fail")
	}

	out, err = execute(t, scope, "thread", "list")
	if err != nil {
		t.Fatalf("thread list: %v", err)
	}
	if !strings.Contains(out, "* api-design") {
		t.Errorf("list should mark the current thread:\n%s", out)
	}

	// Show resolves the current thread when no id is given.
	if _, err := execute(t, scope, "thread", "show"); err != nil {
		t.Fatalf("thread show: %v", err)
	}
}

func TestThreadShow_noCurrent(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "thread", "show"); err == nil {
		t.Error("show without a current thread should fail")
	}
}

func TestAgentStatus_idle(t *testing.T) {
	out, err := execute(t, t.TempDir(), "agent", "status")
	if err != nil {
		t.Fatalf("agent status: %v", err)
	}
	if !strings.Contains(out, "all agents idle") {
		t.Errorf("status output: %q", out)
	}
}

func TestAgentReset_missingSessionIsFine(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "agent", "reset", "claude"); err != nil {
		t.Fatalf("agent reset: %v", err)
	}
}
