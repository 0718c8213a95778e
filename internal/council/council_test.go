package council

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/agent"
	"github.com/jbohnslav/kingdom-sub000/internal/member"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func testCouncil(t *testing.T, scope string, timeout time.Duration) *Council {
	t.Helper()
	bin := t.TempDir()
	fast := func(text string) string {
		return `echo '{"result": "` + text + `"}'` + "\n"
	}
	configs := []*agent.Config{
		{Name: "claude", Backend: "claude_code", CLI: writeScript(t, bin, "claude.sh", fast("from claude"))},
		{Name: "cursor", Backend: "cursor", CLI: writeScript(t, bin, "cursor.sh", fast("from cursor"))},
		{Name: "codex", Backend: "codex", CLI: writeScript(t, bin, "codex.sh", "sleep 10\n")},
	}
	return New(scope, configs, timeout)
}

func TestQuery_fanOutWithOneTimeout(t *testing.T) {
	c := testCouncil(t, t.TempDir(), time.Second)

	results := c.Query(context.Background(), "hello")
	if len(results) != 3 {
		t.Fatalf("want 3 entries, got %d: %+v", len(results), results)
	}
	if got := results["codex"]; got.Err != "Timeout after 1s" || got.Text != "" {
		t.Errorf("codex: %+v", got)
	}
	if got := results["claude"]; got.Text != "from claude" || got.Err != "" {
		t.Errorf("claude: %+v", got)
	}
	if got := results["cursor"]; got.Text != "from cursor" || got.Err != "" {
		t.Errorf("cursor: %+v", got)
	}
}

func TestQuery_runsConcurrently(t *testing.T) {
	bin := t.TempDir()
	slow := writeScript(t, bin, "slow.sh", "sleep 1\necho '{\"result\": \"ok\"}'\n")
	var configs []*agent.Config
	for _, name := range []string{"a", "b", "c"} {
		configs = append(configs, &agent.Config{Name: name, Backend: "claude_code", CLI: slow})
	}
	c := New(t.TempDir(), configs, 10*time.Second)

	start := time.Now()
	results := c.Query(context.Background(), "hello")
	elapsed := time.Since(start)
	if len(results) != 3 {
		t.Fatalf("want 3 entries, got %d", len(results))
	}
	// Serial execution would take 3s or more.
	if elapsed > 2500*time.Millisecond {
		t.Errorf("fan-out took %s, members appear to run serially", elapsed)
	}
}

func TestSessions_saveLoadSymmetry(t *testing.T) {
	scope := t.TempDir()
	c := testCouncil(t, scope, time.Second)

	c.Member("claude").SetContinuationID("s-claude")
	c.Member("codex").SetContinuationID("s-codex")
	if err := c.SaveSessions(); err != nil {
		t.Fatalf("SaveSessions: %v", err)
	}

	c2 := testCouncil(t, scope, time.Second)
	if err := c2.LoadSessions(); err != nil {
		t.Fatalf("LoadSessions: %v", err)
	}
	if c2.Member("claude").ContinuationID() != "s-claude" {
		t.Errorf("claude id: %q", c2.Member("claude").ContinuationID())
	}
	if c2.Member("cursor").ContinuationID() != "" {
		t.Errorf("cursor id: %q", c2.Member("cursor").ContinuationID())
	}
}

func TestSaveSessions_removesStaleFile(t *testing.T) {
	scope := t.TempDir()
	c := testCouncil(t, scope, time.Second)

	c.Member("claude").SetContinuationID("s1")
	if err := c.SaveSessions(); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(scope, "sessions", "claude.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("session file missing after save: %v", err)
	}

	c.ResetSessions()
	if err := c.SaveSessions(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("stale session file not removed")
	}
}

func TestQueryToThread_appendsAndCleansStreams(t *testing.T) {
	scope := t.TempDir()
	c := testCouncil(t, scope, time.Second)
	ts := thread.NewStore(scope)
	if _, err := ts.Create("api design", []string{"king", "claude", "cursor", "codex"}, thread.PatternCouncil); err != nil {
		t.Fatal(err)
	}
	if _, err := ts.Append("api-design", "king", thread.ToAll, "what do you think?", nil); err != nil {
		t.Fatal(err)
	}

	results, err := c.QueryToThread(context.Background(), ts, "api-design", "what do you think?")
	if err != nil {
		t.Fatalf("QueryToThread: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("want 3 entries, got %d", len(results))
	}

	msgs, err := ts.ListMessages("api-design")
	if err != nil {
		t.Fatal(err)
	}
	// King's prompt plus the two members that answered; the timed-out
	// member contributes no message.
	if len(msgs) != 3 {
		t.Fatalf("want 3 messages, got %d", len(msgs))
	}
	for _, name := range []string{"claude", "cursor"} {
		if _, err := os.Stat(ts.StreamPath("api-design", name)); !os.IsNotExist(err) {
			t.Errorf("scratch file for %s not removed", name)
		}
	}
}

func TestQueryToThread_missingThread(t *testing.T) {
	c := testCouncil(t, t.TempDir(), time.Second)
	ts := thread.NewStore(t.TempDir())
	if _, err := c.QueryToThread(context.Background(), ts, "nope", "hi"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestRunBundle(t *testing.T) {
	scope := t.TempDir()
	c := testCouncil(t, scope, time.Second)

	results := map[string]member.Response{
		"claude": {Name: "claude", Text: "an answer", Elapsed: 120 * time.Millisecond},
		"codex":  {Name: "codex", Err: "Timeout after 1s", Elapsed: time.Second},
	}
	dir, err := c.RunBundle("the prompt", results)
	if err != nil {
		t.Fatalf("RunBundle: %v", err)
	}

	body, err := os.ReadFile(filepath.Join(dir, "claude.md"))
	if err != nil {
		t.Fatalf("member file: %v", err)
	}
	if !strings.Contains(string(body), "an answer") {
		t.Errorf("claude.md: %q", body)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		t.Fatalf("metadata: %v", err)
	}
	var meta bundleMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("metadata decode: %v", err)
	}
	if meta.Prompt != "the prompt" || len(meta.Members) != 2 {
		t.Errorf("metadata: %+v", meta)
	}
	if !meta.Members["claude"].HasResponse || meta.Members["codex"].Error == "" {
		t.Errorf("member summaries: %+v", meta.Members)
	}

	raw, err = os.ReadFile(filepath.Join(dir, "errors.json"))
	if err != nil {
		t.Fatalf("errors.json: %v", err)
	}
	var failures map[string]string
	if err := json.Unmarshal(raw, &failures); err != nil {
		t.Fatal(err)
	}
	if failures["codex"] != "Timeout after 1s" {
		t.Errorf("errors.json: %+v", failures)
	}
}

func TestRunBundle_noErrorsFileOnSuccess(t *testing.T) {
	scope := t.TempDir()
	c := testCouncil(t, scope, time.Second)

	dir, err := c.RunBundle("p", map[string]member.Response{
		"claude": {Name: "claude", Text: "ok"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "errors.json")); !os.IsNotExist(err) {
		t.Error("errors.json written for an all-success run")
	}
}
