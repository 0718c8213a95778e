// Package agent loads the per-agent config files that define which
// backend binary a council member runs. Each agent is a <name>.md file
// with a frontmatter header under <scope>/agents.
package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jbohnslav/kingdom-sub000/internal/backend"
	"github.com/jbohnslav/kingdom-sub000/internal/frontmatter"
)

// Config describes one configured agent.
type Config struct {
	Name           string
	Backend        string
	CLI            string
	ResumeFlag     string
	VersionCommand string
	InstallHint    string
	Prompt         string // body of the config file; prepended context for the agent
}

// Command returns the backend-facing slice of the config.
func (c *Config) Command() backend.Command {
	return backend.Command{CLI: c.CLI, ResumeFlag: c.ResumeFlag}
}

func dir(scope string) string { return filepath.Join(scope, "agents") }

// Load reads and validates a single agent config file.
func Load(scope, name string) (*Config, error) {
	path := filepath.Join(dir(scope), name+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(path, string(data))
}

func parse(path, text string) (*Config, error) {
	doc, err := frontmatter.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg := &Config{
		Name:           doc.String("name"),
		Backend:        doc.String("backend"),
		CLI:            doc.String("cli"),
		ResumeFlag:     doc.String("resume_flag"),
		VersionCommand: doc.String("version_command"),
		InstallHint:    doc.String("install_hint"),
		Prompt:         strings.TrimSpace(doc.Body),
	}
	for field, v := range map[string]string{"name": cfg.Name, "backend": cfg.Backend, "cli": cfg.CLI} {
		if v == "" {
			return nil, fmt.Errorf("%s: missing required field %q", path, field)
		}
	}
	return cfg, nil
}

// List returns all valid agent configs in the scope, sorted by name.
// Files that fail to parse are skipped.
func List(scope string) ([]*Config, error) {
	entries, err := os.ReadDir(dir(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Config
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cfg, err := Load(scope, strings.TrimSuffix(e.Name(), ".md"))
		if err != nil {
			continue
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var defaults = []Config{
	{
		Name:           "claude",
		Backend:        "claude_code",
		CLI:            "claude -p --output-format json",
		ResumeFlag:     "--resume",
		VersionCommand: "claude --version",
		InstallHint:    "npm install -g @anthropic-ai/claude-code",
	},
	{
		Name:           "codex",
		Backend:        "codex",
		CLI:            "codex exec --json",
		VersionCommand: "codex --version",
		InstallHint:    "npm install -g @openai/codex",
	},
	{
		Name:           "cursor",
		Backend:        "cursor",
		CLI:            "cursor-agent -p --output-format json",
		ResumeFlag:     "--resume",
		VersionCommand: "cursor-agent --version",
		InstallHint:    "curl https://cursor.com/install -fsS | bash",
	},
}

// EnsureDefaults writes the stock agent files for any that are missing.
// Existing files are never overwritten, so user edits survive re-runs.
func EnsureDefaults(scope string) error {
	if err := os.MkdirAll(dir(scope), 0o755); err != nil {
		return err
	}
	for _, d := range defaults {
		path := filepath.Join(dir(scope), d.Name+".md")
		if _, err := os.Stat(path); err == nil {
			continue
		}
		doc := &frontmatter.Doc{
			Fields: map[string]any{
				"name":            d.Name,
				"backend":         d.Backend,
				"cli":             d.CLI,
				"resume_flag":     d.ResumeFlag,
				"version_command": d.VersionCommand,
				"install_hint":    d.InstallHint,
			},
		}
		text := frontmatter.Serialize(doc, "name", "backend", "cli", "resume_flag", "version_command", "install_hint")
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return err
		}
	}
	return nil
}
