package council

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jbohnslav/kingdom-sub000/internal/frontmatter"
	"github.com/jbohnslav/kingdom-sub000/internal/git"
	"github.com/jbohnslav/kingdom-sub000/internal/member"
)

// bundleMeta summarizes one fan-out for metadata.json.
type bundleMeta struct {
	Timestamp time.Time                   `json:"timestamp"`
	Prompt    string                      `json:"prompt"`
	Commit    string                      `json:"commit,omitempty"`
	Members   map[string]bundleMemberMeta `json:"members"`
}

type bundleMemberMeta struct {
	ElapsedMS   int64  `json:"elapsed_ms"`
	Error       string `json:"error,omitempty"`
	HasResponse bool   `json:"has_response"`
}

// RunBundle persists a fan-out's results as a self-contained artifact
// directory under <scope>/runs: one formatted file per member response,
// a metadata summary, and an errors summary only when at least one
// member failed. Returns the bundle directory.
func (c *Council) RunBundle(prompt string, results map[string]member.Response) (string, error) {
	now := time.Now().UTC()
	dir := filepath.Join(c.scope, "runs", now.Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	meta := bundleMeta{
		Timestamp: now,
		Prompt:    prompt,
		Commit:    git.HeadSHA("."),
		Members:   map[string]bundleMemberMeta{},
	}
	failures := map[string]string{}
	for name, resp := range results {
		meta.Members[name] = bundleMemberMeta{
			ElapsedMS:   resp.Elapsed.Milliseconds(),
			Error:       resp.Err,
			HasResponse: resp.Text != "",
		}
		if resp.Failed() {
			failures[name] = resp.Err
		}
		doc := &frontmatter.Doc{
			Fields: map[string]any{
				"member":  name,
				"elapsed": resp.Elapsed.Round(time.Millisecond).String(),
				"error":   resp.Err,
			},
			Body: resp.Text,
		}
		text := frontmatter.Serialize(doc, "member", "elapsed", "error")
		if err := os.WriteFile(filepath.Join(dir, name+".md"), []byte(text), 0o644); err != nil {
			return "", err
		}
	}

	if err := writeJSON(filepath.Join(dir, "metadata.json"), meta); err != nil {
		return "", err
	}
	if len(failures) > 0 {
		if err := writeJSON(filepath.Join(dir, "errors.json"), failures); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
