// Package backend builds CLI invocations for each supported agent backend
// and decodes their output. Backends are registered in a table so adding
// one means registering a builder/parser pair, not touching call sites.
package backend

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknown = errors.New("unknown backend")

// Command is the backend-relevant slice of an agent's config file.
type Command struct {
	CLI        string // base command string, e.g. "claude -p --output-format json"
	ResumeFlag string // overrides the backend's default resume syntax where flag-based
}

// Response is the decoded result of one completed backend invocation.
type Response struct {
	Text           string
	ContinuationID string
	Raw            string
}

// Delta is the text extracted from a single live-stream line.
type Delta struct {
	Text     string
	Thinking string
}

// Backend is one registered adapter.
type Backend struct {
	Name string
	// BuildArgs returns the full argv for a query, including resume syntax
	// when continuationID is non-empty.
	BuildArgs func(cmd Command, prompt, continuationID string) []string
	// Parse decodes finished output. It never fails: malformed output
	// degrades to the raw trimmed text with no continuation id.
	Parse func(stdout, stderr string, exitCode int) Response
	// DecodeStreamLine extracts incremental text from one scratch-file
	// line; ok is false for lines carrying no displayable delta.
	DecodeStreamLine func(line string) (Delta, bool)
}

var registry = map[string]Backend{}

// Register installs a backend adapter. Later registrations with the same
// name replace earlier ones.
func Register(b Backend) {
	registry[b.Name] = b
}

// Lookup returns the adapter for a backend name.
func Lookup(name string) (Backend, bool) {
	b, ok := registry[name]
	return b, ok
}

// Names returns the registered backend names.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

// BuildCommand builds argv for the named backend, or fails for an
// unregistered one.
func BuildCommand(name string, cmd Command, prompt, continuationID string) ([]string, error) {
	b, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return b.BuildArgs(cmd, prompt, continuationID), nil
}

// ParseResponse decodes output for the named backend. An unregistered
// backend degrades to raw-text passthrough rather than failing.
func ParseResponse(name, stdout, stderr string, exitCode int) Response {
	b, ok := registry[name]
	if !ok {
		return rawResponse(stdout)
	}
	return b.Parse(stdout, stderr, exitCode)
}

// DecodeStreamLine decodes one scratch-file line for the named backend.
func DecodeStreamLine(name, line string) (Delta, bool) {
	b, ok := registry[name]
	if !ok || b.DecodeStreamLine == nil {
		return Delta{}, false
	}
	return b.DecodeStreamLine(line)
}

func rawResponse(stdout string) Response {
	return Response{Text: strings.TrimSpace(stdout), Raw: stdout}
}

func splitCLI(cli string) []string {
	return strings.Fields(cli)
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
