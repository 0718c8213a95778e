// Package config resolves the scope directory that holds all kingdom
// state for one project checkout, and loads the optional settings file.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jbohnslav/kingdom-sub000/internal/git"
	"github.com/jbohnslav/kingdom-sub000/internal/thread"
)

type scopeKey struct{}

// WithScope stores the scope directory in the context.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope directory from the context, if set.
func ScopeFrom(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(scopeKey{}).(string)
	return s, ok
}

// MustScopeFrom returns the scope from the context, or panics if not set.
func MustScopeFrom(ctx context.Context) string {
	if s, ok := ScopeFrom(ctx); ok && s != "" {
		return s
	}
	panic("kingdom scope missing from context")
}

// ResolveScope returns the scope directory: the --scope override, then
// KINGDOM_SCOPE, then <project root>/.kingdom/<branch-slug>. State is
// keyed per git branch so parallel worktrees never share threads or
// sessions.
func ResolveScope(override string) (string, error) {
	if override != "" {
		return filepath.Clean(override), nil
	}
	if env := os.Getenv("KINGDOM_SCOPE"); env != "" {
		return filepath.Clean(env), nil
	}
	root, err := git.ProjectRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".kingdom", thread.Slug(git.CurrentBranch(root))), nil
}
