// Package git shells out to the git CLI for the two facts the scope
// layout depends on: the checkout root and the current branch.
package git

import (
	"os"
	"os/exec"
	"strings"
)

// ProjectRoot returns the enclosing checkout's top-level directory, or
// the working directory when not inside a git repository.
func ProjectRoot() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err == nil {
		if root := strings.TrimSpace(string(out)); root != "" {
			return root, nil
		}
	}
	return os.Getwd()
}

// CurrentBranch returns the branch checked out in dir. Detached HEAD and
// non-repository directories fall back to "main" so the scope path is
// always well formed.
func CurrentBranch(dir string) string {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "main"
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return "main"
	}
	return branch
}

// HeadSHA returns the current commit in dir, or "" outside a repository.
// Recorded as start_sha when an agent begins work.
func HeadSHA(dir string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
