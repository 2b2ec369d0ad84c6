// Package gitcheck warns when a tracked secret file sits exposed inside a
// git repository.
//
// Checks performed per secret path:
//   - Whether the path is inside a git work tree at all
//   - Whether the file is tracked by git (should never be)
//   - Whether the file is covered by .gitignore (should be)
//
// These checks help users avoid accidentally committing plaintext secrets.
package gitcheck

import (
	"os/exec"
	"path/filepath"
	"strings"
)

// Finding describes the git exposure of one secret path.
type Finding struct {
	Path    string
	InRepo  bool
	Tracked bool // tracked by git: dangerous
	Ignored bool // covered by .gitignore: good
}

// IsGitRepo checks if dir is inside a git work tree.
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git.
func IsTracked(dir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore
// files).
func IsIgnored(dir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = dir
	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// Inspect reports the git exposure of one local secret path.
func Inspect(path string) Finding {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	f := Finding{Path: path}
	if !IsGitRepo(dir) {
		return f
	}
	f.InRepo = true
	f.Tracked = IsTracked(dir, base)
	f.Ignored = IsIgnored(dir, base)
	return f
}
