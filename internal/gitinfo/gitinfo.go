// Package gitinfo extracts the small amount of git context the
// messenger core actually needs: the current branch name, best-effort
// (§6: "Git branch is obtained via git invocations with a 2s timeout;
// failure yields no branch, never a hang"). It is a deliberately small
// slice of the teacher's git package: no cloning, no worktrees, no
// remote management, none of which Pi Messenger's registry needs.
package gitinfo

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const branchTimeout = 2 * time.Second

// CurrentBranch returns the checked-out branch name for the repo
// rooted at dir, or "" if dir is not a git repo, git is unavailable,
// or the command does not complete within the timeout.
func CurrentBranch(dir string) string {
	ctx, cancel := context.WithTimeout(context.Background(), branchTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "--abbrev-ref", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	branch := strings.TrimSpace(string(out))
	if branch == "HEAD" {
		return "" // detached HEAD: no meaningful branch name
	}
	return branch
}
