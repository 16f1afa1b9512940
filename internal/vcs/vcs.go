// Package vcs answers the narrow version-control questions the cache key
// derivation needs: are we in a repo, what is the branch label, where is the
// worktree root, and what is the short commit.
package vcs

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Info is a snapshot of the worktree state at invocation time.
type Info struct {
	InRepo       bool
	BranchLabel  string
	WorktreeRoot string
	ShortCommit  string
}

// Runner executes a git subcommand and returns trimmed stdout. Split out so
// tests can fake repository state without a real repo.
type Runner func(dir string, args ...string) (string, error)

// GitRunner runs the real git binary.
func GitRunner(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// Query inspects the worktree containing dir. It never fails: outside a repo
// it reports InRepo=false with BranchLabel "unknown" and WorktreeRoot dir.
func Query(dir string, run Runner) Info {
	if run == nil {
		run = GitRunner
	}

	if inside, err := run(dir, "rev-parse", "--is-inside-work-tree"); err != nil || inside != "true" {
		return Info{InRepo: false, BranchLabel: "unknown", WorktreeRoot: dir}
	}

	info := Info{InRepo: true, WorktreeRoot: dir}
	if root, err := run(dir, "rev-parse", "--show-toplevel"); err == nil && root != "" {
		info.WorktreeRoot = root
	}
	if short, err := run(dir, "rev-parse", "--short", "HEAD"); err == nil {
		info.ShortCommit = short
	}

	branch, err := run(dir, "rev-parse", "--abbrev-ref", "HEAD")
	switch {
	case err != nil || branch == "":
		info.BranchLabel = detachedLabel(info.ShortCommit)
	case branch == "HEAD":
		// Detached checkout: rev-parse reports the literal ref name.
		info.BranchLabel = detachedLabel(info.ShortCommit)
	default:
		info.BranchLabel = branch
	}
	return info
}

// CommitTime returns the unix timestamp of the last commit, or 0 when it
// cannot be determined. Used to pin SOURCE_DATE_EPOCH for deterministic
// builds.
func CommitTime(dir string, run Runner) int64 {
	if run == nil {
		run = GitRunner
	}
	out, err := run(dir, "log", "-1", "--format=%ct")
	if err != nil {
		return 0
	}
	ts, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func detachedLabel(shortCommit string) string {
	if shortCommit != "" {
		return "detached-" + shortCommit
	}
	return fmt.Sprintf("detached-%d", time.Now().Unix())
}
