// Package cachekey derives the per-bucket cache identifier from branch,
// worktree, and target identity. Each bucket owns one build output directory;
// two worktrees on the same branch never share a bucket because the worktree
// root is hashed into the key independently of the branch label.
package cachekey

import (
	"path/filepath"
	"regexp"
	"strings"

	"velo/internal/hashutil"
)

const (
	// maxKeyLen bounds the key so it stays usable as a directory name on
	// every filesystem we care about.
	maxKeyLen = 120

	hashPrefixLen = 12
)

// Provenance records how the key was chosen.
type Provenance string

const (
	ProvenanceDerived  Provenance = "derived"
	ProvenanceOverride Provenance = "override"
)

// Bucket identifies one isolated build-output directory.
type Bucket struct {
	Key        string
	Directory  string
	Provenance Provenance
}

// Resolve computes the bucket for the given identity. override, when
// non-empty, replaces the derived key but still passes through Sanitize:
// the key names a directory, so it must be filesystem-safe regardless of
// where it came from. targetTriple is empty for host builds. Resolve never
// fails; every input reduces to a valid non-empty key.
func Resolve(branchLabel, worktreeRoot, targetTriple, override, cacheRoot string) Bucket {
	if override != "" {
		return Bucket{
			Key:        Sanitize(override),
			Directory:  filepath.Join(cacheRoot, Sanitize(override)),
			Provenance: ProvenanceOverride,
		}
	}

	raw := Sanitize(branchLabel) + "-" +
		hashutil.Short(branchLabel, hashPrefixLen) + "-" +
		hashutil.Short(worktreeRoot, hashPrefixLen)
	if targetTriple != "" {
		raw += "-" + targetTriple
	}
	key := Sanitize(raw)
	return Bucket{
		Key:        key,
		Directory:  filepath.Join(cacheRoot, key),
		Provenance: ProvenanceDerived,
	}
}

var (
	disallowed = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	dashRuns   = regexp.MustCompile(`-{2,}`)
)

// Sanitize reduces s to a filesystem-safe key: characters outside
// [A-Za-z0-9._-] become dashes, dash runs collapse, leading and trailing
// dashes are trimmed, the result is capped at 120 characters, and an empty
// result becomes "default". Sanitizing an already-sanitized key is a no-op.
func Sanitize(s string) string {
	s = disallowed.ReplaceAllString(s, "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxKeyLen {
		s = strings.Trim(s[:maxKeyLen], "-")
	}
	if s == "" {
		return "default"
	}
	return s
}
