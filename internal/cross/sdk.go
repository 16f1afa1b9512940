package cross

import (
	"os"
	"path/filepath"
	"runtime"

	"velo/pkg/xos"
)

// Strategy is one discrete SDK resolution step. Strategies run in order;
// within a strategy, candidates are version-sorted highest first, and the
// first candidate with the expected layout wins.
type Strategy interface {
	Name() string
	// Discover returns the strategy's candidate SDK roots, best first. An
	// empty slice means the strategy does not apply (no override set, no
	// package-manager dir, ...).
	Discover() []string
}

// OverrideStrategy trusts an explicitly configured SDK root.
type OverrideStrategy struct {
	Root string
}

func (s OverrideStrategy) Name() string { return "override" }

func (s OverrideStrategy) Discover() []string {
	if s.Root == "" {
		return nil
	}
	return []string{s.Root}
}

// SDKHomeStrategy looks under the package-manager SDK home for versioned
// NDK installs, highest version first.
type SDKHomeStrategy struct {
	AndroidHome string
}

func (s SDKHomeStrategy) Name() string { return "sdk-home" }

func (s SDKHomeStrategy) Discover() []string {
	if s.AndroidHome == "" {
		return nil
	}
	matches, err := xos.VersionSortedGlob(filepath.Join(s.AndroidHome, "ndk", "*"))
	if err != nil {
		return nil
	}
	return matches
}

// KnownPathsStrategy probes the fixed install locations, version-sorted
// highest first within each.
type KnownPathsStrategy struct {
	Home string
	// ExtraRoots prepends additional glob patterns; used by tests.
	ExtraRoots []string
}

func (s KnownPathsStrategy) Name() string { return "known-paths" }

func (s KnownPathsStrategy) Discover() []string {
	patterns := append([]string{}, s.ExtraRoots...)
	if s.Home != "" {
		patterns = append(patterns,
			filepath.Join(s.Home, "Android", "Sdk", "ndk", "*"),
			filepath.Join(s.Home, "Library", "Android", "sdk", "ndk", "*"),
		)
	}
	patterns = append(patterns,
		"/opt/android-ndk*",
		"/usr/local/share/android-ndk*",
	)
	var candidates []string
	for _, pattern := range patterns {
		matches, err := xos.VersionSortedGlob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				candidates = append(candidates, m)
			}
		}
	}
	return candidates
}

// hostTag is the NDK's prebuilt directory name for the running host.
// Apple silicon NDKs ship under the x86_64 tag.
func hostTag() string {
	switch runtime.GOOS {
	case "darwin":
		return "darwin-x86_64"
	case "windows":
		return "windows-x86_64"
	default:
		return "linux-x86_64"
	}
}
