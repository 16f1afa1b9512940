// Package summary renders the end-of-build report: which bucket built,
// under which toolchain, and what got published where. Every named outcome
// (lock mode, drift, promotion) is stated explicitly instead of being
// inferred from missing output.
package summary

import (
	"fmt"
	"io"

	"velo/internal/cachekey"
	"velo/internal/cargo"
	"velo/internal/fingerprint"
	"velo/internal/publish"
)

// Build is the structured summary of one invocation.
type Build struct {
	Bucket       cachekey.Bucket
	Channel      string
	Host         string
	Target       string // empty for host builds
	Profile      string
	Promoted     bool
	DebugSymbols bool
	LockMode     cargo.LockMode
	Drift        fingerprint.DriftStatus
	Artifacts    []publish.Artifact
}

// Print writes the human-readable summary.
func (b Build) Print(w io.Writer) {
	fmt.Fprintf(w, "\n📦 Build summary\n")
	fmt.Fprintf(w, "   Bucket:    %s (%s)\n", b.Bucket.Key, b.Bucket.Provenance)
	fmt.Fprintf(w, "   Directory: %s\n", b.Bucket.Directory)
	fmt.Fprintf(w, "   Toolchain: %s (host %s)\n", b.Channel, b.Host)
	if b.Target != "" {
		fmt.Fprintf(w, "   Target:    %s\n", b.Target)
	}
	profile := b.Profile
	if b.Promoted {
		profile += " (promoted to release)"
	}
	if b.DebugSymbols {
		profile += " +debug-symbols"
	}
	fmt.Fprintf(w, "   Profile:   %s\n", profile)
	fmt.Fprintf(w, "   Deps:      %s\n", b.LockMode)
	if b.Drift == fingerprint.Drift {
		fmt.Fprintf(w, "   Drift:     environment changed since last build of this bucket\n")
	}
	for _, art := range b.Artifacts {
		fmt.Fprintf(w, "   %s → %s\n", art.Name, art.PublishedPath)
		fmt.Fprintf(w, "      %s\n", art.Identity)
		for _, alias := range art.Aliases {
			fmt.Fprintf(w, "      alias %s\n", alias)
		}
	}
}
