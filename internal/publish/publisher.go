// Package publish moves binaries out of the toolchain-owned output tree
// into the stable consumer-facing layout after a successful compile:
// copy (never move) via temp-then-rename, recreate alias symlinks, and
// report content identity.
package publish

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"velo/internal/hashutil"
	"velo/internal/logging"
	"velo/internal/workspace"
	"velo/pkg/xos"
)

// ErrArtifactMissing means the compiler reported success but the expected
// file is not on disk. That is a path-resolution defect in this tool, not
// a compile failure, and is reported as such.
var ErrArtifactMissing = errors.New("artifact missing after successful compile")

// Artifact is one published binary.
type Artifact struct {
	Name          string // logical name
	DiskName      string // cargo's on-disk filename
	SourcePath    string
	PublishedPath string
	Aliases       []string
	Identity      hashutil.FileIdentity
}

// Publisher lays out dist/ and bin/ under one cache bucket for one
// (profile, target) pair.
type Publisher struct {
	bucketDir  string
	profile    string
	subdir     string
	target     string // triple, empty for host builds
	hostTriple string
}

// New creates a publisher. subdir is the profile's output subdirectory.
func New(bucketDir, profile, subdir, target, hostTriple string) *Publisher {
	return &Publisher{
		bucketDir:  bucketDir,
		profile:    profile,
		subdir:     subdir,
		target:     target,
		hostTriple: hostTriple,
	}
}

// SourcePath is where cargo left the binary inside the bucket.
func (p *Publisher) SourcePath(bin workspace.Binary) string {
	parts := []string{p.bucketDir}
	if p.target != "" {
		parts = append(parts, p.target)
	}
	parts = append(parts, p.subdir, bin.DiskName())
	return filepath.Join(parts...)
}

// distDir is the stable consumer-facing directory for this (profile,
// target), mirroring the toolchain tree shape.
func (p *Publisher) distDir() string {
	parts := []string{p.bucketDir, "dist"}
	if p.target != "" {
		parts = append(parts, p.target)
	}
	parts = append(parts, p.subdir)
	return filepath.Join(parts...)
}

func (p *Publisher) binDir() string {
	return filepath.Join(p.bucketDir, "bin")
}

// Publish copies each binary into the dist tree and recreates its aliases.
// The copy is atomic: a crash mid-publish leaves at most one temporary
// file, never a truncated artifact at the final path.
func (p *Publisher) Publish(bins []workspace.Binary) ([]Artifact, error) {
	log := logging.GetLogger("publish")

	var artifacts []Artifact
	for _, bin := range bins {
		src := p.SourcePath(bin)
		if _, err := os.Stat(src); err != nil {
			return nil, fmt.Errorf("%w: expected %s for binary '%s'", ErrArtifactMissing, src, bin.Name)
		}

		dest := filepath.Join(p.distDir(), bin.DiskName())
		if err := os.MkdirAll(p.distDir(), 0o755); err != nil {
			return nil, fmt.Errorf("creating publish directory: %w", err)
		}
		if err := xos.CopyFile(src, dest, 0o755); err != nil {
			return nil, fmt.Errorf("publishing '%s': %w", bin.Name, err)
		}

		art := Artifact{
			Name:          bin.Name,
			DiskName:      bin.DiskName(),
			SourcePath:    src,
			PublishedPath: dest,
		}

		// When the on-disk name differs from the logical name, the
		// logical name is a symlink beside the canonical file.
		if bin.DiskName() != bin.Name {
			logical := filepath.Join(p.distDir(), bin.Name)
			if err := xos.Symlink(dest, logical); err != nil {
				return nil, fmt.Errorf("linking logical name '%s': %w", bin.Name, err)
			}
		}

		aliases, err := p.relinkAliases(bin, dest)
		if err != nil {
			return nil, err
		}
		art.Aliases = aliases

		id, err := hashutil.File(dest)
		if err != nil {
			return nil, fmt.Errorf("hashing published '%s': %w", bin.Name, err)
		}
		art.Identity = id

		log.Debug().Str("binary", bin.Name).Str("path", dest).Str("identity", id.String()).Msg("published")
		artifacts = append(artifacts, art)
	}
	return artifacts, nil
}

// AliasNames is the fixed alias set for one binary under this profile:
// the primary release alias for release builds, the dev alias otherwise,
// plus a triple-keyed name for external tooling.
func (p *Publisher) AliasNames(bin workspace.Binary) []string {
	triple := p.target
	if triple == "" {
		triple = p.hostTriple
	}
	if p.profile == "release" {
		return []string{bin.Name, bin.Name + "-" + triple}
	}
	return []string{bin.Name + "-dev", bin.Name + "-dev-" + triple}
}

// relinkAliases recreates every alias unconditionally (unlink-then-relink,
// not create-unless-exists), so stale and broken links self-heal.
func (p *Publisher) relinkAliases(bin workspace.Binary, canonical string) ([]string, error) {
	if err := os.MkdirAll(p.binDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating alias directory: %w", err)
	}
	var aliases []string
	for _, name := range p.AliasNames(bin) {
		link := filepath.Join(p.binDir(), name)
		if err := xos.Symlink(canonical, link); err != nil {
			return nil, fmt.Errorf("recreating alias %s: %w", name, err)
		}
		aliases = append(aliases, link)
	}
	return aliases, nil
}
