package publish

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velo/internal/workspace"
)

const hostTriple = "x86_64-unknown-linux-gnu"

// plantArtifact writes a fake compiled binary where cargo would put it.
func plantArtifact(t *testing.T, p *Publisher, bin workspace.Binary, content string) {
	t.Helper()
	src := p.SourcePath(bin)
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte(content), 0o755))
}

func TestSourcePathLayout(t *testing.T) {
	p := New("/bucket", "dev", "debug", "", hostTriple)
	assert.Equal(t, "/bucket/debug/code", p.SourcePath(workspace.Binary{Name: "code"}))

	cross := New("/bucket", "release", "release", "aarch64-linux-android", hostTriple)
	assert.Equal(t, "/bucket/aarch64-linux-android/release/code",
		cross.SourcePath(workspace.Binary{Name: "code"}))
}

func TestPublishCopiesAndReportsIdentity(t *testing.T) {
	bucket := t.TempDir()
	p := New(bucket, "release", "release", "", hostTriple)
	bin := workspace.Binary{Name: "code"}
	plantArtifact(t, p, bin, "elf contents")

	arts, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)
	require.Len(t, arts, 1)

	art := arts[0]
	assert.Equal(t, filepath.Join(bucket, "dist", "release", "code"), art.PublishedPath)

	data, err := os.ReadFile(art.PublishedPath)
	require.NoError(t, err)
	assert.Equal(t, "elf contents", string(data))

	// Source survives: copy, never move.
	assert.FileExists(t, art.SourcePath)

	info, err := os.Stat(art.PublishedPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode().Perm()&0o111)

	assert.False(t, art.Identity.SizeOnly)
	assert.Len(t, art.Identity.Digest, 64)
}

func TestPublishMissingArtifactIsDistinctError(t *testing.T) {
	p := New(t.TempDir(), "dev", "debug", "", hostTriple)
	_, err := p.Publish([]workspace.Binary{{Name: "code"}})
	assert.True(t, errors.Is(err, ErrArtifactMissing))
}

func TestPublishLogicalNameSymlink(t *testing.T) {
	bucket := t.TempDir()
	p := New(bucket, "fast", "fast", "", hostTriple)
	bin := workspace.Binary{Name: "code", Bin: "code-exec"}
	plantArtifact(t, p, bin, "payload")

	arts, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)

	// Canonical file keeps the disk name; logical name is a symlink.
	assert.Equal(t, "code-exec", filepath.Base(arts[0].PublishedPath))
	logical := filepath.Join(bucket, "dist", "fast", "code")
	resolved, err := os.Readlink(logical)
	require.NoError(t, err)
	assert.Equal(t, arts[0].PublishedPath, resolved)
}

func TestAliasNamesPerProfile(t *testing.T) {
	bin := workspace.Binary{Name: "code"}

	rel := New("/b", "release", "release", "", hostTriple)
	assert.Equal(t, []string{"code", "code-" + hostTriple}, rel.AliasNames(bin))

	dev := New("/b", "fast", "fast", "", hostTriple)
	assert.Equal(t, []string{"code-dev", "code-dev-" + hostTriple}, dev.AliasNames(bin))

	cross := New("/b", "release", "release", "aarch64-linux-android", hostTriple)
	assert.Equal(t, []string{"code", "code-aarch64-linux-android"}, cross.AliasNames(bin))
}

func TestAliasesResolveToCanonicalContent(t *testing.T) {
	bucket := t.TempDir()
	p := New(bucket, "release", "release", "", hostTriple)
	bin := workspace.Binary{Name: "code"}
	plantArtifact(t, p, bin, "canonical bytes")

	arts, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)
	require.NotEmpty(t, arts[0].Aliases)

	for _, alias := range arts[0].Aliases {
		data, err := os.ReadFile(alias)
		require.NoError(t, err, "alias %s", alias)
		assert.Equal(t, "canonical bytes", string(data))
	}
}

func TestRepublishHealsStaleAliases(t *testing.T) {
	bucket := t.TempDir()
	p := New(bucket, "release", "release", "", hostTriple)
	bin := workspace.Binary{Name: "code"}
	plantArtifact(t, p, bin, "v1")

	_, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)

	// Break an alias, then republish with new content.
	alias := filepath.Join(bucket, "bin", "code")
	require.NoError(t, os.Remove(alias))
	require.NoError(t, os.Symlink(filepath.Join(bucket, "gone"), alias))

	plantArtifact(t, p, bin, "v2")
	arts, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)

	data, err := os.ReadFile(alias)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, "v2", readFile(t, arts[0].PublishedPath))
}

func TestPublishReplaceKeepsOldArtifactOnFailure(t *testing.T) {
	bucket := t.TempDir()
	p := New(bucket, "release", "release", "", hostTriple)
	bin := workspace.Binary{Name: "code"}
	plantArtifact(t, p, bin, "good build")

	_, err := p.Publish([]workspace.Binary{bin})
	require.NoError(t, err)

	// Remove the source: the next publish fails before touching dist.
	require.NoError(t, os.Remove(p.SourcePath(bin)))
	_, err = p.Publish([]workspace.Binary{bin})
	require.Error(t, err)

	dest := filepath.Join(bucket, "dist", "release", "code")
	assert.Equal(t, "good build", readFile(t, dest))
}

func TestCheckRunnable(t *testing.T) {
	assert.NoError(t, CheckRunnable("", hostTriple))
	assert.NoError(t, CheckRunnable(hostTriple, hostTriple))

	err := CheckRunnable("aarch64-linux-android", hostTriple)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrForeignTarget))
	assert.Contains(t, err.Error(), "transfer the binary")
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
