package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRustup struct {
	channels  []string
	active    string
	installed []string
	probe     string
	probeErr  error
	failWhich bool
	failInst  bool
}

func (f *fakeRustup) InstalledChannels(ctx context.Context) ([]string, error) {
	return f.channels, nil
}

func (f *fakeRustup) InstallChannel(ctx context.Context, channel string) error {
	if f.failInst {
		return errors.New("download failed")
	}
	f.installed = append(f.installed, channel)
	f.channels = append(f.channels, channel)
	return nil
}

func (f *fakeRustup) ActiveChannel(ctx context.Context) (string, error) {
	if f.active == "" {
		return "", errors.New("no active toolchain")
	}
	return f.active, nil
}

func (f *fakeRustup) Which(ctx context.Context, channel, tool string) (string, error) {
	if f.failWhich {
		return "", errors.New("not found")
	}
	return "/toolchains/" + channel + "/bin/" + tool, nil
}

func (f *fakeRustup) VersionProbe(ctx context.Context, channel string) (string, error) {
	if f.probeErr != nil {
		return "", f.probeErr
	}
	return f.probe, nil
}

func (f *fakeRustup) ToolVersion(ctx context.Context, channel, tool string) (string, error) {
	return tool + " 1.80.0", nil
}

func (f *fakeRustup) AddTarget(ctx context.Context, channel, triple string) error {
	return nil
}

func (f *fakeRustup) InstalledTargets(ctx context.Context, channel string) ([]string, error) {
	return nil, nil
}

const probeOutput = `rustc 1.80.0 (abc 2024-07-21)
binary: rustc
host: x86_64-unknown-linux-gnu
release: 1.80.0`

func TestResolveOverrideWins(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "channel = \"1.79.0\"\n")

	fake := &fakeRustup{channels: []string{"nightly-x86_64-unknown-linux-gnu"}, probe: probeOutput}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), dir, "nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly", desc.Channel)
	assert.False(t, desc.Installed)
}

func TestResolveManifestBeatsActive(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[toolchain]\nchannel = \"1.79.0\"\ncomponents = [\"clippy\"]\n")

	fake := &fakeRustup{channels: []string{"1.79.0-x86_64-unknown-linux-gnu"}, active: "stable", probe: probeOutput}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, "1.79.0", desc.Channel)
}

func TestResolveFallsBackToActive(t *testing.T) {
	fake := &fakeRustup{channels: []string{"stable-x86_64-unknown-linux-gnu"}, active: "stable", probe: probeOutput}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "stable", desc.Channel)
}

func TestResolveInstallsMissingChannel(t *testing.T) {
	fake := &fakeRustup{probe: probeOutput}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), t.TempDir(), "nightly")
	require.NoError(t, err)
	assert.True(t, desc.Installed)
	assert.Equal(t, []string{"nightly"}, fake.installed)
}

func TestResolveInstallFailureIsFatal(t *testing.T) {
	fake := &fakeRustup{failInst: true}
	_, err := NewResolver(fake, true).Resolve(context.Background(), t.TempDir(), "nightly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "install failed")
}

func TestResolveHostFromProbe(t *testing.T) {
	fake := &fakeRustup{channels: []string{"stable-x"}, probe: probeOutput}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), t.TempDir(), "stable")
	require.NoError(t, err)
	assert.Equal(t, "x86_64-unknown-linux-gnu", desc.Host)
}

func TestResolveHostHeuristicWhenProbeFails(t *testing.T) {
	fake := &fakeRustup{channels: []string{"stable-x"}, probeErr: errors.New("boom")}
	desc, err := NewResolver(fake, true).Resolve(context.Background(), t.TempDir(), "stable")
	require.NoError(t, err)
	assert.NotEqual(t, UnknownHost, desc.Host)
	assert.NotEmpty(t, desc.Host)
}

func TestParseHostTriple(t *testing.T) {
	assert.Equal(t, "aarch64-apple-darwin", ParseHostTriple("binary: rustc\nhost: aarch64-apple-darwin\n"))
	assert.Equal(t, "", ParseHostTriple("no host line here"))
}

func TestHeuristicHostTriple(t *testing.T) {
	assert.Equal(t, "aarch64-apple-darwin", heuristicHostTriple("darwin", "arm64"))
	assert.Equal(t, "x86_64-unknown-linux-gnu", heuristicHostTriple("linux", "amd64"))
	assert.Equal(t, "", heuristicHostTriple("plan9", "amd64"))
}

func TestScanManifestChannel(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", ScanManifestChannel(dir))

	writeManifest(t, dir, "# comment\n[toolchain]\nchannel = \"nightly-2024-07-01\"\n")
	assert.Equal(t, "nightly-2024-07-01", ScanManifestChannel(dir))
}

func TestScanLegacyBareManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rust-toolchain"), []byte("1.78.0\n"), 0o644))
	assert.Equal(t, "1.78.0", ScanManifestChannel(dir))
}

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rust-toolchain.toml"), []byte(content), 0o644))
}
