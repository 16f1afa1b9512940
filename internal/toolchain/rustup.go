// Package toolchain resolves which Rust toolchain channel a build uses and
// guarantees the whole invocation sticks to it: once a Descriptor exists,
// every external compiler call goes through its resolved paths.
package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"velo/internal/envtable"
)

// Rustup is the toolchain management surface. It is an interface so the
// resolver can be tested against a fake without a rustup installation.
type Rustup interface {
	// InstalledChannels lists locally installed toolchain channels.
	InstalledChannels(ctx context.Context) ([]string, error)
	// InstallChannel installs a channel. No timeout: toolchain downloads
	// may legitimately run for a long time.
	InstallChannel(ctx context.Context, channel string) error
	// ActiveChannel reports the currently active default channel.
	ActiveChannel(ctx context.Context) (string, error)
	// Which resolves the absolute path of a tool under a channel.
	Which(ctx context.Context, channel, tool string) (string, error)
	// VersionProbe runs `rustc -vV` under a channel and returns raw output.
	VersionProbe(ctx context.Context, channel string) (string, error)
	// ToolVersion runs `<tool> -V` under a channel.
	ToolVersion(ctx context.Context, channel, tool string) (string, error)
	// AddTarget installs a target's standard-library component.
	AddTarget(ctx context.Context, channel, triple string) error
	// InstalledTargets lists installed targets for a channel.
	InstalledTargets(ctx context.Context, channel string) ([]string, error)
}

// CLI drives the real rustup binary. Spawned processes receive the captured
// env table, never the orchestrator's mutated environment.
type CLI struct {
	path string
	env  *envtable.Table
}

// NewCLI locates rustup on PATH.
func NewCLI(env *envtable.Table) (*CLI, error) {
	path, err := exec.LookPath("rustup")
	if err != nil {
		return nil, fmt.Errorf("rustup not found in PATH: %w", err)
	}
	return &CLI{path: path, env: env}, nil
}

func (c *CLI) output(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, c.path, args...)
	cmd.Env = c.env.Environ()
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("rustup %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (c *CLI) InstalledChannels(ctx context.Context) ([]string, error) {
	out, err := c.output(ctx, "toolchain", "list")
	if err != nil {
		return nil, err
	}
	var channels []string
	for _, line := range strings.Split(out, "\n") {
		// Lines look like "stable-x86_64-unknown-linux-gnu (default)".
		fields := strings.Fields(line)
		if len(fields) > 0 {
			channels = append(channels, fields[0])
		}
	}
	return channels, nil
}

func (c *CLI) InstallChannel(ctx context.Context, channel string) error {
	cmd := exec.CommandContext(ctx, c.path, "toolchain", "install", channel)
	cmd.Env = c.env.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("rustup toolchain install %s: %w\n%s", channel, err, out)
	}
	return nil
}

func (c *CLI) ActiveChannel(ctx context.Context) (string, error) {
	out, err := c.output(ctx, "show", "active-toolchain")
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return "", fmt.Errorf("rustup reported no active toolchain")
	}
	return fields[0], nil
}

func (c *CLI) Which(ctx context.Context, channel, tool string) (string, error) {
	return c.output(ctx, "which", "--toolchain", channel, tool)
}

func (c *CLI) VersionProbe(ctx context.Context, channel string) (string, error) {
	return c.output(ctx, "run", channel, "rustc", "-vV")
}

func (c *CLI) ToolVersion(ctx context.Context, channel, tool string) (string, error) {
	return c.output(ctx, "run", channel, tool, "-V")
}

func (c *CLI) AddTarget(ctx context.Context, channel, triple string) error {
	cmd := exec.CommandContext(ctx, c.path, "target", "add", triple, "--toolchain", channel)
	cmd.Env = c.env.Environ()
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("rustup target add %s: %w\n%s", triple, err, out)
	}
	return nil
}

func (c *CLI) InstalledTargets(ctx context.Context, channel string) ([]string, error) {
	out, err := c.output(ctx, "target", "list", "--installed", "--toolchain", channel)
	if err != nil {
		return nil, err
	}
	return strings.Fields(out), nil
}
