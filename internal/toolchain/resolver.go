package toolchain

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"velo/internal/logging"
)

// UnknownHost is the sentinel host triple used when neither the compiler
// probe nor the platform heuristic can answer.
const UnknownHost = "unknown-unknown-unknown"

// Descriptor is the fully resolved toolchain for one invocation. Every
// subsequent compiler call in the run uses these exact paths; there is no
// silent fallback to another toolchain partway through.
type Descriptor struct {
	Channel      string
	Host         string
	RustcPath    string
	CargoPath    string
	RustcVersion string
	CargoVersion string
	// Installed is true when the channel had to be installed this run.
	Installed bool
}

// Resolver picks the channel and resolves the host triple.
type Resolver struct {
	rustup Rustup
	quiet  bool
}

// NewResolver returns a resolver over the given management surface.
func NewResolver(rustup Rustup, quiet bool) *Resolver {
	return &Resolver{rustup: rustup, quiet: quiet}
}

// Resolve selects the channel (override > manifest > active default),
// installs it if missing, and fills in driver paths and versions. Version
// probes degrade to empty fields; a failed install is fatal.
func (r *Resolver) Resolve(ctx context.Context, workspaceRoot, overrideChannel string) (*Descriptor, error) {
	log := logging.GetLogger("toolchain")

	channel := overrideChannel
	switch {
	case channel != "":
		log.Debug().Str("channel", channel).Msg("channel from override")
	default:
		if channel = ScanManifestChannel(workspaceRoot); channel != "" {
			log.Debug().Str("channel", channel).Msg("channel from toolchain manifest")
		} else {
			active, err := r.rustup.ActiveChannel(ctx)
			if err != nil {
				return nil, fmt.Errorf("no toolchain channel pinned and none active: %w", err)
			}
			channel = active
			log.Debug().Str("channel", channel).Msg("channel from active default")
		}
	}

	desc := &Descriptor{Channel: channel}

	installed, err := r.channelInstalled(ctx, channel)
	if err != nil {
		return nil, err
	}
	if !installed {
		if err := r.install(ctx, channel); err != nil {
			return nil, fmt.Errorf("toolchain '%s' install failed: %w", channel, err)
		}
		desc.Installed = true
	}

	// Driver paths. These must resolve: a channel without a compiler
	// driver cannot build anything.
	if desc.RustcPath, err = r.rustup.Which(ctx, channel, "rustc"); err != nil {
		return nil, fmt.Errorf("resolving rustc under '%s': %w", channel, err)
	}
	if desc.CargoPath, err = r.rustup.Which(ctx, channel, "cargo"); err != nil {
		return nil, fmt.Errorf("resolving cargo under '%s': %w", channel, err)
	}

	// Version strings are fingerprint material only; a failed probe
	// leaves the field empty.
	desc.RustcVersion, _ = r.rustup.ToolVersion(ctx, channel, "rustc")
	desc.CargoVersion, _ = r.rustup.ToolVersion(ctx, channel, "cargo")

	desc.Host = r.resolveHost(ctx, channel)
	log.Debug().Str("host", desc.Host).Str("rustc", desc.RustcPath).Msg("toolchain resolved")
	return desc, nil
}

func (r *Resolver) channelInstalled(ctx context.Context, channel string) (bool, error) {
	channels, err := r.rustup.InstalledChannels(ctx)
	if err != nil {
		return false, fmt.Errorf("listing installed toolchains: %w", err)
	}
	for _, c := range channels {
		// rustup lists fully qualified names; "stable" matches
		// "stable-x86_64-unknown-linux-gnu".
		if c == channel || strings.HasPrefix(c, channel+"-") {
			return true, nil
		}
	}
	return false, nil
}

func (r *Resolver) install(ctx context.Context, channel string) error {
	if r.quiet {
		return r.rustup.InstallChannel(ctx, channel)
	}

	fmt.Printf("📦 Installing toolchain '%s'...\n", channel)
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Installing "+channel),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-time.After(100 * time.Millisecond):
				bar.Add(1)
			}
		}
	}()
	err := r.rustup.InstallChannel(ctx, channel)
	close(done)
	bar.Finish()
	if err == nil {
		fmt.Printf("✅ Toolchain '%s' installed\n", channel)
	}
	return err
}

// resolveHost extracts the host triple from the compiler's version probe,
// falling back to a platform heuristic, then to the unknown sentinel.
func (r *Resolver) resolveHost(ctx context.Context, channel string) string {
	if out, err := r.rustup.VersionProbe(ctx, channel); err == nil {
		if host := ParseHostTriple(out); host != "" {
			return host
		}
	}
	if host := heuristicHostTriple(runtime.GOOS, runtime.GOARCH); host != "" {
		return host
	}
	return UnknownHost
}

// ParseHostTriple pulls the "host: " line out of `rustc -vV` output.
func ParseHostTriple(probeOutput string) string {
	for _, line := range strings.Split(probeOutput, "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "host: "); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// heuristicHostTriple maps the runtime platform to a plausible triple when
// the compiler probe fails. Apple silicon reports arm64, which the Rust
// world spells aarch64.
func heuristicHostTriple(goos, goarch string) string {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
	}[goarch]
	if arch == "" {
		arch = goarch
	}
	switch goos {
	case "darwin":
		return arch + "-apple-darwin"
	case "linux":
		return arch + "-unknown-linux-gnu"
	case "windows":
		return arch + "-pc-windows-msvc"
	}
	return ""
}
