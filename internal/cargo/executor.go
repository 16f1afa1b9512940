// Package cargo is the boundary to the external compiler toolchain. The
// executor builds through the exact cargo binary the toolchain resolver
// picked and passes it the captured env table; nothing else in the process
// touches the environment the compiler sees.
package cargo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"velo/internal/envtable"
	"velo/internal/logging"
)

// LockMode names whether the build ran against a locked dependency
// manifest. Surfaced in the summary instead of being inferred from output.
type LockMode string

const (
	Locked   LockMode = "locked"
	Unlocked LockMode = "unlocked"
)

// Executor runs cargo for one invocation.
type Executor struct {
	workspaceRoot string
	cargoPath     string
	env           *envtable.Table
	verbose       bool
}

// NewExecutor wires the resolved cargo driver to the workspace.
func NewExecutor(workspaceRoot, cargoPath string, env *envtable.Table, verbose bool) *Executor {
	return &Executor{
		workspaceRoot: workspaceRoot,
		cargoPath:     cargoPath,
		env:           env,
		verbose:       verbose,
	}
}

// DetectLockMode reports Locked when the workspace carries a dependency
// lockfile, Unlocked otherwise. Unlocked builds proceed with a warning.
func DetectLockMode(workspaceRoot string) LockMode {
	if _, err := os.Stat(filepath.Join(workspaceRoot, "Cargo.lock")); err == nil {
		return Locked
	}
	return Unlocked
}

// BuildOptions describes one compile.
type BuildOptions struct {
	Profile  string
	Target   string // empty for host builds
	Binaries []string
	LockMode LockMode
}

// Build runs `cargo build` with the given options. Output passes through to
// the user; the error wraps cargo's exit status. No timeout is enforced.
func (e *Executor) Build(ctx context.Context, opts BuildOptions) error {
	args := []string{"build", "--profile", opts.Profile}
	if opts.Target != "" {
		args = append(args, "--target", opts.Target)
	}
	if opts.LockMode == Locked {
		args = append(args, "--locked")
	}
	for _, bin := range opts.Binaries {
		args = append(args, "--bin", bin)
	}
	if e.verbose {
		args = append(args, "--verbose")
	}
	return e.execute(ctx, args)
}

func (e *Executor) execute(ctx context.Context, args []string) error {
	log := logging.GetLogger("cargo")
	log.Debug().Str("cargo", e.cargoPath).Strs("args", args).Msg("invoking compiler")

	cmd := exec.CommandContext(ctx, e.cargoPath, args...)
	cmd.Dir = e.workspaceRoot
	cmd.Env = e.env.Environ()
	cmd.Stdout = os.Stdout

	// Tee stderr so diagnostics stream to the user and stay available for
	// error classification afterwards.
	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderr)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("cargo %s failed: %w\n%s", args[0], err, stderr.String())
	}
	return nil
}
