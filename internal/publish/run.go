package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"velo/internal/envtable"
)

// ErrForeignTarget means run-after-build was requested for a binary that
// cannot execute on this host.
var ErrForeignTarget = errors.New("refusing to execute foreign-architecture binary")

// CheckRunnable rejects execution of a non-native artifact. An empty
// target means a host build and is always runnable.
func CheckRunnable(target, host string) error {
	if target == "" || target == host {
		return nil
	}
	return fmt.Errorf("%w: built for %s, host is %s; transfer the binary to a matching device instead", ErrForeignTarget, target, host)
}

// Run executes the published binary from workdir and returns its exit
// status. The child inherits the captured env table.
func Run(ctx context.Context, binary, workdir string, args []string, env *envtable.Table) (int, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = workdir
	cmd.Env = env.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), fmt.Errorf("%s exited with status %d", binary, exitErr.ExitCode())
	}
	return 1, fmt.Errorf("running %s: %w", binary, err)
}
